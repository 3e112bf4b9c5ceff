package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubChecker — фиксированный результат проверки для тестов.
type stubChecker struct {
	status  string
	message string
}

func (s stubChecker) CheckReady() (string, string) {
	return s.status, s.message
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	h.HealthLive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}

	var resp healthLiveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("некорректный JSON: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, ожидается ok", resp.Status)
	}
	if resp.Service != "user-module" {
		t.Errorf("service = %q, ожидается user-module", resp.Service)
	}
	if resp.Timestamp == "" {
		t.Error("timestamp пустой")
	}
}

func TestHealthReady_Aggregation(t *testing.T) {
	tests := []struct {
		name       string
		pg         ReadinessChecker
		kc         ReadinessChecker
		wantCode   int
		wantStatus string
	}{
		{
			name:       "обе зависимости ok",
			pg:         stubChecker{status: "ok", message: "пул активен"},
			kc:         stubChecker{status: "ok", message: "JWKS доступен"},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "degraded не снимает под с балансировки",
			pg:         stubChecker{status: "ok"},
			kc:         stubChecker{status: "degraded", message: "нет ключей"},
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
		},
		{
			name:       "fail одной зависимости — 503",
			pg:         stubChecker{status: "fail", message: "PostgreSQL недоступен"},
			kc:         stubChecker{status: "ok"},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
		},
		{
			name:       "fail перекрывает degraded",
			pg:         stubChecker{status: "degraded"},
			kc:         stubChecker{status: "fail"},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
		},
		{
			name:       "nil-checker трактуется как fail",
			pg:         nil,
			kc:         stubChecker{status: "ok"},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.kc)

			req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("статус HTTP = %d, ожидается %d", rec.Code, tt.wantCode)
			}

			var resp healthReadyResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("некорректный JSON: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, ожидается %q", resp.Status, tt.wantStatus)
			}
		})
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		expected string
	}{
		{"все ok", []string{"ok", "ok"}, "ok"},
		{"один degraded", []string{"ok", "degraded"}, "degraded"},
		{"один fail", []string{"fail", "ok"}, "fail"},
		{"fail важнее degraded", []string{"degraded", "fail"}, "fail"},
		{"пустой список", nil, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overallStatus(tt.statuses...); got != tt.expected {
				t.Errorf("overallStatus(%v) = %q, ожидается %q", tt.statuses, got, tt.expected)
			}
		})
	}
}
