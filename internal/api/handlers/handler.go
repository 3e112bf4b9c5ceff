// Пакет handlers — HTTP-обработчики User Module.
// handler.go — основной обработчик API: объединяет доменные обработчики
// и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sprintap/user-module/internal/service"
)

// APIHandler — основной обработчик API User Module.
type APIHandler struct {
	health   *HealthHandler
	roles    *service.RoleService
	groups   *service.GroupService
	users    *service.UserService
	doaRules *service.DoaRuleService
	tokens   *service.TokenService

	defaultPageSize int
	maxPageSize     int

	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	roles *service.RoleService,
	groups *service.GroupService,
	users *service.UserService,
	doaRules *service.DoaRuleService,
	tokens *service.TokenService,
	defaultPageSize, maxPageSize int,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:          health,
		roles:           roles,
		groups:          groups,
		users:           users,
		doaRules:        doaRules,
		tokens:          tokens,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeMessage записывает envelope мутирующего endpoint:
// {"message": ..., <dataKey>: <data>, "timestamp": ...}.
// dataKey пропускается, если пуст.
func writeMessage(w http.ResponseWriter, status int, message, dataKey string, data any) {
	body := map[string]any{
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if dataKey != "" {
		body[dataKey] = data
	}
	writeJSON(w, status, body)
}

// paginationResponse — блок pagination в ответах списков.
type paginationResponse struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// pagination извлекает limit и offset из query-параметров,
// применяя значения по умолчанию и верхнюю границу из конфигурации.
func (h *APIHandler) pagination(r *http.Request) (limit, offset int) {
	limit = h.defaultPageSize
	offset = 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > h.maxPageSize {
		limit = h.maxPageSize
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}

	return limit, offset
}

// decodeJSON декодирует тело запроса, отклоняя неизвестные поля.
func decodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
