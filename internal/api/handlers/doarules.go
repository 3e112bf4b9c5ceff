// doarules.go — обработчики правил делегирования полномочий.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/sprintap/user-module/internal/api/errors"
	"github.com/sprintap/user-module/internal/api/middleware"
	"github.com/sprintap/user-module/internal/domain/model"
)

// doaRuleRequest — тело запроса создания/обновления правила.
type doaRuleRequest struct {
	UserID         string `json:"user_id"`
	Entity         string `json:"entity"`
	ApprovalLevel  int    `json:"approval_level"`
	MinAmount      string `json:"min_amount"`
	MaxAmount      string `json:"max_amount"`
	Currency       string `json:"currency"`
	VendorCode     string `json:"vendor_code"`
	PONumber       string `json:"po_number"`
	Classification string `json:"classification"`
	Enabled        *bool  `json:"enabled"`
}

// doaRuleStatusRequest — тело запроса переключения правила.
type doaRuleStatusRequest struct {
	Enabled bool `json:"enabled"`
}

// listDoaRulesResponse — страница правил делегирования.
type listDoaRulesResponse struct {
	Data       []*model.DoaRule   `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

// toRule переносит тело запроса в доменную модель.
func (req *doaRuleRequest) toRule() *model.DoaRule {
	rule := &model.DoaRule{
		UserID:         req.UserID,
		Entity:         req.Entity,
		ApprovalLevel:  req.ApprovalLevel,
		MinAmount:      req.MinAmount,
		MaxAmount:      req.MaxAmount,
		Currency:       req.Currency,
		VendorCode:     req.VendorCode,
		PONumber:       req.PONumber,
		Classification: req.Classification,
		Enabled:        true,
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	return rule
}

// CreateDoaRule — POST /api/v1/doa-rules.
func (h *APIHandler) CreateDoaRule(w http.ResponseWriter, r *http.Request) {
	var req doaRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	rule := req.toRule()
	rule.CreatedByUserID = middleware.SubjectFromContext(r.Context())

	if err := h.doaRules.Create(r.Context(), rule); err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Правило делегирования создано", "rule", rule)
}

// ListDoaRules — GET /api/v1/doa-rules. Возвращает {data, pagination}.
func (h *APIHandler) ListDoaRules(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.pagination(r)
	q := r.URL.Query()

	filter := model.DoaRuleFilter{
		UserID:         q.Get("user_id"),
		Entity:         q.Get("entity"),
		Currency:       q.Get("currency"),
		Classification: q.Get("classification"),
	}
	if raw := q.Get("enabled"); raw == "true" || raw == "false" {
		enabled := raw == "true"
		filter.Enabled = &enabled
	}
	if raw := q.Get("is_active"); raw == "true" || raw == "false" {
		isActive := raw == "true"
		filter.IsActive = &isActive
	}

	rules, total, err := h.doaRules.List(r.Context(), filter, limit, offset,
		q.Get("sort_by"), q.Get("sort_order"))
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	if rules == nil {
		rules = []*model.DoaRule{}
	}
	writeJSON(w, http.StatusOK, listDoaRulesResponse{
		Data:       rules,
		Pagination: paginationResponse{Total: total, Limit: limit, Offset: offset},
	})
}

// GetDoaRule — GET /api/v1/doa-rules/{id}.
func (h *APIHandler) GetDoaRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := h.doaRules.GetByID(r.Context(), id)
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// UpdateDoaRule — PUT /api/v1/doa-rules/{id}.
func (h *APIHandler) UpdateDoaRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req doaRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	rule := req.toRule()
	rule.ID = id

	if err := h.doaRules.Update(r.Context(), rule); err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Правило делегирования обновлено", "rule", rule)
}

// DeleteDoaRule — DELETE /api/v1/doa-rules/{id}. Мягкое удаление.
func (h *APIHandler) DeleteDoaRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.doaRules.Delete(r.Context(), id); err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Правило делегирования удалено", "", nil)
}

// SetDoaRuleStatus — PATCH /api/v1/doa-rules/{id}/status.
func (h *APIHandler) SetDoaRuleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req doaRuleStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	if err := h.doaRules.SetEnabled(r.Context(), id, req.Enabled); err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Статус правила изменён", "", nil)
}
