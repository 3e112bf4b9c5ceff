// roles.go — обработчики ролей и привилегий каталога.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/sprintap/user-module/internal/api/errors"
)

// createRoleRequest — тело запроса создания роли.
type createRoleRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	PrivilegeIDs []string `json:"privilege_ids"`
}

// updateRoleRequest — тело запроса обновления роли.
// nil-поля не изменяются.
type updateRoleRequest struct {
	Description        *string  `json:"description"`
	AddPrivilegeIDs    []string `json:"add_privilege_ids"`
	RemovePrivilegeIDs []string `json:"remove_privilege_ids"`
}

// CreateRole — POST /api/v1/roles.
func (h *APIHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}
	if req.Name == "" {
		apierrors.ValidationError(w, "Поле name обязательно")
		return
	}

	if err := h.roles.CreateRole(r.Context(), req.Name, req.Description, req.PrivilegeIDs); err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Роль создана", "", nil)
}

// ListRoles — GET /api/v1/roles. Возвращает массив без envelope.
func (h *APIHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.GetAllRoles(r.Context())
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// ListPrivileges — GET /api/v1/roles/privileges.
func (h *APIHandler) ListPrivileges(w http.ResponseWriter, r *http.Request) {
	privileges, err := h.roles.GetAllPrivileges(r.Context())
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, privileges)
}

// UpdateRole — PUT /api/v1/roles/{roleId}.
func (h *APIHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleId")

	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	if err := h.roles.UpdateRole(r.Context(), roleID, req.Description, req.AddPrivilegeIDs, req.RemovePrivilegeIDs); err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Роль обновлена", "", nil)
}

// DeleteRole — DELETE /api/v1/roles/{roleId}.
func (h *APIHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleId")

	if err := h.roles.DeleteRole(r.Context(), roleID); err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Роль удалена", "", nil)
}

// RolePrivileges — GET /api/v1/roles/{roleId}/privileges.
func (h *APIHandler) RolePrivileges(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleId")

	privileges, err := h.roles.GetPrivilegesForRole(r.Context(), roleID)
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeJSON(w, http.StatusOK, privileges)
}
