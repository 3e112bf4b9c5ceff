// users.go — обработчики пользователей.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/sprintap/user-module/internal/api/errors"
	"github.com/sprintap/user-module/internal/domain/model"
	"github.com/sprintap/user-module/internal/service"
)

// createUserRequest — тело запроса создания пользователя.
// Username не принимается: им всегда становится email.
type createUserRequest struct {
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Password  string   `json:"password"`
	Enabled   *bool    `json:"enabled"`
	RoleIDs   []string `json:"role_ids"`
	GroupIDs  []string `json:"group_ids"`
}

// updateUserRequest — тело запроса частичного обновления пользователя.
type updateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Enabled   *bool   `json:"enabled"`
	Password  *string `json:"password"`

	AddRoleIDs     []string `json:"add_role_ids"`
	RemoveRoleIDs  []string `json:"remove_role_ids"`
	AddGroupIDs    []string `json:"add_group_ids"`
	RemoveGroupIDs []string `json:"remove_group_ids"`
}

// listUsersResponse — страница пользователей.
type listUsersResponse struct {
	Data       []*model.User      `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

// CreateUser — POST /api/v1/users.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	// Новый пользователь активен, если явно не указано иное
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	user, err := h.users.CreateUser(r.Context(), service.CreateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Enabled:   enabled,
		RoleIDs:   req.RoleIDs,
		GroupIDs:  req.GroupIDs,
	})
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Пользователь создан", "user", user)
}

// ListUsers — GET /api/v1/users. Возвращает {data, pagination}.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.pagination(r)
	q := r.URL.Query()

	users, total, err := h.users.ListUsers(r.Context(), service.ListUsersOptions{
		Search:    q.Get("search"),
		Offset:    offset,
		Limit:     limit,
		RoleID:    q.Get("role_id"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	})
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	if users == nil {
		users = []*model.User{}
	}
	writeJSON(w, http.StatusOK, listUsersResponse{
		Data:       users,
		Pagination: paginationResponse{Total: total, Limit: limit, Offset: offset},
	})
}

// GetUser — GET /api/v1/users/{userId}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateUser — PUT /api/v1/users/{userId}.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	user, err := h.users.UpdateUser(r.Context(), userID, service.UpdateUserInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Enabled:        req.Enabled,
		Password:       req.Password,
		AddRoleIDs:     req.AddRoleIDs,
		RemoveRoleIDs:  req.RemoveRoleIDs,
		AddGroupIDs:    req.AddGroupIDs,
		RemoveGroupIDs: req.RemoveGroupIDs,
	})
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Пользователь обновлён", "user", user)
}

// DeleteUser — DELETE /api/v1/users/{userId}.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	if err := h.users.DeleteUser(r.Context(), userID); err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Пользователь удалён", "", nil)
}
