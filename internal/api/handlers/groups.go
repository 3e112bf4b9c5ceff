// groups.go — обработчики групп пользователей.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/sprintap/user-module/internal/api/errors"
	"github.com/sprintap/user-module/internal/domain/model"
)

// createGroupRequest — тело запроса создания группы.
type createGroupRequest struct {
	Name    string   `json:"name"`
	UserIDs []string `json:"user_ids"`
}

// updateGroupUsersRequest — тело запроса обновления состава группы.
type updateGroupUsersRequest struct {
	AddUserIDs    []string `json:"add_user_ids"`
	RemoveUserIDs []string `json:"remove_user_ids"`
}

// updateGroupRolesRequest — тело запроса обновления назначений группы.
type updateGroupRolesRequest struct {
	AddRoleIDs         []string `json:"add_role_ids"`
	RemoveRoleIDs      []string `json:"remove_role_ids"`
	AddPrivilegeIDs    []string `json:"add_privilege_ids"`
	RemovePrivilegeIDs []string `json:"remove_privilege_ids"`
}

// groupRolesResponse — роли и привилегии группы.
type groupRolesResponse struct {
	Roles      []model.CatalogRef `json:"roles"`
	Privileges []model.CatalogRef `json:"privileges"`
}

// CreateGroup — POST /api/v1/groups.
func (h *APIHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}
	if req.Name == "" {
		apierrors.ValidationError(w, "Поле name обязательно")
		return
	}

	groupID, err := h.groups.CreateGroup(r.Context(), req.Name, req.UserIDs)
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Группа создана", "group_id", groupID)
}

// ListGroups — GET /api/v1/groups.
func (h *APIHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.GetAllGroups(r.Context())
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// DeleteGroup — DELETE /api/v1/groups/{groupId}.
func (h *APIHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")

	if err := h.groups.DeleteGroup(r.Context(), groupID); err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Группа удалена", "", nil)
}

// GroupRolesPrivileges — GET /api/v1/groups/{groupId}/roles-privileges.
func (h *APIHandler) GroupRolesPrivileges(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")

	roles, privileges, err := h.groups.GetRolesAndPrivilegesForGroup(r.Context(), groupID)
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeJSON(w, http.StatusOK, groupRolesResponse{Roles: roles, Privileges: privileges})
}

// GroupUsers — GET /api/v1/groups/{groupId}/users.
func (h *APIHandler) GroupUsers(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")

	members, err := h.groups.GetUsersInGroup(r.Context(), groupID)
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

// UpdateGroupUsers — PUT /api/v1/groups/{groupId}/users.
func (h *APIHandler) UpdateGroupUsers(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")

	var req updateGroupUsersRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	if err := h.groups.UpdateGroupUsers(r.Context(), groupID, req.AddUserIDs, req.RemoveUserIDs); err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Состав группы обновлён", "", nil)
}

// UpdateGroupRolesPrivileges — PUT /api/v1/groups/{groupId}/roles-privileges.
func (h *APIHandler) UpdateGroupRolesPrivileges(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")

	var req updateGroupRolesRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	err := h.groups.UpdateGroupRolesAndPrivileges(r.Context(), groupID,
		req.AddRoleIDs, req.RemoveRoleIDs, req.AddPrivilegeIDs, req.RemovePrivilegeIDs)
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Назначения группы обновлены", "", nil)
}
