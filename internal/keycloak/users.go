// users.go — операции над пользователями Keycloak.
package keycloak

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListUsers возвращает страницу пользователей realm.
// search — серверный поиск Keycloak по username/email/имени (пустая строка — без фильтра).
// first/max — смещение и размер страницы.
func (c *Client) ListUsers(ctx context.Context, search string, first, max int) ([]User, error) {
	q := url.Values{
		"first": {strconv.Itoa(first)},
		"max":   {strconv.Itoa(max)},
	}
	if search != "" {
		q.Set("search", search)
	}

	resp, err := c.doAuthorized(ctx, http.MethodGet, "/users?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var users []User
	if err := decodeResponse(resp, &users); err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}

	return users, nil
}

// CountUsers возвращает общее число пользователей, попадающих под поиск.
func (c *Client) CountUsers(ctx context.Context, search string) (int, error) {
	path := "/users/count"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}

	resp, err := c.doAuthorized(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}

	var count int
	if err := decodeResponse(resp, &count); err != nil {
		return 0, fmt.Errorf("CountUsers: %w", err)
	}

	return count, nil
}

// GetUser возвращает пользователя по ID.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeResponse(resp, &user); err != nil {
		return nil, fmt.Errorf("GetUser %s: %w", id, err)
	}

	return &user, nil
}

// CreateUser создаёт пользователя и возвращает его ID.
func (c *Client) CreateUser(ctx context.Context, user User) (string, error) {
	resp, err := c.doAuthorized(ctx, http.MethodPost, "/users", user)
	if err != nil {
		return "", err
	}

	id, err := createdID(resp)
	if err != nil {
		return "", fmt.Errorf("CreateUser %s: %w", user.Username, err)
	}

	return id, nil
}

// UpdateUser обновляет атрибуты пользователя.
func (c *Client) UpdateUser(ctx context.Context, id string, user User) error {
	resp, err := c.doAuthorized(ctx, http.MethodPut, "/users/"+url.PathEscape(id), user)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("UpdateUser %s: %w", id, err)
	}

	return nil
}

// DeleteUser удаляет пользователя.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.doAuthorized(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("DeleteUser %s: %w", id, err)
	}

	return nil
}

// ResetPassword устанавливает постоянный пароль пользователя.
func (c *Client) ResetPassword(ctx context.Context, id, password string) error {
	cred := Credential{Type: "password", Value: password, Temporary: false}

	resp, err := c.doAuthorized(ctx, http.MethodPut, "/users/"+url.PathEscape(id)+"/reset-password", cred)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("ResetPassword %s: %w", id, err)
	}

	return nil
}

// UserGroups возвращает группы пользователя.
func (c *Client) UserGroups(ctx context.Context, id string) ([]Group, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/users/"+url.PathEscape(id)+"/groups?max=-1", nil)
	if err != nil {
		return nil, err
	}

	var groups []Group
	if err := decodeResponse(resp, &groups); err != nil {
		return nil, fmt.Errorf("UserGroups %s: %w", id, err)
	}

	return groups, nil
}

// UserEffectiveRealmRoles возвращает эффективные realm-роли пользователя:
// прямые назначения, composite-наследование и роли групп.
func (c *Client) UserEffectiveRealmRoles(ctx context.Context, id string) ([]Role, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/users/"+url.PathEscape(id)+"/role-mappings/realm/composite", nil)
	if err != nil {
		return nil, err
	}

	var roles []Role
	if err := decodeResponse(resp, &roles); err != nil {
		return nil, fmt.Errorf("UserEffectiveRealmRoles %s: %w", id, err)
	}

	return roles, nil
}

// AddUserRealmRoles назначает пользователю realm-роли напрямую.
func (c *Client) AddUserRealmRoles(ctx context.Context, id string, roles []Role) error {
	resp, err := c.doAuthorized(ctx, http.MethodPost, "/users/"+url.PathEscape(id)+"/role-mappings/realm", roles)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("AddUserRealmRoles %s: %w", id, err)
	}

	return nil
}

// RemoveUserRealmRoles снимает с пользователя realm-роли.
func (c *Client) RemoveUserRealmRoles(ctx context.Context, id string, roles []Role) error {
	resp, err := c.doAuthorized(ctx, http.MethodDelete, "/users/"+url.PathEscape(id)+"/role-mappings/realm", roles)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("RemoveUserRealmRoles %s: %w", id, err)
	}

	return nil
}

// JoinGroup добавляет пользователя в группу.
func (c *Client) JoinGroup(ctx context.Context, userID, groupID string) error {
	resp, err := c.doAuthorized(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/groups/"+url.PathEscape(groupID), nil)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("JoinGroup %s -> %s: %w", userID, groupID, err)
	}

	return nil
}

// LeaveGroup удаляет пользователя из группы.
func (c *Client) LeaveGroup(ctx context.Context, userID, groupID string) error {
	resp, err := c.doAuthorized(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID)+"/groups/"+url.PathEscape(groupID), nil)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("LeaveGroup %s -> %s: %w", userID, groupID, err)
	}

	return nil
}
