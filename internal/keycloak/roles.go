// roles.go — операции над realm-ролями Keycloak.
// Admin REST API адресует роли по имени, не по ID.
package keycloak

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListRoles возвращает полный список realm-ролей.
// briefRepresentation=false — чтобы в ответе присутствовали description и composite.
func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/roles?briefRepresentation=false&max=-1", nil)
	if err != nil {
		return nil, err
	}

	var roles []Role
	if err := decodeResponse(resp, &roles); err != nil {
		return nil, fmt.Errorf("ListRoles: %w", err)
	}

	return roles, nil
}

// GetRole возвращает realm-роль по имени.
func (c *Client) GetRole(ctx context.Context, name string) (*Role, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/roles/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}

	var role Role
	if err := decodeResponse(resp, &role); err != nil {
		return nil, fmt.Errorf("GetRole %s: %w", name, err)
	}

	return &role, nil
}

// CreateRole создаёт realm-роль.
func (c *Client) CreateRole(ctx context.Context, role Role) error {
	resp, err := c.doAuthorized(ctx, http.MethodPost, "/roles", role)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusCreated); err != nil {
		return fmt.Errorf("CreateRole %s: %w", role.Name, err)
	}

	return nil
}

// UpdateRole обновляет realm-роль по имени.
func (c *Client) UpdateRole(ctx context.Context, name string, role Role) error {
	resp, err := c.doAuthorized(ctx, http.MethodPut, "/roles/"+url.PathEscape(name), role)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("UpdateRole %s: %w", name, err)
	}

	return nil
}

// DeleteRole удаляет realm-роль по имени.
func (c *Client) DeleteRole(ctx context.Context, name string) error {
	resp, err := c.doAuthorized(ctx, http.MethodDelete, "/roles/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("DeleteRole %s: %w", name, err)
	}

	return nil
}

// GetComposites возвращает состав composite-роли.
func (c *Client) GetComposites(ctx context.Context, name string) ([]Role, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/roles/"+url.PathEscape(name)+"/composites", nil)
	if err != nil {
		return nil, err
	}

	var roles []Role
	if err := decodeResponse(resp, &roles); err != nil {
		return nil, fmt.Errorf("GetComposites %s: %w", name, err)
	}

	return roles, nil
}

// AddComposites добавляет роли в состав composite-роли.
func (c *Client) AddComposites(ctx context.Context, name string, roles []Role) error {
	resp, err := c.doAuthorized(ctx, http.MethodPost, "/roles/"+url.PathEscape(name)+"/composites", roles)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("AddComposites %s: %w", name, err)
	}

	return nil
}

// RemoveComposites исключает роли из состава composite-роли.
func (c *Client) RemoveComposites(ctx context.Context, name string, roles []Role) error {
	resp, err := c.doAuthorized(ctx, http.MethodDelete, "/roles/"+url.PathEscape(name)+"/composites", roles)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("RemoveComposites %s: %w", name, err)
	}

	return nil
}

// RoleUserMembers возвращает пользователей с прямым назначением роли.
// Composite-наследование в выдачу не входит.
func (c *Client) RoleUserMembers(ctx context.Context, name string) ([]User, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/roles/"+url.PathEscape(name)+"/users?max=-1", nil)
	if err != nil {
		return nil, err
	}

	var users []User
	if err := decodeResponse(resp, &users); err != nil {
		return nil, fmt.Errorf("RoleUserMembers %s: %w", name, err)
	}

	return users, nil
}
