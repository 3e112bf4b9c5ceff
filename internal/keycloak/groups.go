// groups.go — операции над группами Keycloak и их realm-role mappings.
package keycloak

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListGroups возвращает список групп верхнего уровня realm.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/groups?max=-1", nil)
	if err != nil {
		return nil, err
	}

	var groups []Group
	if err := decodeResponse(resp, &groups); err != nil {
		return nil, fmt.Errorf("ListGroups: %w", err)
	}

	return groups, nil
}

// GetGroup возвращает группу по ID.
func (c *Client) GetGroup(ctx context.Context, id string) (*Group, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/groups/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var group Group
	if err := decodeResponse(resp, &group); err != nil {
		return nil, fmt.Errorf("GetGroup %s: %w", id, err)
	}

	return &group, nil
}

// CreateGroup создаёт группу верхнего уровня и возвращает её ID.
func (c *Client) CreateGroup(ctx context.Context, name string) (string, error) {
	resp, err := c.doAuthorized(ctx, http.MethodPost, "/groups", Group{Name: name})
	if err != nil {
		return "", err
	}

	id, err := createdID(resp)
	if err != nil {
		return "", fmt.Errorf("CreateGroup %s: %w", name, err)
	}

	return id, nil
}

// DeleteGroup удаляет группу по ID.
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	resp, err := c.doAuthorized(ctx, http.MethodDelete, "/groups/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("DeleteGroup %s: %w", id, err)
	}

	return nil
}

// GroupMembers возвращает участников группы.
func (c *Client) GroupMembers(ctx context.Context, id string) ([]User, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/groups/"+url.PathEscape(id)+"/members?max=-1", nil)
	if err != nil {
		return nil, err
	}

	var users []User
	if err := decodeResponse(resp, &users); err != nil {
		return nil, fmt.Errorf("GroupMembers %s: %w", id, err)
	}

	return users, nil
}

// GroupRealmRoles возвращает realm-роли, назначенные группе напрямую.
func (c *Client) GroupRealmRoles(ctx context.Context, id string) ([]Role, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/groups/"+url.PathEscape(id)+"/role-mappings/realm", nil)
	if err != nil {
		return nil, err
	}

	var roles []Role
	if err := decodeResponse(resp, &roles); err != nil {
		return nil, fmt.Errorf("GroupRealmRoles %s: %w", id, err)
	}

	return roles, nil
}

// AddGroupRealmRoles назначает группе realm-роли.
func (c *Client) AddGroupRealmRoles(ctx context.Context, id string, roles []Role) error {
	resp, err := c.doAuthorized(ctx, http.MethodPost, "/groups/"+url.PathEscape(id)+"/role-mappings/realm", roles)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("AddGroupRealmRoles %s: %w", id, err)
	}

	return nil
}

// RemoveGroupRealmRoles снимает с группы realm-роли.
func (c *Client) RemoveGroupRealmRoles(ctx context.Context, id string, roles []Role) error {
	resp, err := c.doAuthorized(ctx, http.MethodDelete, "/groups/"+url.PathEscape(id)+"/role-mappings/realm", roles)
	if err != nil {
		return err
	}

	if err := checkResponse(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("RemoveGroupRealmRoles %s: %w", id, err)
	}

	return nil
}
