// catalog.go — общие помощники сервисного слоя: загрузка каталога
// ролей и привилегий из Keycloak и маппинг ошибок нижних слоёв.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sprintap/user-module/internal/domain/catalog"
	"github.com/sprintap/user-module/internal/domain/model"
	"github.com/sprintap/user-module/internal/keycloak"
)

// fetchCatalog загружает полный список realm-ролей и строит каталог.
// Каталог загружается один раз на логическую операцию и передаётся
// явно через все её шаги.
func fetchCatalog(ctx context.Context, kc *keycloak.Client, prefixes catalog.Prefixes) (*catalog.Catalog, error) {
	roles, err := kc.ListRoles(ctx)
	if err != nil {
		return nil, mapIDPError(err)
	}

	items := make([]catalog.Item, 0, len(roles))
	for _, r := range roles {
		items = append(items, catalog.Item{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Composite:   r.Composite,
		})
	}

	return catalog.New(prefixes, items), nil
}

// mapIDPError преобразует ошибку Keycloak-клиента в ошибку сервисного слоя.
// 404 — NotFound, 409 — InvalidOperation, остальное — IdP недоступен.
func mapIDPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keycloak.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	case errors.Is(err, keycloak.ErrConflict):
		return fmt.Errorf("%w: %s", ErrInvalidOperation, err)
	default:
		return fmt.Errorf("%w: %s", ErrIDPUnavailable, err)
	}
}

// mapCatalogError преобразует ошибку разрешения каталога.
func mapCatalogError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, catalog.ErrEntryNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	case errors.Is(err, catalog.ErrKindMismatch):
		return fmt.Errorf("%w: %s", ErrInvalidOperation, err)
	default:
		return err
	}
}

// toKeycloakRoles конвертирует записи каталога в представления ролей
// для вызовов role-mapping API.
func toKeycloakRoles(entries []catalog.Entry) []keycloak.Role {
	roles := make([]keycloak.Role, len(entries))
	for i, e := range entries {
		roles[i] = keycloak.Role{ID: e.ID, Name: e.Name}
	}
	return roles
}

// toCatalogRefs конвертирует записи каталога в ссылки для ответов API.
// Имена отдаются без префикса вида.
func toCatalogRefs(entries []catalog.Entry) []model.CatalogRef {
	refs := make([]model.CatalogRef, len(entries))
	for i, e := range entries {
		refs[i] = model.CatalogRef{
			ID:          e.ID,
			Name:        e.DisplayName,
			Description: e.Description,
		}
	}
	return refs
}
