// Пакет service — бизнес-логика User Module.
// roles.go — сервис управления ролями и привилегиями каталога.
// Роли и привилегии — это realm-роли Keycloak, различаемые префиксом имени;
// привилегии входят в состав ролей через composite-механизм.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sprintap/user-module/internal/domain/catalog"
	"github.com/sprintap/user-module/internal/domain/model"
	"github.com/sprintap/user-module/internal/keycloak"
)

// RoleService — сервис управления ролями и привилегиями.
// Привилегии через этот сервис не создаются и не удаляются —
// они провижинятся в realm отдельно.
type RoleService struct {
	kc       *keycloak.Client
	prefixes catalog.Prefixes
	logger   *slog.Logger
}

// NewRoleService создаёт сервис управления ролями.
func NewRoleService(kc *keycloak.Client, prefixes catalog.Prefixes, logger *slog.Logger) *RoleService {
	return &RoleService{
		kc:       kc,
		prefixes: prefixes,
		logger:   logger.With(slog.String("component", "role_service")),
	}
}

// CreateRole создаёт роль каталога.
// Имя нормализуется (префикс роли добавляется, если отсутствует).
// Все привилегии валидируются ДО удалённого создания: один неизвестный
// или неверного вида идентификатор — и роль не создаётся вовсе.
func (s *RoleService) CreateRole(ctx context.Context, name, description string, privilegeIDs []string) error {
	fullName := s.prefixes.Normalize(name)

	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return err
	}

	// Дубликат имени — недопустимая операция
	if _, exists := cat.ByName(fullName); exists {
		return fmt.Errorf("%w: роль %s уже существует", ErrInvalidOperation, fullName)
	}

	// Валидация привилегий до создания роли
	privileges, err := cat.ResolveIDsOfKind(privilegeIDs, catalog.KindPrivilege)
	if err != nil {
		return mapCatalogError(err)
	}

	// Роль composite только при наличии привилегий
	role := keycloak.Role{
		Name:        fullName,
		Description: description,
		Composite:   len(privileges) > 0,
	}
	if err := s.kc.CreateRole(ctx, role); err != nil {
		return mapIDPError(err)
	}

	if len(privileges) > 0 {
		if err := s.kc.AddComposites(ctx, fullName, toKeycloakRoles(privileges)); err != nil {
			return mapIDPError(err)
		}
	}

	s.logger.Info("Роль создана",
		slog.String("role", fullName),
		slog.Int("privileges", len(privileges)),
	)

	return nil
}

// DeleteRole удаляет роль каталога по идентификатору.
// Привилегию удалить нельзя. Роль с прямыми назначениями пользователям
// считается используемой и не удаляется.
func (s *RoleService) DeleteRole(ctx context.Context, roleID string) error {
	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return err
	}

	entry, ok := cat.ByID(roleID)
	if !ok {
		return fmt.Errorf("%w: роль %s", ErrNotFound, roleID)
	}
	if entry.Kind != catalog.KindRole {
		return fmt.Errorf("%w: %s не является ролью", ErrInvalidOperation, entry.Name)
	}

	// Прямые назначения пользователям; наследование через группы не учитывается
	members, err := s.kc.RoleUserMembers(ctx, entry.Name)
	if err != nil {
		return mapIDPError(err)
	}
	if len(members) > 0 {
		return fmt.Errorf("%w: роль %s назначена %d пользователям", ErrInUse, entry.Name, len(members))
	}

	if err := s.kc.DeleteRole(ctx, entry.Name); err != nil {
		return mapIDPError(err)
	}

	s.logger.Info("Роль удалена", slog.String("role", entry.Name))
	return nil
}

// UpdateRole обновляет роль: описание, затем добавление привилегий,
// затем исключение — в этом порядке, без отката выполненных шагов.
// Добавляемые привилегии проверяются на вид; исключаемые — нет
// (исключение работает и для записей, попавших в состав вне каталога).
func (s *RoleService) UpdateRole(ctx context.Context, roleID string, description *string, addPrivilegeIDs, removePrivilegeIDs []string) error {
	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return err
	}

	entry, ok := cat.ByID(roleID)
	if !ok {
		return fmt.Errorf("%w: роль %s", ErrNotFound, roleID)
	}
	if entry.Kind != catalog.KindRole {
		return fmt.Errorf("%w: %s не является ролью", ErrInvalidOperation, entry.Name)
	}

	// Шаг 1: описание
	if description != nil {
		role := keycloak.Role{
			Name:        entry.Name,
			Description: *description,
			Composite:   entry.Composite,
		}
		if err := s.kc.UpdateRole(ctx, entry.Name, role); err != nil {
			return mapIDPError(err)
		}
	}

	// Шаг 2: добавление привилегий (с проверкой вида)
	if len(addPrivilegeIDs) > 0 {
		add, err := cat.ResolveIDsOfKind(addPrivilegeIDs, catalog.KindPrivilege)
		if err != nil {
			return mapCatalogError(err)
		}
		if err := s.kc.AddComposites(ctx, entry.Name, toKeycloakRoles(add)); err != nil {
			return mapIDPError(err)
		}
	}

	// Шаг 3: исключение привилегий (без проверки вида)
	if len(removePrivilegeIDs) > 0 {
		remove, err := cat.ResolveIDs(removePrivilegeIDs)
		if err != nil {
			return mapCatalogError(err)
		}
		if err := s.kc.RemoveComposites(ctx, entry.Name, toKeycloakRoles(remove)); err != nil {
			return mapIDPError(err)
		}
	}

	s.logger.Info("Роль обновлена",
		slog.String("role", entry.Name),
		slog.Int("added", len(addPrivilegeIDs)),
		slog.Int("removed", len(removePrivilegeIDs)),
	)

	return nil
}

// GetAllRoles возвращает все роли каталога.
func (s *RoleService) GetAllRoles(ctx context.Context) ([]model.CatalogRef, error) {
	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return nil, err
	}
	return toCatalogRefs(cat.Roles()), nil
}

// GetAllPrivileges возвращает все привилегии каталога.
func (s *RoleService) GetAllPrivileges(ctx context.Context) ([]model.CatalogRef, error) {
	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return nil, err
	}
	return toCatalogRefs(cat.Privileges()), nil
}

// GetPrivilegesForRole возвращает привилегии из состава роли.
// Записи состава, не являющиеся привилегиями, отфильтровываются.
func (s *RoleService) GetPrivilegesForRole(ctx context.Context, roleID string) ([]model.CatalogRef, error) {
	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return nil, err
	}

	entry, ok := cat.ByID(roleID)
	if !ok {
		return nil, fmt.Errorf("%w: роль %s", ErrNotFound, roleID)
	}
	if entry.Kind != catalog.KindRole {
		return nil, fmt.Errorf("%w: %s не является ролью", ErrInvalidOperation, entry.Name)
	}

	composites, err := s.kc.GetComposites(ctx, entry.Name)
	if err != nil {
		return nil, mapIDPError(err)
	}

	var privileges []catalog.Entry
	for _, c := range composites {
		if e, ok := cat.ByName(c.Name); ok && e.Kind == catalog.KindPrivilege {
			privileges = append(privileges, e)
		}
	}

	return toCatalogRefs(privileges), nil
}
