// groups.go — сервис управления группами Keycloak.
// Группы связывают пользователей с ролями и привилегиями через
// realm-level role mappings.
package service

import (
	"context"
	"log/slog"

	"github.com/sprintap/user-module/internal/domain/catalog"
	"github.com/sprintap/user-module/internal/domain/model"
	"github.com/sprintap/user-module/internal/keycloak"
)

// GroupService — сервис управления группами.
type GroupService struct {
	kc       *keycloak.Client
	prefixes catalog.Prefixes
	logger   *slog.Logger
}

// NewGroupService создаёт сервис управления группами.
func NewGroupService(kc *keycloak.Client, prefixes catalog.Prefixes, logger *slog.Logger) *GroupService {
	return &GroupService{
		kc:       kc,
		prefixes: prefixes,
		logger:   logger.With(slog.String("component", "group_service")),
	}
}

// CreateGroup создаёт группу и последовательно добавляет в неё пользователей.
// Несуществующий пользователь прерывает операцию; группа и уже выполненные
// добавления не откатываются.
func (s *GroupService) CreateGroup(ctx context.Context, name string, userIDs []string) (string, error) {
	groupID, err := s.kc.CreateGroup(ctx, name)
	if err != nil {
		return "", mapIDPError(err)
	}

	for _, userID := range userIDs {
		if err := s.kc.JoinGroup(ctx, userID, groupID); err != nil {
			return "", mapIDPError(err)
		}
	}

	s.logger.Info("Группа создана",
		slog.String("group", name),
		slog.String("group_id", groupID),
		slog.Int("members", len(userIDs)),
	)

	return groupID, nil
}

// DeleteGroup удаляет группу безусловно: наличие участников,
// ролей и привилегий удалению не препятствует.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID string) error {
	if err := s.kc.DeleteGroup(ctx, groupID); err != nil {
		return mapIDPError(err)
	}

	s.logger.Info("Группа удалена", slog.String("group_id", groupID))
	return nil
}

// GetAllGroups возвращает список групп с количеством участников.
func (s *GroupService) GetAllGroups(ctx context.Context) ([]model.GroupSummary, error) {
	groups, err := s.kc.ListGroups(ctx)
	if err != nil {
		return nil, mapIDPError(err)
	}

	summaries := make([]model.GroupSummary, 0, len(groups))
	for _, g := range groups {
		members, err := s.kc.GroupMembers(ctx, g.ID)
		if err != nil {
			// Количество участников — обогащение; ошибка не роняет список
			s.logger.Warn("Ошибка подсчёта участников группы",
				slog.String("group_id", g.ID),
				slog.String("error", err.Error()),
			)
		}
		summaries = append(summaries, model.GroupSummary{
			ID:          g.ID,
			Name:        g.Name,
			MemberCount: len(members),
		})
	}

	return summaries, nil
}

// GetRolesAndPrivilegesForGroup возвращает роли и привилегии группы,
// разделённые по виду. Назначения без известного префикса отбрасываются.
func (s *GroupService) GetRolesAndPrivilegesForGroup(ctx context.Context, groupID string) (roles, privileges []model.CatalogRef, err error) {
	mappings, err := s.kc.GroupRealmRoles(ctx, groupID)
	if err != nil {
		return nil, nil, mapIDPError(err)
	}

	// Классифицируем назначения по префиксам без обращения к полному каталогу
	items := make([]catalog.Item, 0, len(mappings))
	for _, m := range mappings {
		items = append(items, catalog.Item{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Composite:   m.Composite,
		})
	}
	mapped := catalog.New(s.prefixes, items)

	return toCatalogRefs(mapped.Roles()), toCatalogRefs(mapped.Privileges()), nil
}

// GetUsersInGroup возвращает участников группы.
func (s *GroupService) GetUsersInGroup(ctx context.Context, groupID string) ([]model.GroupMember, error) {
	users, err := s.kc.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, mapIDPError(err)
	}

	members := make([]model.GroupMember, 0, len(users))
	for _, u := range users {
		members = append(members, model.GroupMember{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			FullName: u.FullName(),
			Enabled:  u.Enabled,
		})
	}

	return members, nil
}

// UpdateGroupUsers добавляет и исключает участников группы.
// Сначала добавления, затем исключения; по одному, fail-fast,
// без компенсации уже выполненных шагов.
func (s *GroupService) UpdateGroupUsers(ctx context.Context, groupID string, addUserIDs, removeUserIDs []string) error {
	// Существование группы проверяем до первой мутации
	if _, err := s.kc.GetGroup(ctx, groupID); err != nil {
		return mapIDPError(err)
	}

	for _, userID := range addUserIDs {
		if err := s.kc.JoinGroup(ctx, userID, groupID); err != nil {
			return mapIDPError(err)
		}
	}

	for _, userID := range removeUserIDs {
		if err := s.kc.LeaveGroup(ctx, userID, groupID); err != nil {
			return mapIDPError(err)
		}
	}

	s.logger.Info("Состав группы обновлён",
		slog.String("group_id", groupID),
		slog.Int("added", len(addUserIDs)),
		slog.Int("removed", len(removeUserIDs)),
	)

	return nil
}

// UpdateGroupRolesAndPrivileges обновляет назначения группы четырьмя
// пакетами в фиксированном порядке: добавление ролей, исключение ролей,
// добавление привилегий, исключение привилегий. Каждый пакет разрешается
// целиком до своего удалённого вызова; выполненные пакеты не откатываются.
// Вид проверяется только у добавляемых привилегий.
func (s *GroupService) UpdateGroupRolesAndPrivileges(ctx context.Context, groupID string, roleAdd, roleRemove, privAdd, privRemove []string) error {
	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return err
	}

	if len(roleAdd) > 0 {
		entries, err := cat.ResolveIDs(roleAdd)
		if err != nil {
			return mapCatalogError(err)
		}
		if err := s.kc.AddGroupRealmRoles(ctx, groupID, toKeycloakRoles(entries)); err != nil {
			return mapIDPError(err)
		}
	}

	if len(roleRemove) > 0 {
		entries, err := cat.ResolveIDs(roleRemove)
		if err != nil {
			return mapCatalogError(err)
		}
		if err := s.kc.RemoveGroupRealmRoles(ctx, groupID, toKeycloakRoles(entries)); err != nil {
			return mapIDPError(err)
		}
	}

	if len(privAdd) > 0 {
		entries, err := cat.ResolveIDsOfKind(privAdd, catalog.KindPrivilege)
		if err != nil {
			return mapCatalogError(err)
		}
		if err := s.kc.AddGroupRealmRoles(ctx, groupID, toKeycloakRoles(entries)); err != nil {
			return mapIDPError(err)
		}
	}

	if len(privRemove) > 0 {
		entries, err := cat.ResolveIDs(privRemove)
		if err != nil {
			return mapCatalogError(err)
		}
		if err := s.kc.RemoveGroupRealmRoles(ctx, groupID, toKeycloakRoles(entries)); err != nil {
			return mapIDPError(err)
		}
	}

	s.logger.Info("Назначения группы обновлены", slog.String("group_id", groupID))
	return nil
}
