// users.go — сервис управления пользователями.
// Источник истины — Keycloak; локальная таблица users — проекция,
// обновляемая best-effort после каждой мутации. Сбой синхронизации
// проекции логируется и учитывается в метрике, но не прерывает операцию.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sprintap/user-module/internal/domain/catalog"
	"github.com/sprintap/user-module/internal/domain/model"
	"github.com/sprintap/user-module/internal/keycloak"
	"github.com/sprintap/user-module/internal/repository"
)

// projectionSyncFailures — счётчик сбоев синхронизации локальной проекции.
var projectionSyncFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "um_projection_sync_failures_total",
	Help: "Количество сбоев синхронизации локальной проекции пользователей",
})

// UserService — сервис управления пользователями.
type UserService struct {
	kc       *keycloak.Client
	users    repository.UserRepository
	prefixes catalog.Prefixes
	logger   *slog.Logger
}

// NewUserService создаёт сервис управления пользователями.
func NewUserService(kc *keycloak.Client, users repository.UserRepository, prefixes catalog.Prefixes, logger *slog.Logger) *UserService {
	return &UserService{
		kc:       kc,
		users:    users,
		prefixes: prefixes,
		logger:   logger.With(slog.String("component", "user_service")),
	}
}

// CreateUserInput — данные создания пользователя.
// Username не принимается: им всегда становится email.
type CreateUserInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Enabled   bool
	RoleIDs   []string
	GroupIDs  []string
}

// UpdateUserInput — частичное обновление пользователя.
// nil-поля не изменяются.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Enabled   *bool
	Password  *string

	AddRoleIDs     []string
	RemoveRoleIDs  []string
	AddGroupIDs    []string
	RemoveGroupIDs []string
}

// ListUsersOptions — параметры выборки пользователей.
type ListUsersOptions struct {
	// Search — серверный поиск Keycloak по username/email/имени
	Search string
	// Offset, Limit — страница выборки
	Offset int
	Limit  int
	// RoleID — фильтр по эффективной роли (применяется к странице)
	RoleID string
	// SortBy — email, full_name или created_at; SortOrder — asc/desc
	SortBy    string
	SortOrder string
}

// CreateUser создаёт пользователя в Keycloak и локальную проекцию.
// Роли и группы валидируются ДО удалённого создания; шаги после
// создания (пароль, роли, группы, проекция) не откатываются.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*model.User, error) {
	if input.Email == "" {
		return nil, fmt.Errorf("%w: email обязателен", ErrValidation)
	}
	if input.Password == "" {
		return nil, fmt.Errorf("%w: пароль обязателен", ErrValidation)
	}

	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return nil, err
	}

	// Валидация ролей: должны существовать и быть вида «роль»
	roles, err := cat.ResolveIDsOfKind(input.RoleIDs, catalog.KindRole)
	if err != nil {
		return nil, mapCatalogError(err)
	}

	// Валидация групп: должны существовать
	for _, groupID := range input.GroupIDs {
		if _, err := s.kc.GetGroup(ctx, groupID); err != nil {
			return nil, mapIDPError(err)
		}
	}

	// Username всегда равен email
	kcUser := keycloak.User{
		Username:  input.Email,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Enabled:   input.Enabled,
	}
	userID, err := s.kc.CreateUser(ctx, kcUser)
	if err != nil {
		return nil, mapIDPError(err)
	}

	if err := s.kc.ResetPassword(ctx, userID, input.Password); err != nil {
		return nil, mapIDPError(err)
	}

	if len(roles) > 0 {
		if err := s.kc.AddUserRealmRoles(ctx, userID, toKeycloakRoles(roles)); err != nil {
			return nil, mapIDPError(err)
		}
	}

	for _, groupID := range input.GroupIDs {
		if err := s.kc.JoinGroup(ctx, userID, groupID); err != nil {
			return nil, mapIDPError(err)
		}
	}

	// Проекция — best-effort, сбой не прерывает операцию
	s.syncProjectionInsert(ctx, userID, input.Email, fullName(input.FirstName, input.LastName), input.Enabled)

	s.logger.Info("Пользователь создан",
		slog.String("user_id", userID),
		slog.String("email", input.Email),
	)

	created, err := s.kc.GetUser(ctx, userID)
	if err != nil {
		return nil, mapIDPError(err)
	}
	return s.enrichUser(ctx, created, cat), nil
}

// UpdateUser частично обновляет пользователя.
// Порядок шагов: атрибуты, пароль, роли (добавление, затем исключение),
// группы (добавление, затем исключение), проекция. Шаги не откатываются.
// Исключаемые роли, в отличие от добавляемых, не проверяются на вид.
func (s *UserService) UpdateUser(ctx context.Context, userID string, input UpdateUserInput) (*model.User, error) {
	existing, err := s.kc.GetUser(ctx, userID)
	if err != nil {
		return nil, mapIDPError(err)
	}

	// Частичное обновление атрибутов
	updated := *existing
	if input.FirstName != nil {
		updated.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		updated.LastName = *input.LastName
	}
	if input.Enabled != nil {
		updated.Enabled = *input.Enabled
	}
	if err := s.kc.UpdateUser(ctx, userID, updated); err != nil {
		return nil, mapIDPError(err)
	}

	if input.Password != nil {
		if err := s.kc.ResetPassword(ctx, userID, *input.Password); err != nil {
			return nil, mapIDPError(err)
		}
	}

	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return nil, err
	}

	if len(input.AddRoleIDs) > 0 {
		add, err := cat.ResolveIDsOfKind(input.AddRoleIDs, catalog.KindRole)
		if err != nil {
			return nil, mapCatalogError(err)
		}
		if err := s.kc.AddUserRealmRoles(ctx, userID, toKeycloakRoles(add)); err != nil {
			return nil, mapIDPError(err)
		}
	}

	if len(input.RemoveRoleIDs) > 0 {
		remove, err := cat.ResolveIDs(input.RemoveRoleIDs)
		if err != nil {
			return nil, mapCatalogError(err)
		}
		if err := s.kc.RemoveUserRealmRoles(ctx, userID, toKeycloakRoles(remove)); err != nil {
			return nil, mapIDPError(err)
		}
	}

	for _, groupID := range input.AddGroupIDs {
		if err := s.kc.JoinGroup(ctx, userID, groupID); err != nil {
			return nil, mapIDPError(err)
		}
	}

	for _, groupID := range input.RemoveGroupIDs {
		if err := s.kc.LeaveGroup(ctx, userID, groupID); err != nil {
			return nil, mapIDPError(err)
		}
	}

	// Проекция: при обновлении меняется только флаг активности.
	// Отсутствующая запись создаётся заново (самовосстановление).
	s.syncProjectionActive(ctx, &updated)

	s.logger.Info("Пользователь обновлён", slog.String("user_id", userID))

	return s.enrichUser(ctx, &updated, cat), nil
}

// DeleteUser удаляет пользователя в Keycloak и деактивирует проекцию.
// Запись проекции не удаляется физически — только переход active → inactive.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.kc.DeleteUser(ctx, userID); err != nil {
		return mapIDPError(err)
	}

	if err := s.users.SetActive(ctx, userID, false); err != nil {
		s.recordSyncFailure("deactivate", userID, err)
	}

	s.logger.Info("Пользователь удалён", slog.String("user_id", userID))
	return nil
}

// GetUser возвращает пользователя, обогащённого ролями и группами.
func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	kcUser, err := s.kc.GetUser(ctx, userID)
	if err != nil {
		return nil, mapIDPError(err)
	}

	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return nil, err
	}

	return s.enrichUser(ctx, kcUser, cat), nil
}

// ListUsers возвращает страницу пользователей с общим количеством.
// Поиск выполняется на стороне Keycloak; фильтр по роли и сортировка
// применяются к полученной странице.
func (s *UserService) ListUsers(ctx context.Context, opts ListUsersOptions) ([]*model.User, int, error) {
	kcUsers, err := s.kc.ListUsers(ctx, opts.Search, opts.Offset, opts.Limit)
	if err != nil {
		return nil, 0, mapIDPError(err)
	}

	total, err := s.kc.CountUsers(ctx, opts.Search)
	if err != nil {
		return nil, 0, mapIDPError(err)
	}

	cat, err := fetchCatalog(ctx, s.kc, s.prefixes)
	if err != nil {
		return nil, 0, err
	}

	users := make([]*model.User, 0, len(kcUsers))
	for i := range kcUsers {
		users = append(users, s.enrichUser(ctx, &kcUsers[i], cat))
	}

	if opts.RoleID != "" {
		users = filterByRole(users, opts.RoleID)
	}
	sortUsers(users, opts.SortBy, opts.SortOrder)

	return users, total, nil
}

// enrichUser обогащает пользователя эффективными ролями и группами.
// При ошибке обогащения возвращает базовые данные без ролей и групп.
func (s *UserService) enrichUser(ctx context.Context, kcUser *keycloak.User, cat *catalog.Catalog) *model.User {
	user := &model.User{
		ID:        kcUser.ID,
		Username:  kcUser.Username,
		Email:     kcUser.Email,
		FirstName: kcUser.FirstName,
		LastName:  kcUser.LastName,
		Enabled:   kcUser.Enabled,
		CreatedAt: kcUser.CreatedAtTime(),
	}

	effective, err := s.kc.UserEffectiveRealmRoles(ctx, kcUser.ID)
	if err != nil {
		s.logger.Warn("Ошибка получения ролей пользователя",
			slog.String("user_id", kcUser.ID),
			slog.String("error", err.Error()),
		)
		return user
	}

	// Из эффективных назначений оставляем только роли каталога
	for _, m := range effective {
		if e, ok := cat.ByName(m.Name); ok && e.Kind == catalog.KindRole {
			user.Roles = append(user.Roles, model.CatalogRef{
				ID:          e.ID,
				Name:        e.DisplayName,
				Description: e.Description,
			})
		}
	}

	groups, err := s.kc.UserGroups(ctx, kcUser.ID)
	if err != nil {
		s.logger.Warn("Ошибка получения групп пользователя",
			slog.String("user_id", kcUser.ID),
			slog.String("error", err.Error()),
		)
		return user
	}
	for _, g := range groups {
		user.Groups = append(user.Groups, model.GroupRef{ID: g.ID, Name: g.Name})
	}

	return user
}

// --- Синхронизация проекции ---

// syncProjectionInsert создаёт запись проекции после создания пользователя.
func (s *UserService) syncProjectionInsert(ctx context.Context, userID, email, name string, active bool) {
	projection := &model.UserProjection{
		UserID:   userID,
		Username: email,
		Email:    email,
		FullName: name,
		IsActive: active,
	}
	if err := s.users.Insert(ctx, projection); err != nil {
		s.recordSyncFailure("insert", userID, err)
	}
}

// syncProjectionActive обновляет флаг активности проекции.
// Отсутствующая запись создаётся заново по данным Keycloak.
func (s *UserService) syncProjectionActive(ctx context.Context, kcUser *keycloak.User) {
	err := s.users.SetActive(ctx, kcUser.ID, kcUser.Enabled)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Проекция пользователя отсутствует, создаём заново",
			slog.String("user_id", kcUser.ID),
		)
		s.syncProjectionInsert(ctx, kcUser.ID, kcUser.Email, kcUser.FullName(), kcUser.Enabled)
		return
	}
	if err != nil {
		s.recordSyncFailure("update", kcUser.ID, err)
	}
}

// recordSyncFailure логирует сбой синхронизации проекции и учитывает
// его в метрике. Ошибка дальше не распространяется: операция в Keycloak
// уже выполнена, проекция догонит её при следующей мутации.
func (s *UserService) recordSyncFailure(op, userID string, err error) {
	projectionSyncFailures.Inc()
	s.logger.Error("Сбой синхронизации проекции пользователя",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
}

// --- Вспомогательные функции ---

// fullName собирает полное имя из имени и фамилии.
func fullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// filterByRole оставляет пользователей, имеющих роль с данным id.
func filterByRole(users []*model.User, roleID string) []*model.User {
	filtered := make([]*model.User, 0, len(users))
	for _, u := range users {
		for _, r := range u.Roles {
			if r.ID == roleID {
				filtered = append(filtered, u)
				break
			}
		}
	}
	return filtered
}

// sortUsers сортирует страницу пользователей по указанному полю.
func sortUsers(users []*model.User, sortBy, sortOrder string) {
	if sortBy == "" {
		return
	}

	less := func(a, b *model.User) bool {
		switch sortBy {
		case "email":
			return a.Email < b.Email
		case "full_name":
			return fullName(a.FirstName, a.LastName) < fullName(b.FirstName, b.LastName)
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return false
		}
	}

	sort.SliceStable(users, func(i, j int) bool {
		if strings.EqualFold(sortOrder, "desc") {
			return less(users[j], users[i])
		}
		return less(users[i], users[j])
	})
}
