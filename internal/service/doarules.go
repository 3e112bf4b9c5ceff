// doarules.go — сервис правил делегирования полномочий (DOA).
// Правила хранятся локально в PostgreSQL и привязаны к пользователям
// Keycloak через user ID.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sprintap/user-module/internal/domain/model"
	"github.com/sprintap/user-module/internal/repository"
)

// DoaRuleService — сервис правил делегирования.
type DoaRuleService struct {
	rules  repository.DoaRuleRepository
	logger *slog.Logger
}

// NewDoaRuleService создаёт сервис правил делегирования.
func NewDoaRuleService(rules repository.DoaRuleRepository, logger *slog.Logger) *DoaRuleService {
	return &DoaRuleService{
		rules:  rules,
		logger: logger.With(slog.String("component", "doa_rule_service")),
	}
}

// validateRule проверяет обязательные поля правила.
func validateRule(rule *model.DoaRule) error {
	if _, err := uuid.Parse(rule.UserID); err != nil {
		return fmt.Errorf("%w: некорректный user_id %q", ErrValidation, rule.UserID)
	}
	if rule.Entity == "" {
		return fmt.Errorf("%w: entity обязателен", ErrValidation)
	}
	if rule.ApprovalLevel < 1 {
		return fmt.Errorf("%w: approval_level должен быть не меньше 1", ErrValidation)
	}
	if len(rule.Currency) != 3 {
		return fmt.Errorf("%w: currency должна быть кодом ISO 4217 (3 символа)", ErrValidation)
	}
	if rule.MaxAmount == "" {
		return fmt.Errorf("%w: max_amount обязателен", ErrValidation)
	}
	return nil
}

// Create создаёт правило делегирования.
func (s *DoaRuleService) Create(ctx context.Context, rule *model.DoaRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	if rule.MinAmount == "" {
		rule.MinAmount = "0"
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return fmt.Errorf("создание правила делегирования: %w", err)
	}

	s.logger.Info("Правило делегирования создано",
		slog.String("rule_id", rule.ID),
		slog.String("user_id", rule.UserID),
		slog.String("entity", rule.Entity),
	)
	return nil
}

// GetByID возвращает правило по идентификатору.
func (s *DoaRuleService) GetByID(ctx context.Context, id string) (*model.DoaRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: правило %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("получение правила делегирования: %w", err)
	}
	return rule, nil
}

// List возвращает страницу правил по фильтру и общее количество.
func (s *DoaRuleService) List(ctx context.Context, filter model.DoaRuleFilter, limit, offset int, sortBy, sortOrder string) ([]*model.DoaRule, int, error) {
	rules, total, err := s.rules.List(ctx, filter, limit, offset, sortBy, sortOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("выборка правил делегирования: %w", err)
	}
	return rules, total, nil
}

// Update обновляет поля правила.
func (s *DoaRuleService) Update(ctx context.Context, rule *model.DoaRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: правило %s", ErrNotFound, rule.ID)
		}
		return fmt.Errorf("обновление правила делегирования: %w", err)
	}

	s.logger.Info("Правило делегирования обновлено", slog.String("rule_id", rule.ID))
	return nil
}

// Delete помечает правило удалённым (мягкое удаление).
func (s *DoaRuleService) Delete(ctx context.Context, id string) error {
	if err := s.rules.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: правило %s", ErrNotFound, id)
		}
		return fmt.Errorf("удаление правила делегирования: %w", err)
	}

	s.logger.Info("Правило делегирования удалено", slog.String("rule_id", id))
	return nil
}

// SetEnabled включает или выключает правило.
func (s *DoaRuleService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if err := s.rules.SetEnabled(ctx, id, enabled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: правило %s", ErrNotFound, id)
		}
		return fmt.Errorf("переключение правила делегирования: %w", err)
	}

	s.logger.Info("Статус правила делегирования изменён",
		slog.String("rule_id", id),
		slog.Bool("enabled", enabled),
	)
	return nil
}
