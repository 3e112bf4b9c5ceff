package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sprintap/user-module/internal/domain/model"
)

// DoaRuleRepository — интерфейс CRUD для таблицы doa_rules.
type DoaRuleRepository interface {
	// Create создаёт правило делегирования.
	Create(ctx context.Context, rule *model.DoaRule) error
	// GetByID возвращает активное правило по UUID.
	GetByID(ctx context.Context, id string) (*model.DoaRule, error)
	// List возвращает страницу правил по фильтру и общее количество совпадений.
	List(ctx context.Context, filter model.DoaRuleFilter, limit, offset int, sortBy, sortOrder string) ([]*model.DoaRule, int, error)
	// Update обновляет поля правила.
	Update(ctx context.Context, rule *model.DoaRule) error
	// SoftDelete помечает правило удалённым (is_active = false).
	SoftDelete(ctx context.Context, id string) error
	// SetEnabled включает или выключает правило.
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

// doaRuleRepo — реализация DoaRuleRepository.
type doaRuleRepo struct {
	db DBTX
}

// NewDoaRuleRepository создаёт репозиторий правил делегирования.
func NewDoaRuleRepository(db DBTX) DoaRuleRepository {
	return &doaRuleRepo{db: db}
}

// doaColumns — столбцы doa_rules с присоединённой проекцией пользователя.
const doaColumns = `
	d.id, d.user_id, d.entity, d.approval_level, d.min_amount::text, d.max_amount::text,
	d.currency, d.vendor_code, d.po_number, d.classification,
	d.enabled, d.is_active, d.created_by_user_id, d.created_at, d.updated_at,
	COALESCE(u.email, ''), COALESCE(u.full_name, '')`

// doaSortColumns — разрешённые столбцы сортировки.
// Значения из запроса сверяются с этим списком, в SQL попадает только whitelist.
var doaSortColumns = map[string]string{
	"created_at":     "d.created_at",
	"updated_at":     "d.updated_at",
	"entity":         "d.entity",
	"approval_level": "d.approval_level",
	"max_amount":     "d.max_amount",
	"currency":       "d.currency",
}

func (r *doaRuleRepo) Create(ctx context.Context, rule *model.DoaRule) error {
	query := `
		INSERT INTO doa_rules (
			user_id, entity, approval_level, min_amount, max_amount, currency,
			vendor_code, po_number, classification, enabled, created_by_user_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, is_active, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		rule.UserID, rule.Entity, rule.ApprovalLevel, rule.MinAmount, rule.MaxAmount,
		rule.Currency, rule.VendorCode, rule.PONumber, rule.Classification,
		rule.Enabled, rule.CreatedByUserID,
	).Scan(&rule.ID, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания правила делегирования: %w", err)
	}
	return nil
}

func (r *doaRuleRepo) GetByID(ctx context.Context, id string) (*model.DoaRule, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM doa_rules d
		LEFT JOIN users u ON u.user_id = d.user_id
		WHERE d.id = $1 AND d.is_active = true`, doaColumns)

	rule := &model.DoaRule{}
	err := r.db.QueryRow(ctx, query, id).Scan(scanDoaRule(rule)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения правила делегирования: %w", err)
	}
	return rule, nil
}

// buildDoaFilter собирает динамический WHERE из непустых полей фильтра.
// Возвращает условия и позиционные аргументы ($1, $2, ...).
func buildDoaFilter(filter model.DoaRuleFilter) (string, []any) {
	conditions := []string{}
	args := []any{}

	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != "" {
		add("d.user_id = $%d", filter.UserID)
	}
	if filter.Entity != "" {
		add("d.entity = $%d", filter.Entity)
	}
	if filter.Currency != "" {
		add("d.currency = $%d", filter.Currency)
	}
	if filter.Classification != "" {
		add("d.classification = $%d", filter.Classification)
	}
	if filter.IsActive != nil {
		add("d.is_active = $%d", *filter.IsActive)
	} else {
		// По умолчанию удалённые правила не показываем
		conditions = append(conditions, "d.is_active = true")
	}
	if filter.Enabled != nil {
		add("d.enabled = $%d", *filter.Enabled)
	}

	return strings.Join(conditions, " AND "), args
}

func (r *doaRuleRepo) List(ctx context.Context, filter model.DoaRuleFilter, limit, offset int, sortBy, sortOrder string) ([]*model.DoaRule, int, error) {
	where, args := buildDoaFilter(filter)

	// Сортировка только по whitelist-столбцам
	orderCol, ok := doaSortColumns[sortBy]
	if !ok {
		orderCol = "d.created_at"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM doa_rules d WHERE %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта правил делегирования: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM doa_rules d
		LEFT JOIN users u ON u.user_id = d.user_id
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`,
		doaColumns, where, orderCol, direction, len(args)+1, len(args)+2)

	rows, err := r.db.Query(ctx, listQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка правил делегирования: %w", err)
	}
	defer rows.Close()

	var result []*model.DoaRule
	for rows.Next() {
		rule := &model.DoaRule{}
		if err := rows.Scan(scanDoaRule(rule)...); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования правила делегирования: %w", err)
		}
		result = append(result, rule)
	}
	return result, total, rows.Err()
}

func (r *doaRuleRepo) Update(ctx context.Context, rule *model.DoaRule) error {
	query := `
		UPDATE doa_rules SET
			entity = $2, approval_level = $3, min_amount = $4, max_amount = $5,
			currency = $6, vendor_code = $7, po_number = $8, classification = $9,
			enabled = $10, updated_at = now()
		WHERE id = $1 AND is_active = true
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		rule.ID, rule.Entity, rule.ApprovalLevel, rule.MinAmount, rule.MaxAmount,
		rule.Currency, rule.VendorCode, rule.PONumber, rule.Classification,
		rule.Enabled,
	).Scan(&rule.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления правила делегирования: %w", err)
	}
	return nil
}

func (r *doaRuleRepo) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE doa_rules SET is_active = false, updated_at = now() WHERE id = $1 AND is_active = true`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ошибка удаления правила делегирования: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *doaRuleRepo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE doa_rules SET enabled = $2, updated_at = now() WHERE id = $1 AND is_active = true`,
		id, enabled,
	)
	if err != nil {
		return fmt.Errorf("ошибка переключения правила делегирования: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanDoaRule возвращает destination-срез для сканирования doaColumns.
func scanDoaRule(rule *model.DoaRule) []any {
	return []any{
		&rule.ID, &rule.UserID, &rule.Entity, &rule.ApprovalLevel,
		&rule.MinAmount, &rule.MaxAmount, &rule.Currency,
		&rule.VendorCode, &rule.PONumber, &rule.Classification,
		&rule.Enabled, &rule.IsActive, &rule.CreatedByUserID,
		&rule.CreatedAt, &rule.UpdatedAt,
		&rule.UserEmail, &rule.UserFullName,
	}
}
