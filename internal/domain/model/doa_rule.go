package model

import "time"

// DoaRule — правило делегирования полномочий (delegation of authority).
// Хранится в таблице doa_rules. Привязано к пользователю через
// Keycloak user ID; для отображения присоединяется проекция users.
type DoaRule struct {
	// ID — UUID записи
	ID string `json:"id"`
	// UserID — Keycloak user ID владельца правила
	UserID string `json:"user_id"`
	// Entity — юридическое лицо, на которое распространяется правило
	Entity string `json:"entity"`
	// ApprovalLevel — уровень согласования
	ApprovalLevel int `json:"approval_level"`
	// MinAmount — нижняя граница суммы (строка, decimal как в БД)
	MinAmount string `json:"min_amount"`
	// MaxAmount — верхняя граница суммы
	MaxAmount string `json:"max_amount"`
	// Currency — валюта границ суммы (ISO 4217)
	Currency string `json:"currency"`
	// VendorCode — код поставщика (опционально)
	VendorCode string `json:"vendor_code,omitempty"`
	// PONumber — номер заказа на поставку (опционально)
	PONumber string `json:"po_number,omitempty"`
	// Classification — классификация расходов (опционально)
	Classification string `json:"classification,omitempty"`
	// Enabled — включено ли правило
	Enabled bool `json:"enabled"`
	// IsActive — мягкое удаление: false — правило удалено
	IsActive bool `json:"is_active"`
	// CreatedByUserID — кто создал правило
	CreatedByUserID string `json:"created_by_user_id"`
	// CreatedAt — время создания
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time `json:"updated_at"`

	// Поля проекции пользователя (заполняются JOIN'ом при чтении)
	UserEmail    string `json:"user_email,omitempty"`
	UserFullName string `json:"user_full_name,omitempty"`
}

// DoaRuleFilter — фильтр выборки правил делегирования.
// Нулевые значения (пустая строка, nil) означают отсутствие фильтра.
type DoaRuleFilter struct {
	UserID         string
	Entity         string
	Currency       string
	Classification string
	IsActive       *bool
	Enabled        *bool
}
