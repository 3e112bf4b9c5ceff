// Пакет model — доменные модели User Module.
package model

import "time"

// UserProjection — локальная проекция пользователя Keycloak.
// Хранится в таблице users. Источник истины — Keycloak; проекция
// обновляется best-effort после каждой мутации и никогда не удаляется
// физически: деактивация — единственный разрешённый переход.
type UserProjection struct {
	// UserID — Keycloak user ID (sub)
	UserID string
	// Username — имя пользователя (совпадает с email)
	Username string
	// Email — адрес электронной почты
	Email string
	// FullName — полное имя (имя + фамилия)
	FullName string
	// IsActive — активен ли аккаунт; переход только active → inactive
	IsActive bool
	// CreatedAt — время создания записи проекции
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления проекции
	UpdatedAt time.Time
}

// User — пользователь Keycloak, обогащённый ролями и группами.
// Не хранится в БД — формируется из данных Keycloak на каждый запрос.
type User struct {
	// ID — Keycloak user ID (sub)
	ID string `json:"id"`
	// Username — имя пользователя (совпадает с email)
	Username string `json:"username"`
	// Email — адрес электронной почты
	Email string `json:"email"`
	// FirstName — имя
	FirstName string `json:"first_name"`
	// LastName — фамилия
	LastName string `json:"last_name"`
	// Enabled — активен ли аккаунт в Keycloak
	Enabled bool `json:"enabled"`
	// Roles — эффективные роли каталога (только вид «роль»)
	Roles []CatalogRef `json:"roles"`
	// Groups — группы пользователя
	Groups []GroupRef `json:"groups"`
	// CreatedAt — дата создания в Keycloak
	CreatedAt time.Time `json:"created_at"`
}

// CatalogRef — ссылка на запись каталога в ответах API.
type CatalogRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"` // имя без префикса вида
	Description string `json:"description"`
}

// GroupRef — ссылка на группу в ответах API.
type GroupRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
