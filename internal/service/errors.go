// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrInvalidOperation — операция недопустима для данного ресурса
	// (дубликат, несовпадение вида записи, обращение к привилегии как к роли).
	ErrInvalidOperation = errors.New("недопустимая операция")
	// ErrInUse — ресурс используется и не может быть удалён.
	ErrInUse = errors.New("ресурс используется")
	// ErrInvalidCredentials — неверные учётные данные пользователя.
	ErrInvalidCredentials = errors.New("неверные учётные данные")
	// ErrIDPUnavailable — Identity Provider (Keycloak) недоступен.
	ErrIDPUnavailable = errors.New("Identity Provider недоступен")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)
