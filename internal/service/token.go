// token.go — проксирование получения токенов через Keycloak.
// Сервис не хранит токены: запрос пользователя транслируется
// в token endpoint realm и ответ возвращается как есть.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/sprintap/user-module/internal/keycloak"
)

// TokenService — сервис получения и обновления пользовательских токенов.
type TokenService struct {
	kc     *keycloak.Client
	logger *slog.Logger
}

// NewTokenService создаёт сервис токенов.
func NewTokenService(kc *keycloak.Client, logger *slog.Logger) *TokenService {
	return &TokenService{
		kc:     kc,
		logger: logger.With(slog.String("component", "token_service")),
	}
}

// Login выполняет resource owner password grant.
func (s *TokenService) Login(ctx context.Context, username, password string) (*keycloak.TokenResponse, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username и password обязательны", ErrValidation)
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}

	token, err := s.kc.ExchangeToken(ctx, form)
	if err != nil {
		return nil, s.mapTokenError(username, err)
	}

	s.logger.Info("Токен выдан", slog.String("username", username))
	return token, nil
}

// Refresh обновляет пару токенов по refresh token.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*keycloak.TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh_token обязателен", ErrValidation)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	token, err := s.kc.ExchangeToken(ctx, form)
	if err != nil {
		return nil, s.mapTokenError("", err)
	}

	return token, nil
}

// mapTokenError преобразует ошибку обмена токена в ошибку сервисного слоя.
func (s *TokenService) mapTokenError(username string, err error) error {
	if errors.Is(err, keycloak.ErrInvalidCredentials) {
		if username != "" {
			s.logger.Warn("Отказ в выдаче токена", slog.String("username", username))
		}
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, err)
	}
	return fmt.Errorf("%w: %s", ErrIDPUnavailable, err)
}
