// token.go — обработчик выдачи токенов через Keycloak.
package handlers

import (
	"net/http"

	apierrors "github.com/sprintap/user-module/internal/api/errors"
	"github.com/sprintap/user-module/internal/keycloak"
)

// tokenRequest — тело запроса получения токена.
// grant_type: password (по умолчанию) или refresh_token.
type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

// IssueToken — POST /api/v1/auth/token. Endpoint публичный:
// аутентификация — сами передаваемые учётные данные.
func (h *APIHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	var token *keycloak.TokenResponse
	var err error

	switch req.GrantType {
	case "refresh_token":
		token, err = h.tokens.Refresh(r.Context(), req.RefreshToken)
	case "", "password":
		token, err = h.tokens.Login(r.Context(), req.Username, req.Password)
	default:
		apierrors.ValidationError(w, "Неподдерживаемый grant_type: "+req.GrantType)
		return
	}
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}
