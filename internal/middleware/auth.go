package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"split-game/internal/auth"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "roundClaims"
)

type AuthMiddleware struct {
	tokens *auth.TokenService
}

func NewAuthMiddleware(tokens *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

var (
	errMissingToken = errors.New("authorization header required")
	errBadScheme    = errors.New("authorization header must be \"Bearer <token>\"")
)

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errBadScheme
	}
	return token, nil
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// RequireRoundToken only admits requests carrying a token issued for the
// round named by {sessionId}: 401 without a valid token, 403 for another round.
func (m *AuthMiddleware) RequireRoundToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			deny(w, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := m.tokens.ValidateRoundToken(token)
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			deny(w, http.StatusUnauthorized, "token has expired")
			return
		case err != nil:
			deny(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if sessionID := mux.Vars(r)["sessionId"]; sessionID != "" && sessionID != claims.SessionID {
			deny(w, http.StatusForbidden, "token not valid for this round")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClaimsContextKey, claims)))
	})
}

// GetClaims returns the round claims stored by RequireRoundToken.
func GetClaims(r *http.Request) *auth.RoundClaims {
	claims, _ := r.Context().Value(ClaimsContextKey).(*auth.RoundClaims)
	return claims
}
