package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/baharkarakas/p2pgate/internal/api/httpx"
	"github.com/baharkarakas/p2pgate/internal/auth"
	"github.com/baharkarakas/p2pgate/internal/models"
	"github.com/baharkarakas/p2pgate/internal/services"
)

const MerchantKeyHeader = "X-Merchant-Api-Key"

type MerchantAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (models.Merchant, error)
}

type AuthMiddleware struct {
	TM        *auth.TokenManager
	Merchants MerchantAuthenticator
}

func NewAuthMiddleware(tm *auth.TokenManager, merchants MerchantAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{TM: tm, Merchants: merchants}
}

// Bearer requires an operator or admin access token.
func (m *AuthMiddleware) Bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		claims, err := m.TM.Parse(strings.TrimSpace(ah[len("Bearer "):]))
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid access token", nil)
			return
		}
		ctx := WithPrincipal(r.Context(), Principal{UserID: claims.UserID, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Merchant requires a valid merchant API key.
func (m *AuthMiddleware) Merchant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(MerchantKeyHeader)
		if key == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing merchant api key", nil)
			return
		}
		merchant, err := m.Merchants.Authenticate(r.Context(), key)
		if errors.Is(err, services.ErrUnauthorized) {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid merchant api key", nil)
			return
		}
		if err != nil {
			slog.Error("merchant auth", "err", err, "request_id", RequestIDFrom(r.Context()))
			httpx.WriteServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithMerchant(r.Context(), merchant)))
	})
}
