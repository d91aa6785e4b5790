package middleware

import (
	"net/http"

	"github.com/baharkarakas/p2pgate/internal/api/httpx"
)

// RequireRole lets through principals holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "not authenticated", nil)
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "role not allowed", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
