package middleware

import (
	"net/http"
	"slices"

	"github.com/go-taskboard-api/internal/domain"
)

// RequireRole returns middleware that allows access only to users whose JWT
// role is one of allowedRoles. Requests without claims are 401, other roles 403.
func RequireRole(allowedRoles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			switch claims.Role {
			case domain.RoleAdmin, domain.RoleUser:
				if slices.Contains(allowedRoles, claims.Role) {
					next.ServeHTTP(w, r)
					return
				}
				writeJSONError(w, http.StatusForbidden, "forbidden")
			default:
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			}
		})
	}
}
