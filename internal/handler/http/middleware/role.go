package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// RequireRole allows callers whose role claim is one of roles.
func RequireRole(roles ...jwt.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			roleStr, ok := claims["role"].(string)
			if !ok {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			role := jwt.Role(roleStr)
			if !slices.Contains(roles, role) {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: role '%s' cannot perform this action", role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner requires owner role
func RequireOwner(next http.Handler) http.Handler {
	return RequireRole(jwt.RoleOwner)(next)
}

// RequireManager requires manager or owner role
func RequireManager(next http.Handler) http.Handler {
	return RequireRole(jwt.RoleManager, jwt.RoleOwner)(next)
}
