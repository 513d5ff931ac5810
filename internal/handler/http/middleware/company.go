package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// RequireCompany rejects tokens that are not bound to a company.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := jwtauth.FromContext(r.Context()); err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		if _, ok := jwt.CompanyIDFromContext(r.Context()); !ok {
			response.Forbidden(w, "Token is not bound to a company")
			return
		}

		next.ServeHTTP(w, r)
	})
}
