package middleware

import (
	"medisched/pkg/auth"
	"medisched/pkg/errors"
	"medisched/pkg/logger"
	"net/http"
	"strings"
)

// Authenticate verifies the bearer token and stores the principal in the
// request context. Paths under an exempt prefix pass through untouched.
func Authenticate(secret string, log *logger.Logger, exemptPrefixes ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				reject(w, log, r, errors.Unauthorized("Missing bearer token"))
				return
			}

			principal, err := auth.ParseToken(token, secret)
			if err != nil {
				reject(w, log, r, errors.Unauthorized("Invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
