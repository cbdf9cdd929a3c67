package middleware

import (
	"medisched/pkg/errors"
	"medisched/pkg/logger"
	"net/http"
)

// MaxRequestSize rejects declared oversize bodies up front and caps the rest so
// decoding fails once the limit is crossed.
func MaxRequestSize(limit int64, log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				reject(w, log, r, errors.TooLarge("Request body too large"))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
