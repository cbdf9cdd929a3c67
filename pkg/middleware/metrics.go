package middleware

import (
	"medisched/pkg/metrics"
	"net/http"
	"time"
)

func Metrics(m *metrics.HTTPMetrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)
			m.Observe(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
		})
	}
}
