package middleware

import (
	"medisched/pkg/errors"
	httputil "medisched/pkg/http"
	"medisched/pkg/logger"
	"net/http"
	"runtime/debug"
)

func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					log.Error("Panic recovered",
						"request_id", RequestID(r),
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					_ = httputil.WriteError(w, errors.Internal("panic", nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
