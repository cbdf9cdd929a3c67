package middleware

import (
	"context"
	"medisched/pkg/errors"
	httputil "medisched/pkg/http"
	"medisched/pkg/logger"
	"net/http"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws so that the first one listed is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func RequestID(r *http.Request) string {
	return RequestIDFromContext(r.Context())
}

// RequestIDFromContext returns the id RequestLogging stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func reject(w http.ResponseWriter, log *logger.Logger, r *http.Request, appErr *errors.AppError) {
	log.Warn("Request rejected",
		"request_id", RequestID(r),
		"code", appErr.Code,
		"reason", appErr.Message,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)
	_ = httputil.WriteError(w, appErr)
}
