package middleware

import (
	"context"
	"net/http"

	"github.com/guardline/payroll-engine/pkg/logger"

	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

// RequestID assigns each request a trace id, honoring one supplied by the
// caller. The id is stored under chi's request-id key so GetReqID works in
// the logging and recovery middleware, attached to the context logger, and
// echoed back in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), chimiddleware.RequestIDKey, traceID)
		ctx = logger.With(ctx, "traceID", traceID)

		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
