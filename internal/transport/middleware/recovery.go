package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/middleware"
)

// RecoveryMiddleware converts panics into 500 responses. The panic value and
// stack stay in the logs only; clients get a generic body with the request id
// to quote when reporting the failure.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					reqID := middleware.GetReqID(r.Context())
					logger.Error("panic recovered",
						"error", err,
						"request_id", reqID,
						"method", r.Method,
						"url", r.URL.String(),
						"stack", string(debug.Stack()))

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error": "internal server error", "request_id": "` + reqID + `"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
