package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"lifelog/internal/httputil"
)

// Recovery recovers from handler panics and returns a 500. The session
// partition is logged when the request carried a verified token, tying the
// panic to the affected session.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"method", r.Method,
						"partition", httputil.GetPartition(r),
						"stack", string(debug.Stack()),
					)
					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
