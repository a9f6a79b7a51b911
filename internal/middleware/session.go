package middleware

import (
	"net/http"
	"strings"

	"lifelog/internal/auth"
	"lifelog/internal/httputil"
)

// Session verifies the bearer token minted by the gate and attaches the
// session partition to the request. Gate endpoints and the health check are
// exempt - they are how a token is obtained in the first place.
func Session(tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid session token")
				return
			}

			next.ServeHTTP(w, httputil.WithPartition(r, claims.Partition))
		})
	}
}

func isExempt(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/api/session")
}
