package router

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// middlewareToken requires "Authorization: Bearer <token>" on every route
// outside public. An empty token disables the check.
func middlewareToken(token string, public map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[matchedRoutePath(r)]; ok {
				next.ServeHTTP(w, r)
				return
			}

			scheme, got, _ := strings.Cut(r.Header.Get("Authorization"), " ")
			if !strings.EqualFold(scheme, "Bearer") || got == "" {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) != 1 {
				writeJSON(w, errorResponse{Message: "Invalid token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
