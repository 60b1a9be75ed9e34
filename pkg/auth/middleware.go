package auth

import (
	"crypto/subtle"
	"net/http"
)

const TokenHeader = "X-API-Token"

// TokenMiddleware enforces a fixed token in header X-API-Token.
// An empty expected token leaves the wrapped handler open.
func TokenMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(TokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
