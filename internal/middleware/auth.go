package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health": true,
}

// KeyLister loads the stored API key hashes.
type KeyLister interface {
	ListAPIKeyHashes(ctx context.Context) ([]string, error)
}

// Auth returns middleware that validates a bearer API key against the
// bcrypt hashes in the store. When enabled is false, all requests pass.
func Auth(keys KeyLister, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := bearerToken(r)
			if key == "" {
				// WebSocket clients cannot set headers; accept ?token=.
				if r.URL.Path == "/ws" {
					key = r.URL.Query().Get("token")
				}
			}
			if key == "" {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			hashes, err := keys.ListAPIKeyHashes(r.Context())
			if err != nil {
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}
			for _, h := range hashes {
				if bcrypt.CompareHashAndPassword([]byte(h), []byte(key)) == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
		})
	}
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
