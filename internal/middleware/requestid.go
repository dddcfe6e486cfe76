// Package middleware provides HTTP middleware for AgentHub.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rahulnsecc/AI-4-all/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID propagates the client's X-Request-ID, minting a UUID when the
// header is absent. The ID lands in the request context and on the response
// so session turns can be correlated with their originating request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
