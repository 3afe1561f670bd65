package middleware

import (
	"context"
	"net/http"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// CallerContextKey is the context key for the calling user id.
	CallerContextKey ContextKey = "caller"

	// CallerIDHeader carries the caller identity. Authentication proper is
	// expected to happen upstream (gateway); this service only scopes data
	// access to the asserted identity.
	CallerIDHeader = "X-Caller-ID"
)

// CallerID extracts the caller identity from the request header and stores
// it in the request context. Requests without an identity are rejected.
func CallerID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID := r.Header.Get(CallerIDHeader)
		if callerID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"missing caller identity"}`))
			return
		}

		ctx := context.WithValue(r.Context(), CallerContextKey, callerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCallerID extracts the caller id from context.
func GetCallerID(ctx context.Context) (string, bool) {
	callerID, ok := ctx.Value(CallerContextKey).(string)
	return callerID, ok
}
