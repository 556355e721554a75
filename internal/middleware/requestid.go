package middleware

import (
	"context"
	"net/http"

	"farmgate-api/pkg/uid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader is read from the request and echoed on every response.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an identifier, honoring one supplied by
// the caller so upstream proxies can correlate logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uid.New()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request identifier, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
