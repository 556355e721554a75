package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"farmgate-api/pkg/apierror"
)

// NewRecovery creates a middleware that recovers from panics and reports
// them as a sanitized 500.
func NewRecovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						zap.Any("panic", err),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()))

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write(apierror.InternalError("internal server error").ToJSON())
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
