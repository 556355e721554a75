package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"farmgate-api/internal/model"
	"farmgate-api/internal/service"
	"farmgate-api/pkg/apierror"
)

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	TokenService *service.TokenService
	Audit        service.AuditRecorder
}

// NewAuthMiddleware creates an authentication middleware with injected
// dependencies. Requests must carry a bearer session token; validated
// token data is stored on the request context for role checks downstream.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Provide a bearer token."))
				return
			}

			if cfg.TokenService == nil {
				writeError(w, apierror.ServiceUnavailable("authentication backend unavailable"))
				return
			}

			tokenData, err := cfg.TokenService.ValidateToken(r.Context(), token)
			if err != nil {
				writeError(w, apierror.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), TokenDataKey, tokenData)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route group on the token's role. Rejected requests
// are recorded as unauthorized_access in the audit log.
func RequireRole(audit service.AuditRecorder, check func(*model.TokenData) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenData := GetTokenDataFromContext(r.Context())
			if tokenData == nil || !check(tokenData) {
				if audit != nil {
					entry := model.AuditLogEntry{
						Action:       model.AuditActionUnauthorizedAccess,
						ResourceType: model.AuditResourceSecurity,
						ResourceID:   r.URL.Path,
						IPAddress:    ClientIP(r),
						UserAgent:    r.UserAgent(),
					}
					if tokenData != nil {
						entry.ActorID = &tokenData.ProfileID
						entry.ActorEmail = &tokenData.Email
						entry.ActorRole = &tokenData.Role
					}
					audit.Record(entry)
				}
				writeError(w, apierror.Forbidden(""))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates a route group on the admin role.
func RequireAdmin(audit service.AuditRecorder) func(http.Handler) http.Handler {
	return RequireRole(audit, func(t *model.TokenData) bool { return t.IsAdmin() })
}

// RequireManager gates a route group on admin or staff roles.
func RequireManager(audit service.AuditRecorder) func(http.Handler) http.Handler {
	return RequireRole(audit, func(t *model.TokenData) bool { return t.CanManage() })
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// ClientIP returns the originating client address, honoring the first
// X-Forwarded-For hop when present.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}
