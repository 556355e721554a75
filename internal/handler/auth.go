package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"farmgate-api/internal/middleware"
	"farmgate-api/internal/model"
	"farmgate-api/internal/repository"
	"farmgate-api/internal/service"
	"farmgate-api/pkg/apierror"
	"farmgate-api/pkg/response"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	tokenService *service.TokenService
	profileRepo  repository.ProfileRepository
	audit        service.AuditRecorder
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(tokenService *service.TokenService, profileRepo repository.ProfileRepository, audit service.AuditRecorder) *AuthHandler {
	return &AuthHandler{
		tokenService: tokenService,
		profileRepo:  profileRepo,
		audit:        audit,
	}
}

// TokenRequest represents the request body for token generation.
type TokenRequest struct {
	Email     string `json:"email"`
	AccessKey string `json:"access_key"`
}

// TokenResponse represents the response for token generation.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Role      string `json:"role"`
}

// available reports whether auth dependencies were wired at startup.
// Both Redis and the accounts database are optional connections.
func (h *AuthHandler) available() bool {
	return h.tokenService != nil && h.profileRepo != nil
}

// GenerateToken handles POST /api/v1/auth/token
func (h *AuthHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	if !h.available() {
		response.Error(w, apierror.ServiceUnavailable("authentication is not configured"))
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Email == "" {
		response.Error(w, apierror.BadRequest("email is required"))
		return
	}
	if req.AccessKey == "" {
		response.Error(w, apierror.BadRequest("access_key is required"))
		return
	}

	profile, err := h.profileRepo.ValidateAccess(r.Context(), req.Email, req.AccessKey)
	if err != nil {
		h.audit.Record(model.AuditLogEntry{
			Action:       model.AuditActionUnauthorizedAccess,
			ResourceType: model.AuditResourceProfile,
			ResourceID:   req.Email,
			IPAddress:    middleware.ClientIP(r),
			UserAgent:    r.UserAgent(),
		})
		response.Error(w, apierror.Unauthorized("invalid credentials"))
		return
	}

	tokenData := model.TokenData{
		ProfileID: profile.ID,
		Email:     profile.Email,
		Role:      profile.Role,
	}

	token, err := h.tokenService.GenerateToken(r.Context(), tokenData)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to generate token"))
		return
	}

	response.OK(w, TokenResponse{
		Token:     token,
		ExpiresIn: int(service.TokenTTL.Seconds()),
		Role:      profile.Role,
	})
}

// RevokeToken handles POST /api/v1/auth/revoke
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	if h.tokenService == nil {
		response.Error(w, apierror.ServiceUnavailable("authentication is not configured"))
		return
	}

	token := bearerToken(r)
	if token == "" {
		response.Error(w, apierror.BadRequest("Authorization header required"))
		return
	}

	if err := h.tokenService.RevokeToken(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke token"))
		return
	}

	response.OK(w, map[string]string{"status": "revoked"})
}

// RefreshToken handles POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if h.tokenService == nil {
		response.Error(w, apierror.ServiceUnavailable("authentication is not configured"))
		return
	}

	token := bearerToken(r)
	if token == "" {
		response.Error(w, apierror.BadRequest("Authorization header required"))
		return
	}

	if err := h.tokenService.RefreshToken(r.Context(), token); err != nil {
		response.Error(w, apierror.Unauthorized("invalid or expired token"))
		return
	}

	response.OK(w, map[string]interface{}{
		"status":     "refreshed",
		"expires_in": int(service.TokenTTL.Seconds()),
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
