package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cbaird/gatehouse/internal/auth"
	"github.com/cbaird/gatehouse/internal/models"
	"github.com/cbaird/gatehouse/internal/services"
	pkgauth "github.com/cbaird/gatehouse/pkg/auth"
	pkghttp "github.com/cbaird/gatehouse/pkg/http"
)

// UserServiceInterface defines the interface for account self-management
type UserServiceInterface interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword, confirmPassword string) error
	DeleteAccount(ctx context.Context, userID, password string) error
	GetActivity(ctx context.Context, userID string) (*services.ActivityResponse, error)
	GetSettings(ctx context.Context, userID string) (*services.SettingsResponse, error)
	UpdateSettings(ctx context.Context, userID string, emailNotifications *bool) (*services.SettingsResponse, error)
}

// SessionServiceInterface defines the interface for session listing and
// revocation
type SessionServiceInterface interface {
	ListActive(ctx context.Context, userID string) ([]*models.Session, error)
	End(ctx context.Context, userID, sessionKey string) error
}

// UsersHandler serves the /users/me surface. Every route identifies the
// caller from the bearer token; there is no admin path here.
type UsersHandler struct {
	service  UserServiceInterface
	sessions SessionServiceInterface
}

// NewUsersHandler creates a new UsersHandler
func NewUsersHandler(service UserServiceInterface, sessions SessionServiceInterface) *UsersHandler {
	return &UsersHandler{
		service:  service,
		sessions: sessions,
	}
}

// Request DTOs

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// DeleteAccountRequest represents the request body for account deletion
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// UpdateSettingsRequest represents a partial settings update; absent fields
// are left unchanged
type UpdateSettingsRequest struct {
	EmailNotifications *bool `json:"email_notifications"`
}

// SessionResponse represents a session in the HTTP response
type SessionResponse struct {
	SessionKey   string `json:"session_key"`
	DeviceType   string `json:"device_type"`
	Browser      string `json:"browser"`
	IPAddress    string `json:"ip_address"`
	Location     string `json:"location,omitempty"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
}

// Me returns the authenticated user's profile
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userToResponse(user))
}

// ChangePassword rotates the caller's password
func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		var pwErr *pkgauth.PasswordValidationError
		if errors.As(err, &pwErr) {
			pkghttp.WriteBadRequest(w, pwErr.Error())
			return
		}
		pkghttp.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed. Existing refresh tokens are no longer valid.",
	})
}

// DeleteAccount soft-deletes the caller's account
func (h *UsersHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.DeleteAccount(r.Context(), claims.UserID, req.Password); err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Account deleted.",
	})
}

// Activity returns the caller's recent security activity
func (h *UsersHandler) Activity(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	activity, err := h.service.GetActivity(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, activity)
}

// GetSettings returns the caller's preferences
func (h *UsersHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	settings, err := h.service.GetSettings(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings applies a partial preferences update
func (h *UsersHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	settings, err := h.service.UpdateSettings(r.Context(), claims.UserID, req.EmailNotifications)
	if err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// ListSessions returns the caller's active sessions, most recent first
func (h *UsersHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	sessions, err := h.sessions.ListActive(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, sessionToResponse(s))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": resp,
		"count":    len(resp),
	})
}

// EndSession deactivates one of the caller's sessions
func (h *UsersHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	sessionKey := chi.URLParam(r, "key")
	if sessionKey == "" {
		pkghttp.WriteBadRequest(w, "Missing session key")
		return
	}

	if err := h.sessions.End(r.Context(), claims.UserID, sessionKey); err != nil {
		pkghttp.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func userToResponse(user *models.User) *services.UserResponse {
	resp := &services.UserResponse{
		ID:                 user.ID,
		Email:              user.Email,
		Name:               user.Name,
		Active:             user.Active,
		EmailVerified:      user.EmailVerified,
		EmailNotifications: user.EmailNotifications,
		CreatedAt:          user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLogin != nil {
		resp.LastLogin = user.LastLogin.Format(time.RFC3339)
	}
	return resp
}

func sessionToResponse(s *models.Session) SessionResponse {
	return SessionResponse{
		SessionKey:   s.SessionKey,
		DeviceType:   s.DeviceType,
		Browser:      s.Browser,
		IPAddress:    s.IPAddress,
		Location:     s.Location,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		LastActivity: s.LastActivity.Format(time.RFC3339),
	}
}
