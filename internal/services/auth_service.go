package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cbaird/gatehouse/internal/auth"
	"github.com/cbaird/gatehouse/internal/models"
	pkgauth "github.com/cbaird/gatehouse/pkg/auth"
	pkglogger "github.com/cbaird/gatehouse/pkg/logger"
)

// AuthService handles credential verification, lockout bookkeeping and token
// issuance. All state transitions on the failure counter happen in the
// repository under a row lock; this layer only decides which transition to ask
// for.
type AuthService struct {
	repo        UserRepository
	sessions    *SessionService
	tm          *auth.TokenManager
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(repo UserRepository, sessions *SessionService, tm *auth.TokenManager, timing *auth.TimingDelay, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		sessions:    sessions,
		tm:          tm,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	Active             bool   `json:"active"`
	EmailVerified      bool   `json:"email_verified"`
	EmailNotifications bool   `json:"email_notifications"`
	CreatedAt          string `json:"created_at"`
	LastLogin          string `json:"last_login,omitempty"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	SessionKey   string        `json:"session_key,omitempty"`
	User         *UserResponse `json:"user"`
}

// Login authenticates a user and returns a token pair plus a session record.
// Failure responses for an unknown email and a wrong password are identical,
// and both paths take the same minimum wall time.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*AuthResponse, error) {
	start := time.Now()
	now := time.Now()

	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.timing.Wait(start, false)
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Same error as a wrong password so the response does not
			// reveal whether the account exists.
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				IPAddress:     ipAddress,
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			s.timing.Wait(start, false)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user, now); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: failureReason(err),
			Success:       false,
		})
		s.timing.Wait(start, false)
		return nil, err
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		// Record the failure under a row lock; the policy may start a
		// lockout window, but this attempt still reports plain
		// invalid credentials.
		if _, recErr := s.repo.RecordLoginAttempt(ctx, user.ID, false, "", now); recErr != nil {
			s.logger.Error("failed to record login failure",
				slog.String("user_id", user.ID),
				slog.Any("error", recErr))
		}
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		s.timing.Wait(start, false)
		return nil, models.ErrInvalidCredentials
	}

	user, err = s.repo.RecordLoginAttempt(ctx, user.ID, true, ipAddress, now)
	if err != nil {
		s.logger.Error("failed to record login success", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	session, err := s.sessions.Start(ctx, user.ID, ipAddress, userAgent)
	if err != nil {
		// A login is still valid without its audit record.
		s.logger.Error("failed to start session",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	resp := &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userModelToResponse(user),
	}
	if session != nil {
		resp.SessionKey = session.SessionKey
	}

	s.timing.Wait(start, true)
	return resp, nil
}

// RefreshToken generates a new token pair from a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*AuthResponse, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.ErrTokenInvalid
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, err
	}

	if claims.Purpose != models.PurposeRefresh {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrTokenPurposeMismatch
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user, time.Now()); err != nil {
		s.logger.Info("token refresh blocked due to account state",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, err
	}

	// A password change invalidates every refresh token minted before it.
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil {
		if claims.IssuedAt.Time.Before(*user.PasswordChangedAt) {
			s.logger.Info("token refresh blocked: issued before password change",
				slog.String("user_id", user.ID))
			return nil, models.ErrTokenInvalid
		}
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	newRefreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// validateAccountState checks the status gates that apply before any password
// comparison. Order matters: a deleted account reports deleted even when it is
// also inactive, and an inactive unverified account reports the verification
// problem rather than the generic inactive one.
func validateAccountState(user *models.User, now time.Time) error {
	if user.IsDeleted() {
		return models.ErrAccountDeleted
	}
	if !user.Active {
		if !user.EmailVerified {
			return models.ErrEmailNotVerified
		}
		return models.ErrAccountInactive
	}
	if user.IsLocked(now) {
		return models.ErrAccountLocked
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, models.ErrAccountDeleted):
		return "account_deleted"
	case errors.Is(err, models.ErrAccountInactive):
		return "account_inactive"
	case errors.Is(err, models.ErrEmailNotVerified):
		return "email_not_verified"
	default:
		return "invalid_credentials"
	}
}

// userModelToResponse converts a user model to response DTO
func userModelToResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
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
