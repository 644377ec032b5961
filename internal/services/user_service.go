package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cbaird/gatehouse/internal/models"
	pkgauth "github.com/cbaird/gatehouse/pkg/auth"
	pkglogger "github.com/cbaird/gatehouse/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	Delete(ctx context.Context, id string) error
	RecordLoginAttempt(ctx context.Context, id string, success bool, ipAddress string, now time.Time) (*models.User, error)
}

// ActivityResponse summarizes an account's recent security events.
type ActivityResponse struct {
	LastLogin           string `json:"last_login,omitempty"`
	LastLoginIP         string `json:"last_login_ip,omitempty"`
	LastFailedLogin     string `json:"last_failed_login,omitempty"`
	FailedLoginAttempts int    `json:"failed_login_attempts"`
	AccountLockedUntil  string `json:"account_locked_until,omitempty"`
	MemberSince         string `json:"member_since"`
}

// SettingsResponse holds the user-editable preferences.
type SettingsResponse struct {
	EmailNotifications bool `json:"email_notifications"`
}

// UserService handles account self-management: password changes, soft
// deletion, activity and settings.
type UserService struct {
	repo        UserRepository
	sessions    *SessionService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, sessions *SessionService, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		sessions:    sessions,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// ChangePassword rotates the caller's password. The current password must
// verify, the new password must pass policy, match its confirmation and
// differ from the current one. Success stamps PasswordChangedAt, which
// invalidates every refresh token issued before it, and ends all sessions.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, confirmPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user for password change", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "password_change_failed",
			UserID:        userID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return models.ErrInvalidCredentials
	}

	if newPassword != confirmPassword {
		return models.ErrValidation
	}
	if newPassword == currentPassword {
		return models.ErrValidation
	}
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, userID, hashedPassword, time.Now()); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.sessions.EndAll(ctx, userID); err != nil {
		s.logger.Warn("failed to end sessions after password change", slog.String("user_id", userID))
	}

	s.logger.Info("password changed", slog.String("user_id", userID))
	s.auditLogger.LogAccountAction("password_changed", userID, "")
	return nil
}

// DeleteAccount soft-deletes the caller's account after re-verifying the
// password. The row is kept with a deletion timestamp; login is blocked
// permanently and every session is ended.
func (s *UserService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user for deletion", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "account_delete_failed",
			UserID:        userID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return models.ErrInvalidCredentials
	}

	now := time.Now()
	user.Active = false
	user.DeletedAt = &now

	if _, err := s.repo.Update(ctx, userID, user); err != nil {
		s.logger.Error("failed to soft-delete user", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.sessions.EndAll(ctx, userID); err != nil {
		s.logger.Warn("failed to end sessions after account deletion", slog.String("user_id", userID))
	}

	s.logger.Info("account deleted", slog.String("user_id", userID))
	s.auditLogger.LogAccountAction("account_deleted", userID, "")
	return nil
}

// GetActivity returns the caller's recent security activity.
func (s *UserService) GetActivity(ctx context.Context, userID string) (*ActivityResponse, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &ActivityResponse{
		LastLoginIP:         user.LastLoginIP,
		FailedLoginAttempts: user.FailedLoginAttempts,
		MemberSince:         user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLogin != nil {
		resp.LastLogin = user.LastLogin.Format(time.RFC3339)
	}
	if user.LastFailedLogin != nil {
		resp.LastFailedLogin = user.LastFailedLogin.Format(time.RFC3339)
	}
	if user.AccountLockedUntil != nil && user.AccountLockedUntil.After(time.Now()) {
		resp.AccountLockedUntil = user.AccountLockedUntil.Format(time.RFC3339)
	}
	return resp, nil
}

// GetSettings returns the caller's preferences.
func (s *UserService) GetSettings(ctx context.Context, userID string) (*SettingsResponse, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SettingsResponse{EmailNotifications: user.EmailNotifications}, nil
}

// UpdateSettings applies a partial settings update. Nil fields are left
// unchanged.
func (s *UserService) UpdateSettings(ctx context.Context, userID string, emailNotifications *bool) (*SettingsResponse, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if emailNotifications != nil {
		user.EmailNotifications = *emailNotifications
	}

	updated, err := s.repo.Update(ctx, userID, user)
	if err != nil {
		s.logger.Error("failed to update settings", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("settings updated", slog.String("user_id", userID))
	return &SettingsResponse{EmailNotifications: updated.EmailNotifications}, nil
}
