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

// VerificationService handles registration and the email confirmation flow.
// Verification links are stateless signed tokens, so nothing is stored per
// link and confirming twice is harmless.
type VerificationService struct {
	repo         UserRepository
	emailService EmailService
	tm           *auth.TokenManager
	tokenExpiry  time.Duration
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(repo UserRepository, emailService EmailService, tm *auth.TokenManager, tokenExpiry time.Duration, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *VerificationService {
	return &VerificationService{
		repo:         repo,
		emailService: emailService,
		tm:           tm,
		tokenExpiry:  tokenExpiry,
		logger:       logger,
		auditLogger:  auditLogger,
	}
}

// Register creates an inactive, unverified account and dispatches the
// confirmation email. If dispatch fails the account is removed again, so a
// retried registration with the same email does not hit a conflict.
func (s *VerificationService) Register(ctx context.Context, email, password, name string) (*UserResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" || name == "" {
		return nil, models.ErrValidation
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: email already registered")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	user := &models.User{
		Email:              email,
		PasswordHash:       hashedPassword,
		Name:               name,
		Active:             false,
		EmailVerified:      false,
		EmailNotifications: true,
		PasswordChangedAt:  &now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.sendVerification(ctx, created); err != nil {
		// Roll the account back so the address is free to register again.
		if delErr := s.repo.Delete(ctx, created.ID); delErr != nil {
			s.logger.Error("failed to roll back user after dispatch failure",
				slog.String("user_id", created.ID),
				slog.Any("error", delErr))
		}
		return nil, models.ErrDispatchFailed
	}

	s.logger.Info("user registered", slog.String("user_id", created.ID))
	s.auditLogger.LogAccountAction("user_registered", created.ID, "")

	return userModelToResponse(created), nil
}

// Confirm validates a verification token and activates the account. Confirming
// an already-verified account succeeds without touching the original
// verification timestamp.
func (s *VerificationService) Confirm(ctx context.Context, token string) (*UserResponse, error) {
	userID, err := s.tm.VerifyToken(token, models.PurposeEmailVerification)
	if err != nil {
		s.logger.Info("email verification failed", slog.Any("error", err))
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Valid signature for an account that no longer exists.
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("failed to get user for verification", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.EmailVerified {
		return userModelToResponse(user), nil
	}

	now := time.Now()
	user.Active = true
	user.EmailVerified = true
	user.EmailVerifiedAt = &now

	updated, err := s.repo.Update(ctx, user.ID, user)
	if err != nil {
		s.logger.Error("failed to mark email verified", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("email verified", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction("email_verified", user.ID, "")

	return userModelToResponse(updated), nil
}

// Resend issues a fresh verification link. Already-verified accounts get a
// silent success; earlier links stay valid until they expire on their own.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user for resend", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.EmailVerified {
		return nil
	}

	if err := s.sendVerification(ctx, user); err != nil {
		return models.ErrDispatchFailed
	}

	s.logger.Info("verification email resent", slog.String("user_id", user.ID))
	return nil
}

func (s *VerificationService) sendVerification(ctx context.Context, user *models.User) error {
	expiresAt := time.Now().Add(s.tokenExpiry)

	token, err := s.tm.IssueToken(user.ID, models.PurposeEmailVerification, s.tokenExpiry)
	if err != nil {
		s.logger.Error("failed to issue verification token",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return err
	}

	if err := s.emailService.SendVerificationEmail(ctx, user.Email, token, expiresAt); err != nil {
		s.logger.Error("failed to send verification email",
			slog.String("user_id", user.ID),
			slog.String("email", pkglogger.SanitizedEmail(user.Email)),
			slog.Any("error", err))
		return err
	}

	return nil
}
