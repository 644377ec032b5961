package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbaird/gatehouse/internal/auth"
	"github.com/cbaird/gatehouse/internal/models"
	pkglogger "github.com/cbaird/gatehouse/pkg/logger"
)

func newTestVerificationService(t *testing.T, userRepo UserRepository, emailService EmailService) (*VerificationService, *auth.TokenManager) {
	t.Helper()

	logger := slog.Default()
	tm := auth.NewTokenManager("test-secret-key-for-auth-tests", 15*time.Minute, 7*24*time.Hour)

	return NewVerificationService(userRepo, emailService, tm, 24*time.Hour, logger, pkglogger.NewAuditLogger(logger)), tm
}

func TestVerificationService_Register_Success(t *testing.T) {
	var created *models.User
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user_123"
			created = user
			return user, nil
		},
	}
	emailService := &MockEmailService{}

	svc, tm := newTestVerificationService(t, userRepo, emailService)

	resp, err := svc.Register(context.Background(), "New@Example.com", "Str0ng-Passw0rd!", "New User")

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", resp.Email)
	assert.False(t, resp.Active)
	assert.False(t, resp.EmailVerified)
	assert.True(t, resp.EmailNotifications)

	require.NotNil(t, created)
	assert.False(t, created.Active)
	assert.False(t, created.EmailVerified)
	assert.NotEqual(t, "Str0ng-Passw0rd!", created.PasswordHash)

	// The dispatched token must verify as an email-verification credential
	// for the new account, and nothing else.
	require.Len(t, emailService.SentTokens, 1)
	userID, err := tm.VerifyToken(emailService.SentTokens[0], models.PurposeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, "user_123", userID)

	_, err = tm.VerifyToken(emailService.SentTokens[0], models.PurposeAccess)
	assert.ErrorIs(t, err, models.ErrTokenPurposeMismatch)
}

func TestVerificationService_Register_DuplicateEmail(t *testing.T) {
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: "user_123", Email: email}, nil
		},
	}

	svc, _ := newTestVerificationService(t, userRepo, &MockEmailService{})

	_, err := svc.Register(context.Background(), "taken@example.com", "Str0ng-Passw0rd!", "Name")

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestVerificationService_Register_WeakPasswordRejectedBeforeCreate(t *testing.T) {
	createCalled := false
	userRepo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			createCalled = true
			return user, nil
		},
	}

	svc, _ := newTestVerificationService(t, userRepo, &MockEmailService{})

	_, err := svc.Register(context.Background(), "new@example.com", "short", "Name")

	assert.Error(t, err)
	assert.False(t, createCalled)
}

func TestVerificationService_Register_DispatchFailureRollsBackUser(t *testing.T) {
	deletedID := ""
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user_123"
			return user, nil
		},
		DeleteFunc: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	emailService := &MockEmailService{
		SendVerificationEmailFunc: func(ctx context.Context, email, token string, expiresAt time.Time) error {
			return errors.New("ses unavailable")
		},
	}

	svc, _ := newTestVerificationService(t, userRepo, emailService)

	_, err := svc.Register(context.Background(), "new@example.com", "Str0ng-Passw0rd!", "Name")

	assert.ErrorIs(t, err, models.ErrDispatchFailed)
	assert.Equal(t, "user_123", deletedID)
}

func TestVerificationService_Confirm_ActivatesAccount(t *testing.T) {
	user := &models.User{
		ID:            "user_123",
		Email:         "new@example.com",
		Active:        false,
		EmailVerified: false,
	}

	var updated *models.User
	userRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateFunc: func(ctx context.Context, id string, u *models.User) (*models.User, error) {
			updated = u
			return u, nil
		},
	}

	svc, tm := newTestVerificationService(t, userRepo, &MockEmailService{})

	token, err := tm.IssueToken("user_123", models.PurposeEmailVerification, 24*time.Hour)
	require.NoError(t, err)

	resp, err := svc.Confirm(context.Background(), token)

	require.NoError(t, err)
	assert.True(t, resp.Active)
	assert.True(t, resp.EmailVerified)

	require.NotNil(t, updated)
	assert.True(t, updated.Active)
	assert.True(t, updated.EmailVerified)
	assert.NotNil(t, updated.EmailVerifiedAt)
}

func TestVerificationService_Confirm_Idempotent(t *testing.T) {
	verifiedAt := time.Now().Add(-time.Hour)
	user := &models.User{
		ID:              "user_123",
		Email:           "new@example.com",
		Active:          true,
		EmailVerified:   true,
		EmailVerifiedAt: &verifiedAt,
	}

	updateCalled := false
	userRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateFunc: func(ctx context.Context, id string, u *models.User) (*models.User, error) {
			updateCalled = true
			return u, nil
		},
	}

	svc, tm := newTestVerificationService(t, userRepo, &MockEmailService{})

	token, err := tm.IssueToken("user_123", models.PurposeEmailVerification, 24*time.Hour)
	require.NoError(t, err)

	resp, err := svc.Confirm(context.Background(), token)

	require.NoError(t, err)
	assert.True(t, resp.EmailVerified)
	assert.False(t, updateCalled)
	assert.Equal(t, verifiedAt, *user.EmailVerifiedAt)
}

func TestVerificationService_Confirm_TokenFailures(t *testing.T) {
	userRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}

	svc, tm := newTestVerificationService(t, userRepo, &MockEmailService{})

	t.Run("expired token", func(t *testing.T) {
		token, err := tm.IssueToken("user_123", models.PurposeEmailVerification, -time.Minute)
		require.NoError(t, err)

		_, err = svc.Confirm(context.Background(), token)
		assert.ErrorIs(t, err, models.ErrTokenExpired)
	})

	t.Run("wrong purpose", func(t *testing.T) {
		token, err := tm.GenerateAccessToken("user_123", "new@example.com")
		require.NoError(t, err)

		_, err = svc.Confirm(context.Background(), token)
		assert.ErrorIs(t, err, models.ErrTokenPurposeMismatch)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Confirm(context.Background(), "garbage")
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})

	t.Run("token for vanished user", func(t *testing.T) {
		token, err := tm.IssueToken("user_gone", models.PurposeEmailVerification, 24*time.Hour)
		require.NoError(t, err)

		_, err = svc.Confirm(context.Background(), token)
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})

	t.Run("tampered token", func(t *testing.T) {
		token, err := tm.IssueToken("user_123", models.PurposeEmailVerification, 24*time.Hour)
		require.NoError(t, err)

		_, err = svc.Confirm(context.Background(), token+"x")
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})
}

func TestVerificationService_Resend_SendsFreshToken(t *testing.T) {
	user := &models.User{
		ID:            "user_123",
		Email:         "new@example.com",
		Active:        false,
		EmailVerified: false,
	}

	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	emailService := &MockEmailService{}

	svc, _ := newTestVerificationService(t, userRepo, emailService)

	err := svc.Resend(context.Background(), "new@example.com")

	require.NoError(t, err)
	assert.Len(t, emailService.SentTokens, 1)
}

func TestVerificationService_Resend_VerifiedAccountIsNoop(t *testing.T) {
	user := &models.User{
		ID:            "user_123",
		Email:         "new@example.com",
		Active:        true,
		EmailVerified: true,
	}

	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	emailService := &MockEmailService{}

	svc, _ := newTestVerificationService(t, userRepo, emailService)

	err := svc.Resend(context.Background(), "new@example.com")

	require.NoError(t, err)
	assert.Empty(t, emailService.SentTokens)
}

func TestVerificationService_Resend_UnknownEmail(t *testing.T) {
	svc, _ := newTestVerificationService(t, &MockUserRepository{}, &MockEmailService{})

	err := svc.Resend(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestVerificationService_Resend_DispatchFailure(t *testing.T) {
	user := &models.User{ID: "user_123", Email: "new@example.com"}

	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	emailService := &MockEmailService{
		SendVerificationEmailFunc: func(ctx context.Context, email, token string, expiresAt time.Time) error {
			return errors.New("ses unavailable")
		},
	}

	svc, _ := newTestVerificationService(t, userRepo, emailService)

	err := svc.Resend(context.Background(), "new@example.com")

	assert.ErrorIs(t, err, models.ErrDispatchFailed)
}
