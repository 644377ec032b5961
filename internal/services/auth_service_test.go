package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbaird/gatehouse/internal/auth"
	"github.com/cbaird/gatehouse/internal/models"
	pkgauth "github.com/cbaird/gatehouse/pkg/auth"
	pkglogger "github.com/cbaird/gatehouse/pkg/logger"
)

const testUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"

func newTestAuthService(t *testing.T, userRepo UserRepository, sessionRepo SessionRepository) (*AuthService, *auth.TokenManager) {
	t.Helper()

	logger := slog.Default()
	tm := auth.NewTokenManager("test-secret-key-for-auth-tests", 15*time.Minute, 7*24*time.Hour)
	timing := auth.NewTimingDelay(0, 0, false)
	sessions := NewSessionService(sessionRepo, logger)

	return NewAuthService(userRepo, sessions, tm, timing, logger, pkglogger.NewAuditLogger(logger)), tm
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()

	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)

	now := time.Now()
	verifiedAt := now.Add(-24 * time.Hour)
	return &models.User{
		ID:              "user_123",
		Email:           "user@example.com",
		PasswordHash:    hash,
		Name:            "Test User",
		Active:          true,
		EmailVerified:   true,
		EmailVerifiedAt: &verifiedAt,
		CreatedAt:       now.Add(-48 * time.Hour),
		UpdatedAt:       now,
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	user := activeUser(t, "Correct-Horse-9!")

	var recordedSuccess *bool
	var recordedIP string
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		RecordLoginAttemptFunc: func(ctx context.Context, id string, success bool, ipAddress string, now time.Time) (*models.User, error) {
			recordedSuccess = &success
			recordedIP = ipAddress
			auth.RecordAttempt(user, success, now)
			return user, nil
		},
	}

	var createdSession *models.Session
	sessionRepo := &MockSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.Session) (*models.Session, error) {
			createdSession = session
			return session, nil
		},
	}

	svc, _ := newTestAuthService(t, userRepo, sessionRepo)

	resp, err := svc.Login(context.Background(), "User@Example.com", "Correct-Horse-9!", "203.0.113.7", testUserAgent)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEmpty(t, resp.SessionKey)
	assert.Equal(t, "user@example.com", resp.User.Email)

	require.NotNil(t, recordedSuccess)
	assert.True(t, *recordedSuccess)
	assert.Equal(t, "203.0.113.7", recordedIP)
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.NotNil(t, user.LastLogin)

	require.NotNil(t, createdSession)
	assert.Equal(t, "user_123", createdSession.UserID)
	assert.Equal(t, "desktop", createdSession.DeviceType)
	assert.Equal(t, "Chrome", createdSession.Browser)
	assert.True(t, createdSession.IsActive)
}

func TestAuthService_Login_UnknownEmailAndWrongPasswordIndistinguishable(t *testing.T) {
	user := activeUser(t, "Correct-Horse-9!")

	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, models.ErrNotFound
		},
		RecordLoginAttemptFunc: func(ctx context.Context, id string, success bool, ipAddress string, now time.Time) (*models.User, error) {
			auth.RecordAttempt(user, success, now)
			return user, nil
		},
	}

	svc, _ := newTestAuthService(t, userRepo, &MockSessionRepository{})

	_, errUnknown := svc.Login(context.Background(), "nobody@example.com", "whatever", "", "")
	_, errWrongPw := svc.Login(context.Background(), "user@example.com", "wrong-password", "", "")

	assert.ErrorIs(t, errUnknown, models.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, models.ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrongPw)
}

func TestAuthService_Login_AccountStateGates(t *testing.T) {
	now := time.Now()
	deletedAt := now.Add(-time.Hour)
	lockedUntil := now.Add(10 * time.Minute)

	tests := []struct {
		name    string
		mutate  func(u *models.User)
		wantErr error
	}{
		{
			name:    "deleted account",
			mutate:  func(u *models.User) { u.DeletedAt = &deletedAt },
			wantErr: models.ErrAccountDeleted,
		},
		{
			name: "deleted wins over inactive",
			mutate: func(u *models.User) {
				u.DeletedAt = &deletedAt
				u.Active = false
			},
			wantErr: models.ErrAccountDeleted,
		},
		{
			name: "inactive and unverified",
			mutate: func(u *models.User) {
				u.Active = false
				u.EmailVerified = false
			},
			wantErr: models.ErrEmailNotVerified,
		},
		{
			name:    "inactive but verified",
			mutate:  func(u *models.User) { u.Active = false },
			wantErr: models.ErrAccountInactive,
		},
		{
			name:    "locked",
			mutate:  func(u *models.User) { u.AccountLockedUntil = &lockedUntil },
			wantErr: models.ErrAccountLocked,
		},
		{
			name: "expired lock admits login",
			mutate: func(u *models.User) {
				past := now.Add(-time.Minute)
				u.AccountLockedUntil = &past
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := activeUser(t, "Correct-Horse-9!")
			tt.mutate(user)

			userRepo := &MockUserRepository{
				GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
					return user, nil
				},
				RecordLoginAttemptFunc: func(ctx context.Context, id string, success bool, ipAddress string, now time.Time) (*models.User, error) {
					auth.RecordAttempt(user, success, now)
					return user, nil
				},
			}

			svc, _ := newTestAuthService(t, userRepo, &MockSessionRepository{})

			_, err := svc.Login(context.Background(), user.Email, "Correct-Horse-9!", "", "")
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_Login_LockedAccountSkipsPasswordAndCounter(t *testing.T) {
	user := activeUser(t, "Correct-Horse-9!")
	lockedUntil := time.Now().Add(10 * time.Minute)
	user.AccountLockedUntil = &lockedUntil
	user.FailedLoginAttempts = 3

	recordCalled := false
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		RecordLoginAttemptFunc: func(ctx context.Context, id string, success bool, ipAddress string, now time.Time) (*models.User, error) {
			recordCalled = true
			return user, nil
		},
	}

	svc, _ := newTestAuthService(t, userRepo, &MockSessionRepository{})

	// Even the correct password is refused while the lock holds, and the
	// refused attempt is not counted.
	_, err := svc.Login(context.Background(), user.Email, "Correct-Horse-9!", "", "")

	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.False(t, recordCalled)
	assert.Equal(t, 3, user.FailedLoginAttempts)
}

func TestAuthService_Login_WrongPasswordRecordsFailure(t *testing.T) {
	user := activeUser(t, "Correct-Horse-9!")

	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		RecordLoginAttemptFunc: func(ctx context.Context, id string, success bool, ipAddress string, now time.Time) (*models.User, error) {
			require.False(t, success)
			auth.RecordAttempt(user, success, now)
			return user, nil
		},
	}

	svc, _ := newTestAuthService(t, userRepo, &MockSessionRepository{})

	_, err := svc.Login(context.Background(), user.Email, "wrong-password", "", "")

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Equal(t, 1, user.FailedLoginAttempts)
	assert.NotNil(t, user.LastFailedLogin)
	assert.Nil(t, user.AccountLockedUntil)
}

func TestAuthService_Login_ConcurrentFailuresAllCounted(t *testing.T) {
	const attempts = 20

	user := activeUser(t, "Correct-Horse-9!")

	// Serialize attempt recording the way the row lock does in Postgres:
	// each goroutine's increment must land, none may be lost.
	var mu sync.Mutex
	recorded := 0
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			mu.Lock()
			defer mu.Unlock()
			snapshot := *user
			return &snapshot, nil
		},
		RecordLoginAttemptFunc: func(ctx context.Context, id string, success bool, ipAddress string, now time.Time) (*models.User, error) {
			mu.Lock()
			defer mu.Unlock()
			recorded++
			auth.RecordAttempt(user, success, now)
			snapshot := *user
			return &snapshot, nil
		},
	}

	svc, _ := newTestAuthService(t, userRepo, &MockSessionRepository{})

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Login(context.Background(), user.Email, "wrong-password", "", "")
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	// Attempts that read a post-lock snapshot were refused before recording,
	// but every attempt that did record must have landed: no lost updates.
	assert.Equal(t, recorded, user.FailedLoginAttempts)
	assert.GreaterOrEqual(t, user.FailedLoginAttempts, auth.LockoutTierThree)
	assert.LessOrEqual(t, user.FailedLoginAttempts, attempts)
	assert.NotNil(t, user.AccountLockedUntil)
}

func TestAuthService_RefreshToken_Success(t *testing.T) {
	user := activeUser(t, "Correct-Horse-9!")

	userRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc, tm := newTestAuthService(t, userRepo, &MockSessionRepository{})

	refreshToken, err := tm.GenerateRefreshToken(user.ID, user.Email)
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), refreshToken)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestAuthService_RefreshToken_RejectsAccessToken(t *testing.T) {
	user := activeUser(t, "Correct-Horse-9!")

	userRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc, tm := newTestAuthService(t, userRepo, &MockSessionRepository{})

	accessToken, err := tm.GenerateAccessToken(user.ID, user.Email)
	require.NoError(t, err)

	_, err = svc.RefreshToken(context.Background(), accessToken)

	assert.ErrorIs(t, err, models.ErrTokenPurposeMismatch)
}

func TestAuthService_RefreshToken_ExpiredToken(t *testing.T) {
	user := activeUser(t, "Correct-Horse-9!")

	userRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	logger := slog.Default()
	expiredTM := auth.NewTokenManager("test-secret-key-for-auth-tests", 15*time.Minute, -time.Hour)
	sessions := NewSessionService(&MockSessionRepository{}, logger)
	svc := NewAuthService(userRepo, sessions, expiredTM, auth.NewTimingDelay(0, 0, false), logger, pkglogger.NewAuditLogger(logger))

	refreshToken, err := expiredTM.GenerateRefreshToken(user.ID, user.Email)
	require.NoError(t, err)

	_, err = svc.RefreshToken(context.Background(), refreshToken)

	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestAuthService_RefreshToken_InvalidatedByPasswordChange(t *testing.T) {
	user := activeUser(t, "Correct-Horse-9!")

	userRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc, tm := newTestAuthService(t, userRepo, &MockSessionRepository{})

	refreshToken, err := tm.GenerateRefreshToken(user.ID, user.Email)
	require.NoError(t, err)

	changedAt := time.Now().Add(time.Minute)
	user.PasswordChangedAt = &changedAt

	_, err = svc.RefreshToken(context.Background(), refreshToken)

	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestAuthService_RefreshToken_BlockedForLockedAccount(t *testing.T) {
	user := activeUser(t, "Correct-Horse-9!")
	lockedUntil := time.Now().Add(10 * time.Minute)
	user.AccountLockedUntil = &lockedUntil

	userRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc, tm := newTestAuthService(t, userRepo, &MockSessionRepository{})

	refreshToken, err := tm.GenerateRefreshToken(user.ID, user.Email)
	require.NoError(t, err)

	_, err = svc.RefreshToken(context.Background(), refreshToken)

	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestAuthService_RefreshToken_GarbageToken(t *testing.T) {
	svc, _ := newTestAuthService(t, &MockUserRepository{}, &MockSessionRepository{})

	_, err := svc.RefreshToken(context.Background(), "not-a-jwt")

	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}
