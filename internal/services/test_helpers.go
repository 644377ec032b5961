package services

import (
	"context"
	"time"

	"github.com/cbaird/gatehouse/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc         func(ctx context.Context, email string) (*models.User, error)
	CreateFunc             func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc             func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePasswordFunc     func(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	DeleteFunc             func(ctx context.Context, id string) error
	RecordLoginAttemptFunc func(ctx context.Context, id string, success bool, ipAddress string, now time.Time) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return user, nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash, changedAt)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) RecordLoginAttempt(ctx context.Context, id string, success bool, ipAddress string, now time.Time) (*models.User, error) {
	if m.RecordLoginAttemptFunc != nil {
		return m.RecordLoginAttemptFunc(ctx, id, success, ipAddress, now)
	}
	return nil, models.ErrNotFound
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc           func(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByKeyFunc         func(ctx context.Context, sessionKey string) (*models.Session, error)
	ListActiveByUserFunc func(ctx context.Context, userID string) ([]*models.Session, error)
	TouchFunc            func(ctx context.Context, sessionKey string, now time.Time) error
	EndFunc              func(ctx context.Context, sessionKey string) error
	EndAllForUserFunc    func(ctx context.Context, userID string) (int64, error)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return session, nil
}

func (m *MockSessionRepository) GetByKey(ctx context.Context, sessionKey string) (*models.Session, error) {
	if m.GetByKeyFunc != nil {
		return m.GetByKeyFunc(ctx, sessionKey)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	if m.ListActiveByUserFunc != nil {
		return m.ListActiveByUserFunc(ctx, userID)
	}
	return []*models.Session{}, nil
}

func (m *MockSessionRepository) Touch(ctx context.Context, sessionKey string, now time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, sessionKey, now)
	}
	return nil
}

func (m *MockSessionRepository) End(ctx context.Context, sessionKey string) error {
	if m.EndFunc != nil {
		return m.EndFunc(ctx, sessionKey)
	}
	return nil
}

func (m *MockSessionRepository) EndAllForUser(ctx context.Context, userID string) (int64, error) {
	if m.EndAllForUserFunc != nil {
		return m.EndAllForUserFunc(ctx, userID)
	}
	return 0, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendVerificationEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error

	SentEmails []string
	SentTokens []string
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendVerificationEmailFunc != nil {
		if err := m.SendVerificationEmailFunc(ctx, email, token, expiresAt); err != nil {
			return err
		}
	}
	m.SentEmails = append(m.SentEmails, email)
	m.SentTokens = append(m.SentTokens, token)
	return nil
}
