package handlers

import (
	"context"

	"github.com/cbaird/gatehouse/internal/models"
	"github.com/cbaird/gatehouse/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ipAddress, userAgent)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return nil, models.ErrTokenInvalid
}

// MockVerificationService implements VerificationServiceInterface for testing
type MockVerificationService struct {
	RegisterFunc func(ctx context.Context, email, password, name string) (*services.UserResponse, error)
	ConfirmFunc  func(ctx context.Context, token string) (*services.UserResponse, error)
	ResendFunc   func(ctx context.Context, email string) error
}

func (m *MockVerificationService) Register(ctx context.Context, email, password, name string) (*services.UserResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name)
	}
	return nil, models.ErrInternalServer
}

func (m *MockVerificationService) Confirm(ctx context.Context, token string) (*services.UserResponse, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, token)
	}
	return nil, models.ErrTokenInvalid
}

func (m *MockVerificationService) Resend(ctx context.Context, email string) error {
	if m.ResendFunc != nil {
		return m.ResendFunc(ctx, email)
	}
	return nil
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetUserFunc        func(ctx context.Context, id string) (*models.User, error)
	ChangePasswordFunc func(ctx context.Context, userID, currentPassword, newPassword, confirmPassword string) error
	DeleteAccountFunc  func(ctx context.Context, userID, password string) error
	GetActivityFunc    func(ctx context.Context, userID string) (*services.ActivityResponse, error)
	GetSettingsFunc    func(ctx context.Context, userID string) (*services.SettingsResponse, error)
	UpdateSettingsFunc func(ctx context.Context, userID string, emailNotifications *bool) (*services.SettingsResponse, error)
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, confirmPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword, confirmPassword)
	}
	return nil
}

func (m *MockUserService) DeleteAccount(ctx context.Context, userID, password string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, userID, password)
	}
	return nil
}

func (m *MockUserService) GetActivity(ctx context.Context, userID string) (*services.ActivityResponse, error) {
	if m.GetActivityFunc != nil {
		return m.GetActivityFunc(ctx, userID)
	}
	return &services.ActivityResponse{}, nil
}

func (m *MockUserService) GetSettings(ctx context.Context, userID string) (*services.SettingsResponse, error) {
	if m.GetSettingsFunc != nil {
		return m.GetSettingsFunc(ctx, userID)
	}
	return &services.SettingsResponse{}, nil
}

func (m *MockUserService) UpdateSettings(ctx context.Context, userID string, emailNotifications *bool) (*services.SettingsResponse, error) {
	if m.UpdateSettingsFunc != nil {
		return m.UpdateSettingsFunc(ctx, userID, emailNotifications)
	}
	return &services.SettingsResponse{}, nil
}

// MockSessionService implements SessionServiceInterface for testing
type MockSessionService struct {
	ListActiveFunc func(ctx context.Context, userID string) ([]*models.Session, error)
	EndFunc        func(ctx context.Context, userID, sessionKey string) error
}

func (m *MockSessionService) ListActive(ctx context.Context, userID string) ([]*models.Session, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, userID)
	}
	return []*models.Session{}, nil
}

func (m *MockSessionService) End(ctx context.Context, userID, sessionKey string) error {
	if m.EndFunc != nil {
		return m.EndFunc(ctx, userID, sessionKey)
	}
	return nil
}
