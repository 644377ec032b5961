package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cbaird/gatehouse/internal/models"
)

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByKey(ctx context.Context, sessionKey string) (*models.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*models.Session, error)
	Touch(ctx context.Context, sessionKey string, now time.Time) error
	End(ctx context.Context, sessionKey string) error
	EndAllForUser(ctx context.Context, userID string) (int64, error)
}

// SessionService tracks which devices hold a live login. Sessions are audit
// records, not the auth mechanism: ending one does not revoke the JWTs issued
// alongside it.
type SessionService struct {
	repo   SessionRepository
	logger *slog.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(repo SessionRepository, logger *slog.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		logger: logger,
	}
}

// Start records a new session for a successful login.
func (s *SessionService) Start(ctx context.Context, userID, ipAddress, userAgent string) (*models.Session, error) {
	now := time.Now()
	session := &models.Session{
		UserID:       userID,
		SessionKey:   uuid.New().String(),
		DeviceType:   deviceTypeFromUserAgent(userAgent),
		Browser:      browserFromUserAgent(userAgent),
		IPAddress:    ipAddress,
		CreatedAt:    now,
		LastActivity: now,
		IsActive:     true,
	}

	created, err := s.repo.Create(ctx, session)
	if err != nil {
		s.logger.Error("failed to create session", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("session started",
		slog.String("user_id", userID),
		slog.String("session_key", created.SessionKey),
		slog.String("device_type", created.DeviceType))
	return created, nil
}

// Touch bumps the last-activity timestamp of an active session. Inactive
// sessions are left alone.
func (s *SessionService) Touch(ctx context.Context, sessionKey string) {
	if sessionKey == "" {
		return
	}
	if err := s.repo.Touch(ctx, sessionKey, time.Now()); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("failed to touch session", slog.String("session_key", sessionKey), slog.Any("error", err))
	}
}

// ListActive returns the caller's active sessions, most recently used first.
func (s *SessionService) ListActive(ctx context.Context, userID string) ([]*models.Session, error) {
	sessions, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list sessions", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return sessions, nil
}

// End deactivates one of the caller's sessions. A session belonging to a
// different user reads as not found so session keys cannot be probed.
func (s *SessionService) End(ctx context.Context, userID, sessionKey string) error {
	session, err := s.repo.GetByKey(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get session", slog.String("session_key", sessionKey), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if session.UserID != userID {
		return models.ErrNotFound
	}

	if err := s.repo.End(ctx, sessionKey); err != nil {
		s.logger.Error("failed to end session", slog.String("session_key", sessionKey), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("session ended",
		slog.String("user_id", userID),
		slog.String("session_key", sessionKey))
	return nil
}

// EndAll deactivates every active session the user holds.
func (s *SessionService) EndAll(ctx context.Context, userID string) error {
	n, err := s.repo.EndAllForUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to end sessions", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if n > 0 {
		s.logger.Info("sessions ended", slog.String("user_id", userID), slog.Int64("count", n))
	}
	return nil
}

// deviceTypeFromUserAgent classifies a User-Agent as mobile, tablet or
// desktop. Best effort only; the value is display metadata.
func deviceTypeFromUserAgent(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		return "mobile"
	case ua == "":
		return "unknown"
	default:
		return "desktop"
	}
}

func browserFromUserAgent(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "edg/"):
		return "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "chrome/"):
		return "Chrome"
	case strings.Contains(ua, "firefox/"):
		return "Firefox"
	case strings.Contains(ua, "safari/"):
		return "Safari"
	case ua == "":
		return "unknown"
	default:
		return "other"
	}
}
