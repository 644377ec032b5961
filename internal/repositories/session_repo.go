package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/cbaird/gatehouse/internal/database"
	"github.com/cbaird/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, user_id, session_key, device_type, browser, ip_address,
	location, created_at, last_activity, is_active`

// SessionRepository handles database operations for session records
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSessionRow(scanner rowScanner) (*models.Session, error) {
	var s models.Session
	err := scanner.Scan(
		&s.ID, &s.UserID, &s.SessionKey, &s.DeviceType, &s.Browser,
		&s.IPAddress, &s.Location, &s.CreatedAt, &s.LastActivity, &s.IsActive,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &s, nil
}

func scanSessionRows(rows pgx.Rows) ([]*models.Session, error) {
	defer rows.Close()

	sessions := make([]*models.Session, 0)

	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

// Create inserts a new active session row
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	session.ID = uuid.New().String()

	now := time.Now()
	session.CreatedAt = now
	session.LastActivity = now
	session.IsActive = true

	query := fmt.Sprintf(`
		INSERT INTO sessions (id, user_id, session_key, device_type, browser,
			ip_address, location, created_at, last_activity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s
	`, sessionColumns)

	return scanSessionRow(r.db.Pool.QueryRow(ctx, query,
		session.ID, session.UserID, session.SessionKey, session.DeviceType,
		session.Browser, session.IPAddress, session.Location,
		session.CreatedAt, session.LastActivity, session.IsActive,
	))
}

// GetByKey retrieves a session by its unique session key
func (r *SessionRepository) GetByKey(ctx context.Context, sessionKey string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE session_key = $1`, sessionColumns)
	return scanSessionRow(r.db.Pool.QueryRow(ctx, query, sessionKey))
}

// ListActiveByUser returns a user's active sessions, most recently used first
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sessions
		WHERE user_id = $1 AND is_active = true
		ORDER BY last_activity DESC
	`, sessionColumns)

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	return scanSessionRows(rows)
}

// Touch refreshes a session's last_activity timestamp
func (r *SessionRepository) Touch(ctx context.Context, sessionKey string, now time.Time) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions SET last_activity = $1 WHERE session_key = $2 AND is_active = true`,
		now, sessionKey)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// End flips is_active off. The row is kept for audit history.
func (r *SessionRepository) End(ctx context.Context, sessionKey string) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions SET is_active = false WHERE session_key = $1`,
		sessionKey)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// EndAllForUser deactivates every active session a user holds. Called when
// an account is deleted or its password changes.
func (r *SessionRepository) EndAllForUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions SET is_active = false WHERE user_id = $1 AND is_active = true`,
		userID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// DeactivateIdleSince flags sessions with no activity since the cutoff as
// inactive. Used by the background sweeper; rows are never deleted.
func (r *SessionRepository) DeactivateIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions SET is_active = false WHERE is_active = true AND last_activity < $1`,
		cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
