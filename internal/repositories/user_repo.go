package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/cbaird/gatehouse/internal/auth"
	"github.com/cbaird/gatehouse/internal/database"
	"github.com/cbaird/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, name, active, email_verified, email_verified_at,
	deleted_at, failed_login_attempts, last_failed_login, account_locked_until,
	password_changed_at, last_login, last_login_ip, email_notifications, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var lastLoginIP *string

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.Active, &user.EmailVerified, &user.EmailVerifiedAt,
		&user.DeletedAt, &user.FailedLoginAttempts, &user.LastFailedLogin,
		&user.AccountLockedUntil, &user.PasswordChangedAt,
		&user.LastLogin, &lastLoginIP, &user.EmailNotifications,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if lastLoginIP != nil {
		user.LastLoginIP = *lastLoginIP
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO users (id, email, password_hash, name, active, email_verified,
			password_changed_at, email_notifications, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s
	`, userColumns)

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name,
		user.Active, user.EmailVerified,
		user.PasswordChangedAt, user.EmailNotifications,
		user.CreatedAt, user.UpdatedAt,
	))
}

// Update persists the mutable profile and status fields. Security counters go
// through RecordLoginAttempt instead so they always ride a row lock.
func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	user.UpdatedAt = time.Now()

	query := fmt.Sprintf(`
		UPDATE users
		SET name = $1, active = $2, email_verified = $3, email_verified_at = $4,
			deleted_at = $5, last_login = $6, last_login_ip = NULLIF($7, ''),
			email_notifications = $8, updated_at = $9
		WHERE id = $10
		RETURNING %s
	`, userColumns)

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.Name, user.Active, user.EmailVerified, user.EmailVerifiedAt,
		user.DeletedAt, user.LastLogin, user.LastLoginIP,
		user.EmailNotifications, user.UpdatedAt, id,
	))
}

// UpdatePassword replaces the stored hash and stamps password_changed_at,
// which invalidates refresh tokens issued before the change.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $1, password_changed_at = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.Pool.Exec(ctx, query, passwordHash, changedAt, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Delete removes the row outright. Only the registration rollback uses this;
// user-initiated deletion is a soft delete through Update.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// RecordLoginAttempt applies one login outcome to the account's security
// counters atomically. The row is read FOR UPDATE inside a transaction so
// concurrent attempts against the same account serialize; without the lock,
// two simultaneous failures could both read the same counter and one
// increment would be lost.
func (r *UserRepository) RecordLoginAttempt(ctx context.Context, id string, success bool, ipAddress string, now time.Time) (*models.User, error) {
	var user *models.User

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 FOR UPDATE`, userColumns)

		u, err := scanUserRow(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}

		auth.RecordAttempt(u, success, now)
		if success && ipAddress != "" {
			u.LastLoginIP = ipAddress
		}
		u.UpdatedAt = time.Now()

		_, err = tx.Exec(ctx, `
			UPDATE users
			SET failed_login_attempts = $1, last_failed_login = $2,
				account_locked_until = $3, last_login = $4,
				last_login_ip = COALESCE(NULLIF($5, ''), last_login_ip),
				updated_at = $6
			WHERE id = $7
		`, u.FailedLoginAttempts, u.LastFailedLogin, u.AccountLockedUntil,
			u.LastLogin, u.LastLoginIP, u.UpdatedAt, id)
		if err != nil {
			return database.MapPostgresError(err)
		}

		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}
