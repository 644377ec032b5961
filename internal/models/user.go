package models

import (
	"time"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string

	// Status flags. An account is created inactive and unverified; both flip
	// on successful email confirmation. A non-nil DeletedAt permanently
	// blocks login.
	Active          bool
	EmailVerified   bool
	EmailVerifiedAt *time.Time
	DeletedAt       *time.Time

	// Security counters, mutated only through the lockout policy inside a
	// row-locked transaction.
	FailedLoginAttempts int
	LastFailedLogin     *time.Time
	AccountLockedUntil  *time.Time // nil or past means unlocked
	PasswordChangedAt   *time.Time // stamps token invalidation on password change

	LastLogin   *time.Time
	LastLoginIP string

	// Notification preference, editable via the settings endpoint.
	EmailNotifications bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDeleted reports whether the account has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// IsLocked reports whether a lockout window is in force at the given instant.
func (u *User) IsLocked(now time.Time) bool {
	return u.AccountLockedUntil != nil && u.AccountLockedUntil.After(now)
}
