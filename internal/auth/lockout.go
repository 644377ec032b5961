package auth

import (
	"time"

	"github.com/cbaird/gatehouse/internal/models"
)

// Progressive lockout tiers, evaluated from highest threshold to lowest.
// First match wins: 10 failures lock for a day, 5 for half an hour, 3 for a
// quarter hour.
const (
	LockoutTierThree = 3
	LockoutTierFive  = 5
	LockoutTierTen   = 10

	LockoutWindowThree = 15 * time.Minute
	LockoutWindowFive  = 30 * time.Minute
	LockoutWindowTen   = 24 * time.Hour

	// FailureStalenessWindow is how old the most recent failure must be
	// before the counter stops indicating an ongoing attack and decays to
	// zero ahead of the next increment.
	FailureStalenessWindow = 24 * time.Hour
)

// RecordAttempt applies one login attempt outcome to the user's security
// counters. It is a pure state transition: callers persist the mutated fields
// inside a row-locked transaction so concurrent attempts serialize and no
// increment is lost.
func RecordAttempt(user *models.User, success bool, now time.Time) {
	if success {
		user.FailedLoginAttempts = 0
		user.AccountLockedUntil = nil
		user.LastLogin = &now
		return
	}

	// Staleness decay: a failure older than the window no longer counts
	// toward the current streak.
	if user.LastFailedLogin != nil && now.Sub(*user.LastFailedLogin) > FailureStalenessWindow {
		user.FailedLoginAttempts = 0
	}

	user.FailedLoginAttempts++
	user.LastFailedLogin = &now

	window := lockoutWindow(user.FailedLoginAttempts)
	if window > 0 {
		lockedUntil := now.Add(window)
		user.AccountLockedUntil = &lockedUntil
	}
	// A sub-threshold failure leaves an existing future lock untouched.
}

// IsLocked reports whether authentication must be refused at the given
// instant, regardless of credential correctness.
func IsLocked(user *models.User, now time.Time) bool {
	return user.AccountLockedUntil != nil && user.AccountLockedUntil.After(now)
}

func lockoutWindow(failedAttempts int) time.Duration {
	switch {
	case failedAttempts >= LockoutTierTen:
		return LockoutWindowTen
	case failedAttempts >= LockoutTierFive:
		return LockoutWindowFive
	case failedAttempts >= LockoutTierThree:
		return LockoutWindowThree
	default:
		return 0
	}
}
