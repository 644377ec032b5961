package models

import "time"

// Session records one authenticated device/browser instance. Sessions are
// advisory audit records: ending one flips IsActive but never deletes the row,
// and the JWTs issued at login remain the auth mechanism of record.
type Session struct {
	ID           string
	UserID       string
	SessionKey   string
	DeviceType   string
	Browser      string
	IPAddress    string
	Location     string
	CreatedAt    time.Time
	LastActivity time.Time
	IsActive     bool
}
