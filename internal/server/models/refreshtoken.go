package models

import "time"

// RefreshToken is a persisted refresh credential. At most one row per user
// has Revoked == false.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	Revoked   bool
	CreatedAt time.Time
}
