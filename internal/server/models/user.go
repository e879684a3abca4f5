// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered principal. Roles are stored comma-joined.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash []byte
	Roles        []string
	CreatedAt    time.Time
}
