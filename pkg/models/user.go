// Package models contains shared data models used across the BugRelay codebase.
package models

import "time"

// User is a tracker account. Reports arriving through the webhook are
// attributed to the anonymous user.
type User struct {
	ID        int64     `db:"id"         json:"id"`
	Login     string    `db:"login"      json:"login"`
	Name      string    `db:"name"       json:"name"`
	Email     string    `db:"email"      json:"email"`
	Anonymous bool      `db:"anonymous"  json:"anonymous"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
