package models

import "time"

// Project is the top-level grouping for issues. Incoming reports address a
// project by its identifier (the short URL-safe key).
type Project struct {
	ID         int64     `db:"id"         json:"id"`
	Identifier string    `db:"identifier" json:"identifier"`
	Name       string    `db:"name"       json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Tracker is an issue type (Bug, Feature, ...). Trackers are global and
// enabled per project through the project_trackers join.
type Tracker struct {
	ID       int64  `db:"id"       json:"id"`
	Name     string `db:"name"     json:"name"`
	Position int    `db:"position" json:"position"`
}

// IssueCategory is a per-project label resolvable by name.
type IssueCategory struct {
	ID        int64  `db:"id"         json:"id"`
	ProjectID int64  `db:"project_id" json:"project_id"`
	Name      string `db:"name"       json:"name"`
}

// IssuePriority is an ordered enumeration (Low, Normal, High, ...).
type IssuePriority struct {
	ID       int64  `db:"id"       json:"id"`
	Name     string `db:"name"     json:"name"`
	Position int    `db:"position" json:"position"`
}

// IssueStatus is a workflow state. Exactly one status carries IsDefault; a
// closed status terminates the workflow until a new report reopens the issue.
type IssueStatus struct {
	ID        int64  `db:"id"         json:"id"`
	Name      string `db:"name"       json:"name"`
	IsClosed  bool   `db:"is_closed"  json:"is_closed"`
	IsDefault bool   `db:"is_default" json:"is_default"`
	Position  int    `db:"position"   json:"position"`
}
