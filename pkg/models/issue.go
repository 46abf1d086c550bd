package models

import "time"

// Issue is a tracker ticket. The webhook deduplicates reports onto issues
// keyed by (project_id, tracker_id, subject, author_id); that composite is
// unique at the storage layer.
type Issue struct {
	ID           int64     `db:"id"             json:"id"`
	ProjectID    int64     `db:"project_id"     json:"project_id"`
	TrackerID    int64     `db:"tracker_id"     json:"tracker_id"`
	Subject      string    `db:"subject"        json:"subject"`
	Description  string    `db:"description"    json:"description"`
	StatusID     *int64    `db:"status_id"      json:"status_id,omitempty"`
	AuthorID     int64     `db:"author_id"      json:"author_id"`
	AssignedToID *int64    `db:"assigned_to_id" json:"assigned_to_id,omitempty"`
	CategoryID   *int64    `db:"category_id"    json:"category_id,omitempty"`
	PriorityID   *int64    `db:"priority_id"    json:"priority_id,omitempty"`
	CreatedAt    time.Time `db:"created_at"     json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"     json:"updated_at"`
}

// Journal is an immutable note appended to an issue. The webhook writes one
// per backtrace report, and one per repeat message-only report whose
// description changed.
type Journal struct {
	ID        int64     `db:"id"         json:"id"`
	IssueID   int64     `db:"issue_id"   json:"issue_id"`
	UserID    int64     `db:"user_id"    json:"user_id"`
	Notes     string    `db:"notes"      json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
