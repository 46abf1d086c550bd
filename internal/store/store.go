package store

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/bugrelay/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Custom-value owner kinds.
const (
	OwnerIssue   = "issue"
	OwnerProject = "project"
)

// Well-known setting keys.
const (
	SettingAPIKey         = "mail_handler_api_key"
	SettingNotifiedEvents = "notified_events"
)

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetSetting(ctx context.Context, key string) (string, error)

	GetAnonymousUser(ctx context.Context) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)

	GetProjectByIdentifier(ctx context.Context, identifier string) (*models.Project, error)
	GetProjectTracker(ctx context.Context, projectID int64, name string) (*models.Tracker, error)
	GetCategoryByName(ctx context.Context, projectID int64, name string) (*models.IssueCategory, error)
	GetPriorityByName(ctx context.Context, name string) (*models.IssuePriority, error)

	GetDefaultIssueStatus(ctx context.Context) (*models.IssueStatus, error)
	GetIssueStatus(ctx context.Context, id int64) (*models.IssueStatus, error)

	FindIssueByIdentity(ctx context.Context, projectID, trackerID int64, subject string, authorID int64) (*models.Issue, error)
	CreateIssue(ctx context.Context, issue *models.Issue) error
	UpdateIssue(ctx context.Context, issue *models.Issue) error

	UpsertCustomField(ctx context.Context, field *models.CustomField) (*models.CustomField, error)
	GetCustomFieldByName(ctx context.Context, kind, name string) (*models.CustomField, error)
	AttachCustomFieldToProject(ctx context.Context, fieldID, projectID int64) error
	AttachCustomFieldToTracker(ctx context.Context, fieldID, trackerID int64) error
	GetCustomValue(ctx context.Context, fieldID int64, ownerKind string, ownerID int64) (*models.CustomValue, error)
	SetCustomValue(ctx context.Context, fieldID int64, ownerKind string, ownerID int64, value string) error

	CreateJournal(ctx context.Context, journal *models.Journal) error
}
