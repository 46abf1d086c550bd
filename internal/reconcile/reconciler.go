// Package reconcile turns parsed error reports into tracker issues: it
// deduplicates repeated reports onto one issue, maintains the occurrence
// counter, appends journal entries, and reopens closed issues.
package reconcile

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/bugrelay/internal/notice"
	"github.com/kiranshivaraju/bugrelay/internal/notify"
	"github.com/kiranshivaraju/bugrelay/internal/store"
	"github.com/kiranshivaraju/bugrelay/internal/trace"
	"github.com/kiranshivaraju/bugrelay/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthorized   = errors.New("wrong or missing API key")
	ErrUnknownProject = errors.New("unknown project")
	ErrUnknownTracker = errors.New("unknown tracker")
)

// Well-known custom field names. The issue fields attach to the receiving
// project and tracker on first use; the project fields hold per-project
// receiver configuration.
const (
	FieldErrorClass     = "Error class"
	FieldOccurrences    = "# Occurrences"
	FieldTraceFilter    = "Backtrace filter"
	FieldRepositoryRoot = "Repository root"
)

// Notification event names, matching the notified_events setting.
const (
	EventIssueAdded   = "issue_added"
	EventIssueUpdated = "issue_updated"
)

// Service reconciles error reports against the issue store.
type Service struct {
	store    store.Store
	notifier notify.Notifier
}

func NewService(s store.Store, n notify.Notifier) *Service {
	return &Service{store: s, notifier: n}
}

// Result describes what one reconciliation did.
type Result struct {
	Issue   *models.Issue
	Created bool
	Journal *models.Journal // nil when no entry was appended
}

// Bootstrap upserts the well-known custom fields. Runs once at startup so
// request handling never mutates the field schema concurrently.
func (s *Service) Bootstrap(ctx context.Context) error {
	fields := []models.CustomField{
		{Kind: models.CustomFieldKindIssue, Name: FieldErrorClass,
			FieldFormat: models.FieldFormatString, Searchable: true, IsFilter: true},
		{Kind: models.CustomFieldKindIssue, Name: FieldOccurrences,
			FieldFormat: models.FieldFormatInt, DefaultValue: "0", IsFilter: true},
		{Kind: models.CustomFieldKindProject, Name: FieldTraceFilter,
			FieldFormat: models.FieldFormatText},
		{Kind: models.CustomFieldKindProject, Name: FieldRepositoryRoot,
			FieldFormat: models.FieldFormatString},
	}
	for i := range fields {
		if _, err := s.store.UpsertCustomField(ctx, &fields[i]); err != nil {
			return fmt.Errorf("bootstrap custom field %q: %w", fields[i].Name, err)
		}
	}
	return nil
}

// Process runs the full reconciliation for one report: authenticate, resolve
// the target project and tracker, filter the backtrace, derive the dedup
// identity, find-or-create the issue, bump the occurrence counter, append the
// journal entry, reopen the issue if closed, and dispatch notifications.
func (s *Service) Process(ctx context.Context, r *notice.Report) (*Result, error) {
	if err := s.authenticate(ctx, r.APIKey); err != nil {
		return nil, err
	}

	project, err := s.store.GetProjectByIdentifier(ctx, r.ProjectKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProject, r.ProjectKey)
	}
	if err != nil {
		return nil, err
	}

	tracker, err := s.store.GetProjectTracker(ctx, project.ID, r.TrackerName)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTracker, r.TrackerName)
	}
	if err != nil {
		return nil, err
	}

	author, err := s.store.GetAnonymousUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve report author: %w", err)
	}

	var filtered []string
	if r.Backtrace != nil {
		patterns := trace.SplitFilterField(s.projectSetting(ctx, FieldTraceFilter, project.ID))
		filtered = trace.Filter(r.Backtrace, patterns)
	}
	repoRoot := s.projectSetting(ctx, FieldRepositoryRoot, project.ID)
	identity := trace.Build(r.ErrorClass, r.ErrorMessage, filtered, repoRoot)

	issue, created, err := s.findOrCreateIssue(ctx, r, project, tracker, author, identity)
	if err != nil {
		return nil, err
	}

	if err := s.incrementOccurrences(ctx, issue); err != nil {
		return nil, err
	}

	journal, err := s.appendJournal(ctx, r, issue, author, identity, filtered)
	if err != nil {
		return nil, err
	}

	if err := s.reopen(ctx, issue); err != nil {
		return nil, err
	}

	if err := s.store.UpdateIssue(ctx, issue); err != nil {
		return nil, err
	}

	s.dispatch(ctx, project, issue, created, journal)

	return &Result{Issue: issue, Created: created, Journal: journal}, nil
}

func (s *Service) authenticate(ctx context.Context, presented string) error {
	secret, err := s.store.GetSetting(ctx, store.SettingAPIKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if !keyMatches(secret, presented) {
		return ErrUnauthorized
	}
	return nil
}

// keyMatches compares the presented key against the stored secret, which may
// be either a plaintext value or a bcrypt digest.
func keyMatches(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// projectSetting reads a project-level custom value, returning "" when the
// field or value is missing.
func (s *Service) projectSetting(ctx context.Context, fieldName string, projectID int64) string {
	field, err := s.store.GetCustomFieldByName(ctx, models.CustomFieldKindProject, fieldName)
	if err != nil {
		return ""
	}
	value, err := s.store.GetCustomValue(ctx, field.ID, store.OwnerProject, projectID)
	if err != nil {
		return ""
	}
	return value.Value
}

func (s *Service) findOrCreateIssue(ctx context.Context, r *notice.Report, project *models.Project,
	tracker *models.Tracker, author *models.User, identity trace.Identity) (*models.Issue, bool, error) {

	issue, err := s.store.FindIssueByIdentity(ctx, project.ID, tracker.ID, identity.Subject, author.ID)
	if err == nil {
		return issue, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	issue = &models.Issue{
		ProjectID:   project.ID,
		TrackerID:   tracker.ID,
		Subject:     identity.Subject,
		Description: identity.Description,
		AuthorID:    author.ID,
	}
	s.populateOptionalFields(ctx, r, project, issue)

	if err := s.store.CreateIssue(ctx, issue); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// A concurrent report with the same identity created the issue
			// first; the uniqueness constraint settles the race and we take
			// the update path.
			existing, ferr := s.store.FindIssueByIdentity(ctx, project.ID, tracker.ID, identity.Subject, author.ID)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	if err := s.attachIssueFields(ctx, project.ID, tracker.ID); err != nil {
		return nil, false, err
	}
	if err := s.setErrorClass(ctx, issue.ID, r.ErrorClass); err != nil {
		return nil, false, err
	}

	return issue, true, nil
}

// populateOptionalFields resolves category, assignee, and priority from the
// report. Blank or unresolvable values leave the issue field unset.
func (s *Service) populateOptionalFields(ctx context.Context, r *notice.Report, project *models.Project, issue *models.Issue) {
	if r.Category != "" {
		if category, err := s.store.GetCategoryByName(ctx, project.ID, r.Category); err == nil {
			issue.CategoryID = &category.ID
		}
	}
	if r.AssignedTo != "" {
		if assignee, err := s.store.GetUserByLogin(ctx, r.AssignedTo); err == nil {
			issue.AssignedToID = &assignee.ID
		}
	}
	if r.Priority != "" {
		if id, err := strconv.ParseInt(r.Priority, 10, 64); err == nil {
			issue.PriorityID = &id
		} else if priority, perr := s.store.GetPriorityByName(ctx, r.Priority); perr == nil {
			issue.PriorityID = &priority.ID
		}
	}
}

// attachIssueFields ensures the error-class and occurrence fields are members
// of the project's and tracker's custom-field sets. All attaches are
// idempotent upserts.
func (s *Service) attachIssueFields(ctx context.Context, projectID, trackerID int64) error {
	for _, name := range []string{FieldErrorClass, FieldOccurrences} {
		field, err := s.store.GetCustomFieldByName(ctx, models.CustomFieldKindIssue, name)
		if err != nil {
			return fmt.Errorf("custom field %q: %w", name, err)
		}
		if err := s.store.AttachCustomFieldToProject(ctx, field.ID, projectID); err != nil {
			return err
		}
		if err := s.store.AttachCustomFieldToTracker(ctx, field.ID, trackerID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) setErrorClass(ctx context.Context, issueID int64, errorClass string) error {
	field, err := s.store.GetCustomFieldByName(ctx, models.CustomFieldKindIssue, FieldErrorClass)
	if err != nil {
		return fmt.Errorf("custom field %q: %w", FieldErrorClass, err)
	}
	return s.store.SetCustomValue(ctx, field.ID, store.OwnerIssue, issueID, errorClass)
}

// incrementOccurrences bumps the occurrence counter custom value by one,
// initializing it when absent. This runs for every report, new or repeat.
func (s *Service) incrementOccurrences(ctx context.Context, issue *models.Issue) error {
	field, err := s.store.GetCustomFieldByName(ctx, models.CustomFieldKindIssue, FieldOccurrences)
	if err != nil {
		return fmt.Errorf("custom field %q: %w", FieldOccurrences, err)
	}

	count := 0
	if value, err := s.store.GetCustomValue(ctx, field.ID, store.OwnerIssue, issue.ID); err == nil {
		count, _ = strconv.Atoi(value.Value)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	return s.store.SetCustomValue(ctx, field.ID, store.OwnerIssue, issue.ID, strconv.Itoa(count+1))
}

// appendJournal writes the audit note for this report. Backtrace reports get
// the full diagnostic bundle on every occurrence; message-only reports get a
// plain note, and only when the description changed.
func (s *Service) appendJournal(ctx context.Context, r *notice.Report, issue *models.Issue,
	author *models.User, identity trace.Identity, filtered []string) (*models.Journal, error) {

	var notes string
	switch {
	case r.Backtrace != nil:
		notes = diagnosticNotes(r, filtered)
	case issue.Description != identity.Description:
		notes = identity.Description
	default:
		return nil, nil
	}

	journal := &models.Journal{IssueID: issue.ID, UserID: author.ID, Notes: notes}
	if err := s.store.CreateJournal(ctx, journal); err != nil {
		return nil, err
	}
	return journal, nil
}

// reopen resets the issue to the default status when it has no status or a
// closed one.
func (s *Service) reopen(ctx context.Context, issue *models.Issue) error {
	if issue.StatusID != nil {
		status, err := s.store.GetIssueStatus(ctx, *issue.StatusID)
		if err != nil {
			return err
		}
		if !status.IsClosed {
			return nil
		}
	}

	defaultStatus, err := s.store.GetDefaultIssueStatus(ctx)
	if err != nil {
		return fmt.Errorf("resolve default status: %w", err)
	}
	issue.StatusID = &defaultStatus.ID
	return nil
}

// dispatch emits created/updated events, gated by the notified_events
// setting. Notification failures are logged, not surfaced: the report is
// already persisted at this point.
func (s *Service) dispatch(ctx context.Context, project *models.Project, issue *models.Issue, created bool, journal *models.Journal) {
	enabled := s.notifiedEvents(ctx)

	switch {
	case created && enabled[EventIssueAdded]:
		if err := s.notifier.IssueCreated(ctx, project, issue); err != nil {
			slog.Warn("issue-created notification failed", "issue_id", issue.ID, "error", err)
		}
	case !created && journal != nil && enabled[EventIssueUpdated]:
		if err := s.notifier.IssueUpdated(ctx, project, issue, journal); err != nil {
			slog.Warn("issue-updated notification failed", "issue_id", issue.ID, "error", err)
		}
	}
}

func (s *Service) notifiedEvents(ctx context.Context) map[string]bool {
	raw, err := s.store.GetSetting(ctx, store.SettingNotifiedEvents)
	if err != nil {
		return map[string]bool{}
	}
	enabled := map[string]bool{}
	for _, event := range strings.Split(raw, ",") {
		if event = strings.TrimSpace(event); event != "" {
			enabled[event] = true
		}
	}
	return enabled
}
