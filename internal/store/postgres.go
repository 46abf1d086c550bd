package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/bugrelay/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Settings ---

func (s *PostgresStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// --- Users ---

func (s *PostgresStore) GetAnonymousUser(ctx context.Context) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, login, name, email, anonymous, created_at FROM users WHERE anonymous = TRUE LIMIT 1`,
	).Scan(&u.ID, &u.Login, &u.Name, &u.Email, &u.Anonymous, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get anonymous user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, login, name, email, anonymous, created_at FROM users WHERE login = $1`, login,
	).Scan(&u.ID, &u.Login, &u.Name, &u.Email, &u.Anonymous, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	return &u, nil
}

// --- Projects, trackers, lookups ---

func (s *PostgresStore) GetProjectByIdentifier(ctx context.Context, identifier string) (*models.Project, error) {
	var p models.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, identifier, name, created_at, updated_at FROM projects WHERE identifier = $1`, identifier,
	).Scan(&p.ID, &p.Identifier, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project by identifier: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) GetProjectTracker(ctx context.Context, projectID int64, name string) (*models.Tracker, error) {
	var t models.Tracker
	err := s.pool.QueryRow(ctx,
		`SELECT t.id, t.name, t.position
		 FROM trackers t
		 JOIN project_trackers pt ON pt.tracker_id = t.id
		 WHERE pt.project_id = $1 AND t.name = $2`, projectID, name,
	).Scan(&t.ID, &t.Name, &t.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project tracker: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) GetCategoryByName(ctx context.Context, projectID int64, name string) (*models.IssueCategory, error) {
	var c models.IssueCategory
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, name FROM issue_categories WHERE project_id = $1 AND name = $2`, projectID, name,
	).Scan(&c.ID, &c.ProjectID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category by name: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) GetPriorityByName(ctx context.Context, name string) (*models.IssuePriority, error) {
	var p models.IssuePriority
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, position FROM issue_priorities WHERE name = $1`, name,
	).Scan(&p.ID, &p.Name, &p.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get priority by name: %w", err)
	}
	return &p, nil
}

// --- Statuses ---

func (s *PostgresStore) GetDefaultIssueStatus(ctx context.Context) (*models.IssueStatus, error) {
	var st models.IssueStatus
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, is_closed, is_default, position
		 FROM issue_statuses WHERE is_default = TRUE ORDER BY position ASC LIMIT 1`,
	).Scan(&st.ID, &st.Name, &st.IsClosed, &st.IsDefault, &st.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default issue status: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) GetIssueStatus(ctx context.Context, id int64) (*models.IssueStatus, error) {
	var st models.IssueStatus
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, is_closed, is_default, position FROM issue_statuses WHERE id = $1`, id,
	).Scan(&st.ID, &st.Name, &st.IsClosed, &st.IsDefault, &st.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue status: %w", err)
	}
	return &st, nil
}

// --- Issues ---

func (s *PostgresStore) FindIssueByIdentity(ctx context.Context, projectID, trackerID int64, subject string, authorID int64) (*models.Issue, error) {
	var i models.Issue
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, tracker_id, subject, description, status_id, author_id,
		        assigned_to_id, category_id, priority_id, created_at, updated_at
		 FROM issues
		 WHERE project_id = $1 AND tracker_id = $2 AND subject = $3 AND author_id = $4`,
		projectID, trackerID, subject, authorID,
	).Scan(&i.ID, &i.ProjectID, &i.TrackerID, &i.Subject, &i.Description, &i.StatusID,
		&i.AuthorID, &i.AssignedToID, &i.CategoryID, &i.PriorityID, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find issue by identity: %w", err)
	}
	return &i, nil
}

func (s *PostgresStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO issues (project_id, tracker_id, subject, description, status_id, author_id,
		                     assigned_to_id, category_id, priority_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 RETURNING id, created_at, updated_at`,
		issue.ProjectID, issue.TrackerID, issue.Subject, issue.Description, issue.StatusID,
		issue.AuthorID, issue.AssignedToID, issue.CategoryID, issue.PriorityID, now,
	).Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateIssue(ctx context.Context, issue *models.Issue) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE issues SET description = $2, status_id = $3, assigned_to_id = $4,
		        category_id = $5, priority_id = $6, updated_at = NOW()
		 WHERE id = $1`,
		issue.ID, issue.Description, issue.StatusID, issue.AssignedToID,
		issue.CategoryID, issue.PriorityID)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Custom fields and values ---

// UpsertCustomField finds or creates a field by (kind, name). Attributes of
// an existing field are left untouched.
func (s *PostgresStore) UpsertCustomField(ctx context.Context, field *models.CustomField) (*models.CustomField, error) {
	var result models.CustomField
	err := s.pool.QueryRow(ctx,
		`INSERT INTO custom_fields (kind, name, field_format, default_value, searchable, is_filter)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (kind, name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, kind, name, field_format, default_value, searchable, is_filter`,
		field.Kind, field.Name, field.FieldFormat, field.DefaultValue, field.Searchable, field.IsFilter,
	).Scan(&result.ID, &result.Kind, &result.Name, &result.FieldFormat,
		&result.DefaultValue, &result.Searchable, &result.IsFilter)
	if err != nil {
		return nil, fmt.Errorf("upsert custom field: %w", err)
	}
	return &result, nil
}

func (s *PostgresStore) GetCustomFieldByName(ctx context.Context, kind, name string) (*models.CustomField, error) {
	var f models.CustomField
	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, name, field_format, default_value, searchable, is_filter
		 FROM custom_fields WHERE kind = $1 AND name = $2`, kind, name,
	).Scan(&f.ID, &f.Kind, &f.Name, &f.FieldFormat, &f.DefaultValue, &f.Searchable, &f.IsFilter)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get custom field by name: %w", err)
	}
	return &f, nil
}

func (s *PostgresStore) AttachCustomFieldToProject(ctx context.Context, fieldID, projectID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO custom_fields_projects (custom_field_id, project_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`, fieldID, projectID)
	if err != nil {
		return fmt.Errorf("attach custom field to project: %w", err)
	}
	return nil
}

func (s *PostgresStore) AttachCustomFieldToTracker(ctx context.Context, fieldID, trackerID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO custom_fields_trackers (custom_field_id, tracker_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`, fieldID, trackerID)
	if err != nil {
		return fmt.Errorf("attach custom field to tracker: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCustomValue(ctx context.Context, fieldID int64, ownerKind string, ownerID int64) (*models.CustomValue, error) {
	var v models.CustomValue
	err := s.pool.QueryRow(ctx,
		`SELECT id, custom_field_id, owner_kind, owner_id, value
		 FROM custom_values WHERE custom_field_id = $1 AND owner_kind = $2 AND owner_id = $3`,
		fieldID, ownerKind, ownerID,
	).Scan(&v.ID, &v.CustomFieldID, &v.OwnerKind, &v.OwnerID, &v.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get custom value: %w", err)
	}
	return &v, nil
}

func (s *PostgresStore) SetCustomValue(ctx context.Context, fieldID int64, ownerKind string, ownerID int64, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO custom_values (custom_field_id, owner_kind, owner_id, value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (custom_field_id, owner_kind, owner_id) DO UPDATE SET value = EXCLUDED.value`,
		fieldID, ownerKind, ownerID, value)
	if err != nil {
		return fmt.Errorf("set custom value: %w", err)
	}
	return nil
}

// --- Journals ---

func (s *PostgresStore) CreateJournal(ctx context.Context, journal *models.Journal) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO journals (issue_id, user_id, notes) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		journal.IssueID, journal.UserID, journal.Notes,
	).Scan(&journal.ID, &journal.CreatedAt)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
