package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/bugrelay/internal/cache"
	"github.com/kiranshivaraju/bugrelay/internal/store"
	"github.com/kiranshivaraju/bugrelay/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── mock store ──────────────────────────────────────────────────────────────

type testStore struct {
	pingErr error
}

func (s *testStore) Ping(_ context.Context) error { return s.pingErr }
func (s *testStore) GetSetting(_ context.Context, _ string) (string, error) {
	return "", store.ErrNotFound
}
func (s *testStore) GetAnonymousUser(_ context.Context) (*models.User, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) GetUserByLogin(_ context.Context, _ string) (*models.User, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) GetProjectByIdentifier(_ context.Context, _ string) (*models.Project, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) GetProjectTracker(_ context.Context, _ int64, _ string) (*models.Tracker, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) GetCategoryByName(_ context.Context, _ int64, _ string) (*models.IssueCategory, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) GetPriorityByName(_ context.Context, _ string) (*models.IssuePriority, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) GetDefaultIssueStatus(_ context.Context) (*models.IssueStatus, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) GetIssueStatus(_ context.Context, _ int64) (*models.IssueStatus, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) FindIssueByIdentity(_ context.Context, _, _ int64, _ string, _ int64) (*models.Issue, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) CreateIssue(_ context.Context, _ *models.Issue) error { return nil }
func (s *testStore) UpdateIssue(_ context.Context, _ *models.Issue) error { return nil }
func (s *testStore) UpsertCustomField(_ context.Context, f *models.CustomField) (*models.CustomField, error) {
	return f, nil
}
func (s *testStore) GetCustomFieldByName(_ context.Context, _, _ string) (*models.CustomField, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) AttachCustomFieldToProject(_ context.Context, _, _ int64) error { return nil }
func (s *testStore) AttachCustomFieldToTracker(_ context.Context, _, _ int64) error { return nil }
func (s *testStore) GetCustomValue(_ context.Context, _ int64, _ string, _ int64) (*models.CustomValue, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) SetCustomValue(_ context.Context, _ int64, _ string, _ int64, _ string) error {
	return nil
}
func (s *testStore) CreateJournal(_ context.Context, _ *models.Journal) error { return nil }

var _ store.Store = (*testStore)(nil)

// ─── mock cache ──────────────────────────────────────────────────────────────

type testCache struct {
	pingErr error
}

func (c *testCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *testCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *testCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *testCache) Ping(_ context.Context) error                                     { return c.pingErr }
func (c *testCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

var _ cache.Cache = (*testCache)(nil)

// ─── health handler tests ───────────────────────────────────────────────────

func TestHealthHandler_AllOK(t *testing.T) {
	h := healthHandler(&testStore{}, &testCache{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	services := data["services"].(map[string]any)
	assert.Equal(t, "ok", services["database"])
	assert.Equal(t, "ok", services["cache"])
}

func TestHealthHandler_DatabaseDegraded(t *testing.T) {
	h := healthHandler(&testStore{pingErr: errors.New("connection refused")}, &testCache{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "DEGRADED", errObj["code"])
}

func TestHealthHandler_CacheDegraded(t *testing.T) {
	h := healthHandler(&testStore{}, &testCache{pingErr: errors.New("redis down")})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler_BothDegraded(t *testing.T) {
	h := healthHandler(
		&testStore{pingErr: errors.New("db down")},
		&testCache{pingErr: errors.New("redis down")},
	)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ─── run() config validation tests ──────────────────────────────────────────

func TestRun_FailsOnMissingConfig(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnInvalidDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "not-a-valid-url")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

// ─── shutdown timeout constant test ─────────────────────────────────────────

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
