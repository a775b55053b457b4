package studio

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mediaforge/internal/store"
	"github.com/kiranshivaraju/mediaforge/pkg/models"
)

// --- mocks ---

type mockStore struct {
	mu            sync.Mutex
	jobs          map[uuid.UUID]*models.Job
	artifacts     map[uuid.UUID]*models.Artifact
	statusUpdates []statusUpdate
	createJobErr  error
}

type statusUpdate struct {
	ID     uuid.UUID
	Status string
	Update store.JobUpdate
}

func newMockStore() *mockStore {
	return &mockStore{
		jobs:      make(map[uuid.UUID]*models.Job),
		artifacts: make(map[uuid.UUID]*models.Artifact),
	}
}

func (s *mockStore) Ping(_ context.Context) error { return nil }
func (s *mockStore) GetDefaultTenant(_ context.Context) (*models.Tenant, error) { return nil, nil }
func (s *mockStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) { return nil, nil }
func (s *mockStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *mockStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error { return nil }
func (s *mockStore) ListAPIKeys(_ context.Context, _ uuid.UUID) ([]*models.APIKey, error) { return nil, nil }
func (s *mockStore) RevokeAPIKey(_ context.Context, _ uuid.UUID, _ uuid.UUID) error { return nil }
func (s *mockStore) FailUnfinishedJobs(_ context.Context, _ string) (int64, error) { return 0, nil }

func (s *mockStore) CreateJob(_ context.Context, job *models.Job) error {
	if s.createJobErr != nil {
		return s.createJobErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *mockStore) GetJob(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *mockStore) ListJobs(_ context.Context, f store.JobFilter) ([]*models.Job, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if j.TenantID == f.TenantID && (f.Kind == "" || j.Kind == f.Kind) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

var mockTransitions = map[string][]string{
	models.JobStatusPending: {models.JobStatusRunning, models.JobStatusFailed, models.JobStatusCancelled},
	models.JobStatusRunning: {models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled},
}

func (s *mockStore) UpdateJobStatus(_ context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if !slices.Contains(mockTransitions[j.Status], status) {
		return store.ErrInvalidTransition
	}
	u := store.ApplyJobUpdateOptions(opts...)
	j.Status = status
	if u.ErrorMessage != nil {
		j.ErrorMessage = u.ErrorMessage
	}
	if u.OperationName != nil {
		j.OperationName = u.OperationName
	}
	if u.ArtifactID != nil {
		j.ArtifactID = u.ArtifactID
	}
	if u.ElapsedSeconds != nil {
		j.ElapsedSeconds = *u.ElapsedSeconds
	}
	s.statusUpdates = append(s.statusUpdates, statusUpdate{ID: id, Status: status, Update: u})
	return nil
}

func (s *mockStore) UpdateJobProgress(_ context.Context, id uuid.UUID, secs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != models.JobStatusRunning {
		return store.ErrNotFound
	}
	j.ElapsedSeconds = max(j.ElapsedSeconds, secs)
	return nil
}

func (s *mockStore) CreateArtifact(_ context.Context, a *models.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[a.ID] = a
	return nil
}

func (s *mockStore) GetArtifact(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok || a.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (s *mockStore) job(id uuid.UUID) models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

func (s *mockStore) jobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *mockStore) artifactCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artifacts)
}

type mockCache struct {
	mu       sync.Mutex
	values   map[string][]byte
	statuses map[uuid.UUID]string
	progress map[uuid.UUID]int
	locks    map[string]string
}

func newMockCache() *mockCache {
	return &mockCache{
		values:   make(map[string][]byte),
		statuses: make(map[uuid.UUID]string),
		progress: make(map[uuid.UUID]int),
		locks:    make(map[string]string),
	}
}

func (c *mockCache) Ping(_ context.Context) error { return nil }
func (c *mockCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, nil
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *mockCache) SetJobStatus(_ context.Context, jobID uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[jobID] = status
	return nil
}

func (c *mockCache) GetJobStatus(_ context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[jobID]
	return s, ok, nil
}

func (c *mockCache) SetJobProgress(_ context.Context, jobID uuid.UUID, secs int, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress[jobID] = secs
	return nil
}

func (c *mockCache) GetJobProgress(_ context.Context, jobID uuid.UUID) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.progress[jobID]
	return p, ok, nil
}

func (c *mockCache) AcquireLock(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.locks[key]; held {
		return false, nil
	}
	c.locks[key] = token
	return true, nil
}

func (c *mockCache) ReleaseLock(_ context.Context, key, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] == token {
		delete(c.locks, key)
	}
	return nil
}

func (c *mockCache) lockCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
