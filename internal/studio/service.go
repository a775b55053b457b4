// Package studio orchestrates generation jobs: it persists them, keeps their
// live status in the cache, runs video jobs in the background and hands images
// between pages through per-session state.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mediaforge/internal/cache"
	"github.com/kiranshivaraju/mediaforge/internal/media"
	"github.com/kiranshivaraju/mediaforge/internal/store"
	"github.com/kiranshivaraju/mediaforge/pkg/models"
	"github.com/kiranshivaraju/mediaforge/pkg/prompt"
)

var (
	ErrAlreadyRunning   = errors.New("a generation for this image is already running")
	ErrJobNotFound      = errors.New("job not found")
	ErrNotCancellable   = errors.New("job is not running")
	ErrArtifactNotReady = errors.New("artifact not ready")
	ErrSessionNotFound  = errors.New("session not found")
	ErrShuttingDown     = errors.New("server shutting down")
)

const (
	statusTTL     = 24 * time.Hour
	lockMargin    = 5 * time.Minute
	maxImageCount = 4
)

// Config holds the studio settings that are not owned by the poller.
type Config struct {
	SessionTTL      time.Duration
	MaxReferenceDim int
}

// Service is safe for concurrent use.
type Service struct {
	backend media.Backend
	poller  *media.Poller
	store   store.Store
	cache   cache.Cache
	prompts prompt.Builder
	logger  *slog.Logger

	sessionTTL time.Duration
	maxRefDim  int
	lockTTL    time.Duration

	baseCtx context.Context
	stop    context.CancelCauseFunc

	mu   sync.Mutex
	runs map[uuid.UUID]*run
	wg   sync.WaitGroup
}

type run struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// NewService creates a Service. pollOpts configures the video poller.
func NewService(backend media.Backend, pollOpts media.Options, st store.Store, ca cache.Cache, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if pollOpts.Logger == nil {
		pollOpts.Logger = logger
	}
	poller := media.NewPoller(backend, pollOpts)

	// The lock must outlive the longest possible run; without a timeout fall
	// back to the status TTL.
	lockTTL := statusTTL
	if t := poller.Timeout(); t > 0 {
		lockTTL = t + lockMargin
	}

	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = statusTTL
	}

	baseCtx, stop := context.WithCancelCause(context.Background())
	return &Service{
		backend:    backend,
		poller:     poller,
		store:      st,
		cache:      ca,
		logger:     logger.With("component", "studio"),
		sessionTTL: sessionTTL,
		maxRefDim:  cfg.MaxReferenceDim,
		lockTTL:    lockTTL,
		baseCtx:    baseCtx,
		stop:       stop,
		runs:       make(map[uuid.UUID]*run),
	}
}

// Backend returns the name of the media backend in use.
func (s *Service) Backend() string {
	return s.backend.Name()
}

// GetJob returns the job with live status and progress overlaid from the cache.
func (s *Service) GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.store.GetJob(ctx, jobID, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	if job.IsTerminal() {
		return job, nil
	}

	if status, ok, err := s.cache.GetJobStatus(ctx, jobID); err == nil && ok {
		job.Status = status
	}
	if secs, ok, err := s.cache.GetJobProgress(ctx, jobID); err == nil && ok && secs > job.ElapsedSeconds {
		job.ElapsedSeconds = secs
	}
	return job, nil
}

// ListJobs returns a page of the tenant's jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error) {
	jobs, total, err := s.store.ListJobs(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, total, nil
}

// Artifact returns the stored output of a completed job.
func (s *Service) Artifact(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Artifact, error) {
	job, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if job.ArtifactID == nil {
		return nil, ErrArtifactNotReady
	}
	art, err := s.store.GetArtifact(ctx, *job.ArtifactID, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrArtifactNotReady
		}
		return nil, fmt.Errorf("getting artifact: %w", err)
	}
	return art, nil
}

// Shutdown cancels every background run and waits for them to record their
// final status, or for ctx to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stop(ErrShuttingDown)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for generation jobs: %w", ctx.Err())
	}
}

// setStatus moves the job in the store and mirrors the new status into the cache.
func (s *Service) setStatus(ctx context.Context, jobID uuid.UUID, status string, opts ...store.JobUpdateOption) {
	if err := s.store.UpdateJobStatus(ctx, jobID, status, opts...); err != nil {
		s.logger.Error("updating job status", "job_id", jobID, "status", status, "error", err)
	}
	_ = s.cache.SetJobStatus(ctx, jobID, status, statusTTL)
}

func (s *Service) saveArtifact(ctx context.Context, job *models.Job, data []byte, mimeType string) (*models.Artifact, error) {
	art := &models.Artifact{
		ID:        uuid.New(),
		JobID:     job.ID,
		TenantID:  job.TenantID,
		MIMEType:  mimeType,
		SizeBytes: int64(len(data)),
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateArtifact(ctx, art); err != nil {
		return nil, fmt.Errorf("storing artifact: %w", err)
	}
	return art, nil
}

func newJob(tenantID uuid.UUID, kind, promptText, aspectRatio string) *models.Job {
	now := time.Now().UTC()
	return &models.Job{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Kind:        kind,
		Status:      models.JobStatusPending,
		Prompt:      promptText,
		AspectRatio: aspectRatio,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
