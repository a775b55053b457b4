package studio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mediaforge/internal/cache"
	"github.com/kiranshivaraju/mediaforge/internal/media"
	"github.com/kiranshivaraju/mediaforge/internal/store"
	"github.com/kiranshivaraju/mediaforge/pkg/models"
	"github.com/kiranshivaraju/mediaforge/pkg/prompt"
)

// VideoInput is an image-to-video request. Image is a data URL; when empty the
// session's last generated image is used instead.
type VideoInput struct {
	TenantID    uuid.UUID
	SessionID   string
	Prompt      string
	Image       string
	AspectRatio string
}

// TriggerVideo validates the input, creates a pending job and runs it in a
// background goroutine. It returns as soon as the job is recorded.
func (s *Service) TriggerVideo(ctx context.Context, in VideoInput) (*models.Job, error) {
	img, err := s.videoSource(ctx, in)
	if err != nil {
		return nil, err
	}

	req := media.NewGenerationRequest(img, in.Prompt, in.AspectRatio)
	if err := req.Validate(); err != nil {
		return nil, &media.SubmissionError{Reason: media.ReasonInvalidInput, Err: err}
	}
	remote := media.NewGenerationRequest(img, s.prompts.BuildVideoPrompt(prompt.VideoParams{
		Instruction: req.Prompt,
		AspectRatio: req.AspectRatio,
	}), req.AspectRatio)

	job := newJob(in.TenantID, models.JobKindVideo, req.Prompt, req.AspectRatio)

	lockKey := cache.GenerationLockKey(in.TenantID, models.JobKindVideo, digest(img.Data))
	acquired, err := s.cache.AcquireLock(ctx, lockKey, job.ID.String(), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquiring generation lock: %w", err)
	}
	if !acquired {
		return nil, ErrAlreadyRunning
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		_ = s.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey, job.ID.String())
		return nil, fmt.Errorf("creating job: %w", err)
	}
	_ = s.cache.SetJobStatus(ctx, job.ID, models.JobStatusPending, statusTTL)

	if in.SessionID != "" {
		s.markActive(ctx, in.TenantID, in.SessionID, &job.ID)
	}

	runCtx, cancel := context.WithCancelCause(s.baseCtx)
	r := &run{cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.runs[job.ID] = r
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runVideo(runCtx, r, job, in.SessionID, remote, lockKey)

	s.logger.Info("video job accepted", "job_id", job.ID, "tenant_id", in.TenantID, "aspect_ratio", req.AspectRatio)
	return job, nil
}

// runVideo drives one job to a terminal status. It recovers from panics and
// always releases the lock and the registry slot.
func (s *Service) runVideo(ctx context.Context, r *run, job *models.Job, sessionID string, req media.GenerationRequest, lockKey string) {
	// Status writes must land even after the run is cancelled.
	bg := context.WithoutCancel(ctx)

	defer s.wg.Done()
	defer close(r.done)
	defer func() {
		s.mu.Lock()
		delete(s.runs, job.ID)
		s.mu.Unlock()
		r.cancel(nil)
	}()
	defer func() {
		if err := s.cache.ReleaseLock(bg, lockKey, job.ID.String()); err != nil {
			s.logger.Warn("releasing generation lock", "job_id", job.ID, "error", err)
		}
		if sessionID != "" {
			s.clearActive(bg, job.TenantID, sessionID, job.ID)
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic in video job", "error", rec, "job_id", job.ID)
			s.setStatus(bg, job.ID, models.JobStatusFailed, store.WithErrorMessage(fmt.Sprintf("panic: %v", rec)))
		}
	}()

	handle, err := s.poller.Submit(ctx, req)
	if err != nil {
		s.finishWithError(bg, job.ID, err, 0)
		return
	}
	submittedAt := s.poller.Now()
	s.setStatus(bg, job.ID, models.JobStatusRunning, store.WithOperationName(string(handle)))
	s.logger.Info("video job submitted", "job_id", job.ID, "handle", handle)

	var elapsed int
	art, err := s.poller.WaitSince(ctx, handle, submittedAt, func(st media.JobStatus) {
		elapsed = st.ElapsedSeconds()
		_ = s.cache.SetJobProgress(bg, job.ID, elapsed, statusTTL)
		if err := s.store.UpdateJobProgress(bg, job.ID, elapsed); err != nil {
			s.logger.Warn("recording job progress", "job_id", job.ID, "error", err)
		}
	})
	if err != nil {
		s.finishWithError(bg, job.ID, err, elapsed)
		return
	}

	stored, err := s.saveArtifact(bg, job, art.Data, art.MIMEType)
	if err != nil {
		s.finishWithError(bg, job.ID, err, elapsed)
		return
	}

	s.setStatus(bg, job.ID, models.JobStatusCompleted,
		store.WithArtifactID(stored.ID), store.WithElapsedSeconds(elapsed))
	s.logger.Info("video job completed", "job_id", job.ID, "bytes", stored.SizeBytes, "mime_type", stored.MIMEType, "elapsed_s", elapsed)
}

func (s *Service) finishWithError(ctx context.Context, jobID uuid.UUID, err error, elapsed int) {
	status := models.JobStatusFailed
	msg := err.Error()
	switch {
	case errors.Is(err, ErrShuttingDown):
		msg = ErrShuttingDown.Error()
	case errors.Is(err, media.ErrCancelled):
		status = models.JobStatusCancelled
		msg = media.ErrCancelled.Error()
	}
	s.logger.Warn("video job ended", "job_id", jobID, "status", status, "error", err)
	s.setStatus(ctx, jobID, status, store.WithErrorMessage(msg), store.WithElapsedSeconds(elapsed))
}

// Cancel stops an in-flight video job and waits until its cancelled status is
// recorded. Only jobs running in this process can be cancelled.
func (s *Service) Cancel(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return nil, ErrNotCancellable
	}

	s.mu.Lock()
	r, ok := s.runs[jobID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotCancellable
	}

	r.cancel(nil)
	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.logger.Info("video job cancelled", "job_id", jobID)
	return s.GetJob(ctx, tenantID, jobID)
}

// videoSource picks the explicit data URL, falling back to the session handoff.
// An absent image is left for request validation to reject.
func (s *Service) videoSource(ctx context.Context, in VideoInput) (media.Image, error) {
	src := in.Image
	if src == "" && in.SessionID != "" {
		sess, err := s.GetSession(ctx, in.TenantID, in.SessionID)
		if err != nil {
			return media.Image{}, err
		}
		src = sess.LastImage
		if src == "" {
			src = sess.ReferenceImage
		}
	}
	if src == "" {
		return media.Image{}, nil
	}

	img, err := media.ImageFromDataURL(src)
	if err != nil {
		return media.Image{}, &media.SubmissionError{Reason: media.ReasonInvalidInput, Err: err}
	}
	return img, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
