package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultPollTimeout  = 30 * time.Minute
)

// ProgressFunc receives Pending statuses while a job runs. It is called from the
// goroutine executing Run, at most once per poll.
type ProgressFunc func(JobStatus)

// Options configures a Poller. Zero values pick the defaults.
type Options struct {
	// Interval between polls. Fixed; there is no backoff or jitter.
	Interval time.Duration
	// Timeout caps the total wait after submission. Negative disables the cap.
	Timeout time.Duration
	Logger  *slog.Logger
	// Now and After replace the wall clock in tests.
	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
}

// Poller runs generation jobs against a VideoService.
type Poller struct {
	svc      VideoService
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

// NewPoller creates a Poller for svc.
func NewPoller(svc VideoService, opts Options) *Poller {
	p := &Poller{
		svc:      svc,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		now:      opts.Now,
		after:    opts.After,
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	if p.timeout == 0 {
		p.timeout = DefaultPollTimeout
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.after == nil {
		p.after = time.After
	}
	return p
}

// Submit validates req and sends it to the service.
// Invalid requests fail with a *SubmissionError before any network call.
func (p *Poller) Submit(ctx context.Context, req GenerationRequest) (JobHandle, error) {
	if err := req.Validate(); err != nil {
		return "", &SubmissionError{Reason: ReasonInvalidInput, Err: err}
	}

	handle, err := p.svc.Submit(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
		}
		return "", classifySubmit(err)
	}
	if handle == "" {
		return "", &SubmissionError{Reason: ReasonRejected, Err: errors.New("service returned no operation name")}
	}
	return handle, nil
}

// Poll performs a single status check.
func (p *Poller) Poll(ctx context.Context, handle JobHandle) (JobStatus, error) {
	status, err := p.svc.Poll(ctx, handle)
	if err != nil {
		var pe *PollError
		if errors.As(err, &pe) {
			return JobStatus{}, err
		}
		return JobStatus{}, &PollError{Handle: handle, Err: err}
	}
	return status, nil
}

// Run submits req and waits for the job. onProgress may be nil.
func (p *Poller) Run(ctx context.Context, req GenerationRequest, onProgress ProgressFunc) (Artifact, error) {
	handle, err := p.Submit(ctx, req)
	if err != nil {
		return Artifact{}, err
	}
	submittedAt := p.now()
	p.logger.Info("video job submitted", "handle", handle, "aspect_ratio", req.AspectRatio)
	return p.WaitSince(ctx, handle, submittedAt, onProgress)
}

// Wait is WaitSince measured from now.
func (p *Poller) Wait(ctx context.Context, handle JobHandle, onProgress ProgressFunc) (Artifact, error) {
	return p.WaitSince(ctx, handle, p.now(), onProgress)
}

// WaitSince polls handle until the job is terminal, the context is cancelled or
// the timeout elapses, then downloads the artifact. Elapsed time and the
// timeout both count from submittedAt.
func (p *Poller) WaitSince(ctx context.Context, handle JobHandle, submittedAt time.Time, onProgress ProgressFunc) (Artifact, error) {
	var last time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return Artifact{}, p.cancelled(ctx, handle)
		}

		status, err := p.Poll(ctx, handle)
		if err != nil {
			if ctx.Err() != nil {
				return Artifact{}, p.cancelled(ctx, handle)
			}
			return Artifact{}, err
		}

		switch status.Kind {
		case StatusSucceeded:
			p.logger.Info("video job succeeded", "handle", handle, "uri", status.ArtifactURI)
			if status.ArtifactURI == "" {
				return Artifact{}, &JobFailedError{Handle: handle, Message: "no download link"}
			}
			return p.download(ctx, status.ArtifactURI)
		case StatusFailed:
			p.logger.Warn("video job failed", "handle", handle, "message", status.Message)
			return Artifact{}, &JobFailedError{Handle: handle, Message: status.Message}
		}

		last = p.elapsed(submittedAt, last)
		if p.timeout > 0 && last >= p.timeout {
			p.logger.Warn("video job timed out", "handle", handle, "elapsed_s", last.Seconds())
			return Artifact{}, fmt.Errorf("%w: %s after %s", ErrPollTimeout, handle, p.timeout)
		}

		if onProgress != nil {
			onProgress(Pending(last))
		}

		wait := p.interval
		if p.timeout > 0 && p.timeout-last < wait {
			wait = p.timeout - last
		}

		select {
		case <-ctx.Done():
			return Artifact{}, p.cancelled(ctx, handle)
		case <-p.after(wait):
		}
	}
}

// Now reads the poller's clock. Callers use it to stamp submission time.
func (p *Poller) Now() time.Time {
	return p.now()
}

// Timeout returns the effective overall cap; zero or less means none.
func (p *Poller) Timeout() time.Duration {
	return p.timeout
}

// elapsed is the time since start, never negative and never below prev.
func (p *Poller) elapsed(start time.Time, prev time.Duration) time.Duration {
	d := p.now().Sub(start)
	if d < prev {
		d = prev
	}
	if d < 0 {
		d = 0
	}
	return d
}

func (p *Poller) cancelled(ctx context.Context, handle JobHandle) error {
	p.logger.Info("video job cancelled", "handle", handle)
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

func (p *Poller) download(ctx context.Context, uri string) (Artifact, error) {
	art, err := p.svc.Download(ctx, uri)
	if err != nil {
		if ctx.Err() != nil {
			return Artifact{}, fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
		}
		var de *DownloadError
		if errors.As(err, &de) {
			return Artifact{}, err
		}
		return Artifact{}, &DownloadError{URI: uri, Err: err}
	}
	art.MIMEType = InferMIME(uri, art.MIMEType, art.Data)
	return art, nil
}
