// Package media drives generation jobs against a remote generative-media API.
// The Poller submits a video job, polls it on a fixed interval and downloads the
// finished artifact; backends in the sub-packages speak the actual wire protocols.
package media

import (
	"context"
	"math"
	"time"
)

// Image is an encoded picture plus its MIME type.
type Image struct {
	Data     []byte
	MIMEType string
}

// JobHandle identifies an in-flight remote job. It is the remote operation name.
type JobHandle string

// StatusKind tags a JobStatus.
type StatusKind int

const (
	StatusPending StatusKind = iota
	StatusSucceeded
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// JobStatus is the result of one poll. Only the field matching Kind is set.
type JobStatus struct {
	Kind        StatusKind
	Elapsed     time.Duration // Pending
	ArtifactURI string        // Succeeded
	Message     string        // Failed
}

func Pending(elapsed time.Duration) JobStatus {
	return JobStatus{Kind: StatusPending, Elapsed: elapsed}
}

func Succeeded(uri string) JobStatus {
	return JobStatus{Kind: StatusSucceeded, ArtifactURI: uri}
}

func Failed(message string) JobStatus {
	return JobStatus{Kind: StatusFailed, Message: message}
}

// IsTerminal returns true once no further polling may follow.
func (s JobStatus) IsTerminal() bool {
	return s.Kind == StatusSucceeded || s.Kind == StatusFailed
}

// ElapsedSeconds rounds Elapsed to whole seconds.
func (s JobStatus) ElapsedSeconds() int {
	return int(math.Round(s.Elapsed.Seconds()))
}

// Artifact is the media produced by a successful job.
type Artifact struct {
	Data     []byte
	MIMEType string
}

// ImageRequest asks for images generated from text alone.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	Count       int
}

// EditRequest asks for one image generated from source images plus an instruction.
// The first image is the base; any further images are supporting references.
type EditRequest struct {
	Images []Image
	Prompt string
}

// VideoService is the remote long-running job contract.
type VideoService interface {
	// Submit starts a job and returns its handle.
	Submit(ctx context.Context, req GenerationRequest) (JobHandle, error)
	// Poll performs one status check. Pending statuses carry no elapsed time.
	Poll(ctx context.Context, handle JobHandle) (JobStatus, error)
	// Download fetches the artifact behind a succeeded job's URI.
	Download(ctx context.Context, uri string) (Artifact, error)
}

// ImageService generates still images synchronously.
type ImageService interface {
	GenerateImages(ctx context.Context, req ImageRequest) ([]Image, error)
	EditImage(ctx context.Context, req EditRequest) (Image, error)
}

// Backend is everything the studio needs from a remote provider.
type Backend interface {
	VideoService
	ImageService
	// Name returns the backend identifier (e.g. "gemini", "sdk", "fake").
	Name() string
}
