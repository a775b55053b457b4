// Package fake provides an in-process media backend for local development and tests.
package fake

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/kiranshivaraju/mediaforge/internal/media"
)

// SampleVideo is returned by the default Download. It starts with an MP4 ftyp box.
var SampleVideo = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}

// Service satisfies media.Backend. Nil funcs return zero values.
type Service struct {
	Name_              string
	SubmitFunc         func(ctx context.Context, req media.GenerationRequest) (media.JobHandle, error)
	PollFunc           func(ctx context.Context, handle media.JobHandle) (media.JobStatus, error)
	DownloadFunc       func(ctx context.Context, uri string) (media.Artifact, error)
	GenerateImagesFunc func(ctx context.Context, req media.ImageRequest) ([]media.Image, error)
	EditImageFunc      func(ctx context.Context, req media.EditRequest) (media.Image, error)

	mu     sync.Mutex
	counts Counts
}

// Counts records how often each method was called.
type Counts struct {
	Submit, Poll, Download, GenerateImages, EditImage int
}

func (s *Service) Name() string { return s.Name_ }

// Calls returns a snapshot of the call counters.
func (s *Service) Calls() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

func (s *Service) count(f func(*Counts)) {
	s.mu.Lock()
	f(&s.counts)
	s.mu.Unlock()
}

func (s *Service) Submit(ctx context.Context, req media.GenerationRequest) (media.JobHandle, error) {
	s.count(func(c *Counts) { c.Submit++ })
	if s.SubmitFunc != nil {
		return s.SubmitFunc(ctx, req)
	}
	return "", nil
}

func (s *Service) Poll(ctx context.Context, handle media.JobHandle) (media.JobStatus, error) {
	s.count(func(c *Counts) { c.Poll++ })
	if s.PollFunc != nil {
		return s.PollFunc(ctx, handle)
	}
	return media.JobStatus{}, nil
}

func (s *Service) Download(ctx context.Context, uri string) (media.Artifact, error) {
	s.count(func(c *Counts) { c.Download++ })
	if s.DownloadFunc != nil {
		return s.DownloadFunc(ctx, uri)
	}
	return media.Artifact{}, nil
}

func (s *Service) GenerateImages(ctx context.Context, req media.ImageRequest) ([]media.Image, error) {
	s.count(func(c *Counts) { c.GenerateImages++ })
	if s.GenerateImagesFunc != nil {
		return s.GenerateImagesFunc(ctx, req)
	}
	return nil, nil
}

func (s *Service) EditImage(ctx context.Context, req media.EditRequest) (media.Image, error) {
	s.count(func(c *Counts) { c.EditImage++ })
	if s.EditImageFunc != nil {
		return s.EditImageFunc(ctx, req)
	}
	return media.Image{}, nil
}

// NewScripted returns a Service whose Poll walks through statuses in order,
// repeating the last one once exhausted. Download returns artifact for any URI.
func NewScripted(statuses []media.JobStatus, artifact media.Artifact) *Service {
	var (
		mu   sync.Mutex
		next int
		ops  int
	)
	return &Service{
		Name_: "fake",
		SubmitFunc: func(_ context.Context, _ media.GenerationRequest) (media.JobHandle, error) {
			mu.Lock()
			defer mu.Unlock()
			ops++
			return media.JobHandle(fmt.Sprintf("operations/fake-%d", ops)), nil
		},
		PollFunc: func(_ context.Context, _ media.JobHandle) (media.JobStatus, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(statuses) == 0 {
				return media.Pending(0), nil
			}
			st := statuses[min(next, len(statuses)-1)]
			next++
			return st, nil
		},
		DownloadFunc: func(_ context.Context, _ string) (media.Artifact, error) {
			return artifact, nil
		},
		GenerateImagesFunc: func(_ context.Context, req media.ImageRequest) ([]media.Image, error) {
			n := max(req.Count, 1)
			out := make([]media.Image, 0, n)
			for i := 0; i < n; i++ {
				img, err := solidPNG(64, 64, color.NRGBA{R: uint8(40 * i), G: 120, B: 200, A: 255})
				if err != nil {
					return nil, err
				}
				out = append(out, img)
			}
			return out, nil
		},
		EditImageFunc: func(_ context.Context, req media.EditRequest) (media.Image, error) {
			if len(req.Images) == 0 {
				return media.Image{}, media.ErrInvalidImage
			}
			return req.Images[0], nil
		},
	}
}

// NewService returns a Service that reports two pending polls before
// succeeding with SampleVideo.
func NewService() *Service {
	return NewScripted(
		[]media.JobStatus{media.Pending(0), media.Pending(0), media.Succeeded("fake://videos/sample.mp4")},
		media.Artifact{Data: SampleVideo, MIMEType: "video/mp4"},
	)
}

// NewFailingService returns a Service whose every call fails with err.
func NewFailingService(err error) *Service {
	return &Service{
		Name_: "fake-failing",
		SubmitFunc: func(_ context.Context, _ media.GenerationRequest) (media.JobHandle, error) {
			return "", err
		},
		PollFunc: func(_ context.Context, _ media.JobHandle) (media.JobStatus, error) {
			return media.JobStatus{}, err
		},
		DownloadFunc: func(_ context.Context, _ string) (media.Artifact, error) {
			return media.Artifact{}, err
		},
		GenerateImagesFunc: func(_ context.Context, _ media.ImageRequest) ([]media.Image, error) {
			return nil, err
		},
		EditImageFunc: func(_ context.Context, _ media.EditRequest) (media.Image, error) {
			return media.Image{}, err
		},
	}
}

// NewHangingService returns a Service whose jobs never leave Pending and whose
// Poll blocks until the context is cancelled.
func NewHangingService() *Service {
	s := NewScripted(nil, media.Artifact{})
	s.Name_ = "fake-hanging"
	s.PollFunc = func(ctx context.Context, _ media.JobHandle) (media.JobStatus, error) {
		<-ctx.Done()
		return media.JobStatus{}, ctx.Err()
	}
	return s
}

func solidPNG(w, h int, c color.Color) (media.Image, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, c), imaging.PNG); err != nil {
		return media.Image{}, fmt.Errorf("encoding placeholder image: %w", err)
	}
	return media.Image{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}

var _ media.Backend = (*Service)(nil)
