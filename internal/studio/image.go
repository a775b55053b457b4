package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mediaforge/internal/media"
	"github.com/kiranshivaraju/mediaforge/internal/store"
	"github.com/kiranshivaraju/mediaforge/pkg/dataurl"
	"github.com/kiranshivaraju/mediaforge/pkg/models"
	"github.com/kiranshivaraju/mediaforge/pkg/prompt"
)

// DefaultImageAspectRatio applies to text-only image requests.
const DefaultImageAspectRatio = "1:1"

// ImageInput asks for Count images. With a Reference data URL each image is
// generated from the reference plus the prompt; without one, from the prompt alone.
type ImageInput struct {
	TenantID    uuid.UUID
	SessionID   string
	Prompt      string
	AspectRatio string
	Count       int
	Reference   string
}

// EditInput adds Object (optional) to Image as described by Prompt. When Image
// is empty the session's last generated image is edited.
type EditInput struct {
	TenantID  uuid.UUID
	SessionID string
	Prompt    string
	Image     string
	Object    string
}

// ImageResult is a finished synchronous image job.
type ImageResult struct {
	Job    *models.Job
	Images []media.Image
}

// GenerateImages runs an image job synchronously.
func (s *Service) GenerateImages(ctx context.Context, in ImageInput) (*ImageResult, error) {
	promptText := strings.TrimSpace(in.Prompt)
	if promptText == "" {
		return nil, fmt.Errorf("%w: prompt is required", media.ErrInvalidRequest)
	}
	count := in.Count
	if count == 0 {
		count = 1
	}
	if count < 1 || count > maxImageCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", media.ErrInvalidRequest, maxImageCount)
	}

	if in.Reference != "" {
		ref, err := s.prepare(in.Reference)
		if err != nil {
			return nil, err
		}
		editPrompt := s.prompts.BuildEditPrompt(prompt.EditParams{
			Instruction: promptText,
			Width:       ref.Width,
			Height:      ref.Height,
		})
		result, err := s.runImageJob(ctx, in.TenantID, models.JobKindImage, promptText, "", func(ctx context.Context) ([]media.Image, error) {
			// The edit model returns one image per call.
			images := make([]media.Image, 0, count)
			for i := 0; i < count; i++ {
				img, err := s.backend.EditImage(ctx, media.EditRequest{Images: []media.Image{ref.Image}, Prompt: editPrompt})
				if err != nil {
					return nil, err
				}
				images = append(images, img)
			}
			return images, nil
		})
		if err != nil {
			return nil, err
		}
		s.rememberImages(ctx, in.TenantID, in.SessionID, dataurl.Encode(ref.Image.MIMEType, ref.Image.Data), result.Images)
		return result, nil
	}

	aspectRatio := strings.TrimSpace(in.AspectRatio)
	if aspectRatio == "" {
		aspectRatio = DefaultImageAspectRatio
	}
	if !media.SupportedAspectRatio(media.ImageAspectRatios, aspectRatio) {
		return nil, fmt.Errorf("%w: unsupported aspect ratio %q", media.ErrInvalidRequest, aspectRatio)
	}

	result, err := s.runImageJob(ctx, in.TenantID, models.JobKindImage, promptText, aspectRatio, func(ctx context.Context) ([]media.Image, error) {
		return s.backend.GenerateImages(ctx, media.ImageRequest{Prompt: promptText, AspectRatio: aspectRatio, Count: count})
	})
	if err != nil {
		return nil, err
	}
	s.rememberImages(ctx, in.TenantID, in.SessionID, "", result.Images)
	return result, nil
}

// EditImage places an object into a base image, keeping the base's dimensions.
func (s *Service) EditImage(ctx context.Context, in EditInput) (*ImageResult, error) {
	promptText := strings.TrimSpace(in.Prompt)
	if promptText == "" {
		return nil, fmt.Errorf("%w: prompt is required", media.ErrInvalidRequest)
	}

	src := in.Image
	if src == "" && in.SessionID != "" {
		sess, err := s.GetSession(ctx, in.TenantID, in.SessionID)
		if err != nil {
			return nil, err
		}
		src = sess.LastImage
	}
	if src == "" {
		return nil, fmt.Errorf("%w: image is required", media.ErrInvalidImage)
	}

	base, err := s.prepare(src)
	if err != nil {
		return nil, err
	}
	images := []media.Image{base.Image}
	if in.Object != "" {
		obj, err := s.prepare(in.Object)
		if err != nil {
			return nil, err
		}
		images = append(images, obj.Image)
	}

	editPrompt := s.prompts.BuildEditPrompt(prompt.EditParams{
		Instruction: promptText,
		Width:       base.Width,
		Height:      base.Height,
	})
	result, err := s.runImageJob(ctx, in.TenantID, models.JobKindEdit, promptText, "", func(ctx context.Context) ([]media.Image, error) {
		img, err := s.backend.EditImage(ctx, media.EditRequest{Images: images, Prompt: editPrompt})
		if err != nil {
			return nil, err
		}
		return []media.Image{img}, nil
	})
	if err != nil {
		return nil, err
	}
	s.rememberImages(ctx, in.TenantID, in.SessionID, "", result.Images)
	return result, nil
}

// runImageJob records a job around a synchronous generation and stores every
// image it returns as an artifact.
func (s *Service) runImageJob(ctx context.Context, tenantID uuid.UUID, kind, promptText, aspectRatio string,
	generate func(context.Context) ([]media.Image, error)) (*ImageResult, error) {
	job := newJob(tenantID, kind, promptText, aspectRatio)
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	bg := context.WithoutCancel(ctx)
	s.setStatus(bg, job.ID, models.JobStatusRunning)

	images, err := generate(ctx)
	if err == nil && len(images) == 0 {
		err = media.ErrNoImages
	}
	if err != nil {
		s.setStatus(bg, job.ID, models.JobStatusFailed, store.WithErrorMessage(err.Error()))
		s.logger.Warn("image job failed", "job_id", job.ID, "kind", kind, "error", err)
		return nil, err
	}

	var first *models.Artifact
	for i := range images {
		images[i].MIMEType = media.InferMIME("", images[i].MIMEType, images[i].Data)
		art, err := s.saveArtifact(bg, job, images[i].Data, images[i].MIMEType)
		if err != nil {
			s.setStatus(bg, job.ID, models.JobStatusFailed, store.WithErrorMessage(err.Error()))
			return nil, err
		}
		if first == nil {
			first = art
		}
	}
	s.setStatus(bg, job.ID, models.JobStatusCompleted, store.WithArtifactID(first.ID))

	job.Status = models.JobStatusCompleted
	job.ArtifactID = &first.ID
	s.logger.Info("image job completed", "job_id", job.ID, "kind", kind, "images", len(images))
	return &ImageResult{Job: job, Images: images}, nil
}

func (s *Service) prepare(src string) (media.Reference, error) {
	img, err := media.ImageFromDataURL(src)
	if err != nil {
		return media.Reference{}, err
	}
	return media.PrepareReference(img, s.maxRefDim)
}

// rememberImages saves the first generated image, and the reference when
// given, to the session for the next page.
func (s *Service) rememberImages(ctx context.Context, tenantID uuid.UUID, sessionID, reference string, images []media.Image) {
	if sessionID == "" || len(images) == 0 {
		return
	}
	last := dataurl.Encode(images[0].MIMEType, images[0].Data)
	s.updateSession(context.WithoutCancel(ctx), tenantID, sessionID, func(sess *Session) {
		sess.LastImage = last
		if reference != "" {
			sess.ReferenceImage = reference
		}
	})
}
