// Package sdk adapts google.golang.org/genai to media.Backend.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/mediaforge/internal/media"
	"google.golang.org/genai"
)

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	VideoModel string
	ImageModel string
	EditModel  string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements media.Backend with the official Gen AI SDK.
type Client struct {
	genai      *genai.Client
	videoModel string
	imageModel string
	editModel  string
	logger     *slog.Logger
}

// NewClient creates a Gemini API backed SDK client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		genai:      gc,
		videoModel: opts.VideoModel,
		imageModel: opts.ImageModel,
		editModel:  opts.EditModel,
		logger:     logger,
	}, nil
}

func (c *Client) Name() string { return "sdk" }

func (c *Client) Submit(ctx context.Context, req media.GenerationRequest) (media.JobHandle, error) {
	op, err := c.genai.Models.GenerateVideos(ctx, c.videoModel, req.Prompt,
		&genai.Image{ImageBytes: req.Image.Data, MIMEType: req.Image.MIMEType},
		&genai.GenerateVideosConfig{NumberOfVideos: 1, AspectRatio: req.AspectRatio},
	)
	if err != nil {
		return "", classifyError(err)
	}
	if op == nil || op.Name == "" {
		return "", errors.New("genai returned an operation without a name")
	}
	return media.JobHandle(op.Name), nil
}

func (c *Client) Poll(ctx context.Context, handle media.JobHandle) (media.JobStatus, error) {
	op, err := c.genai.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: string(handle)}, nil)
	if err != nil {
		return media.JobStatus{}, classifyError(err)
	}
	return operationStatus(op), nil
}

func (c *Client) Download(ctx context.Context, uri string) (media.Artifact, error) {
	data, err := c.genai.Files.Download(ctx, &genai.Video{URI: uri}, nil)
	if err != nil {
		de := &media.DownloadError{URI: uri, Err: classifyError(err)}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			de.StatusCode = apiErr.Code
		}
		return media.Artifact{}, de
	}
	return media.Artifact{Data: data}, nil
}

func (c *Client) GenerateImages(ctx context.Context, req media.ImageRequest) ([]media.Image, error) {
	resp, err := c.genai.Models.GenerateImages(ctx, c.imageModel, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(max(req.Count, 1)),
		AspectRatio:    req.AspectRatio,
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return nil, classifyError(err)
	}

	var images []media.Image
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		images = append(images, media.Image{Data: gi.Image.ImageBytes, MIMEType: gi.Image.MIMEType})
	}
	if len(images) == 0 {
		return nil, media.ErrNoImages
	}
	return images, nil
}

// EditImage sends the images then the instruction. The image model rejects
// candidate counts above one, so the config stays empty apart from modalities.
func (c *Client) EditImage(ctx context.Context, req media.EditRequest) (media.Image, error) {
	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}})
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	resp, err := c.genai.Models.GenerateContent(ctx, c.editModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	)
	if err != nil {
		return media.Image{}, classifyError(err)
	}

	if img, ok := firstInlineImage(resp); ok {
		return img, nil
	}
	return media.Image{}, media.ErrNoImages
}

func firstInlineImage(resp *genai.GenerateContentResponse) (media.Image, bool) {
	if resp == nil {
		return media.Image{}, false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return media.Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, true
			}
		}
	}
	return media.Image{}, false
}

func operationStatus(op *genai.GenerateVideosOperation) media.JobStatus {
	if op == nil || !op.Done {
		return media.Pending(0)
	}
	if len(op.Error) > 0 {
		if msg, ok := op.Error["message"].(string); ok && msg != "" {
			return media.Failed(msg)
		}
		return media.Failed(fmt.Sprint(op.Error))
	}
	if op.Response == nil {
		return media.Succeeded("")
	}
	for _, v := range op.Response.GeneratedVideos {
		if v != nil && v.Video != nil && v.Video.URI != "" {
			return media.Succeeded(v.Video.URI)
		}
	}
	if len(op.Response.RAIMediaFilteredReasons) > 0 {
		return media.Failed(strings.Join(op.Response.RAIMediaFilteredReasons, "; "))
	}
	return media.Succeeded("")
}

// classifyError tags SDK API errors with the media sentinels.
func classifyError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var p *genai.APIError
		if !errors.As(err, &p) || p == nil {
			return err
		}
		apiErr = *p
	}

	switch {
	case apiErr.Status == "RESOURCE_EXHAUSTED" || apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", media.ErrQuotaExceeded, err)
	case apiErr.Status == "UNAUTHENTICATED" || apiErr.Status == "PERMISSION_DENIED" ||
		apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", media.ErrUnauthorized, err)
	case apiErr.Status == "INVALID_ARGUMENT":
		return fmt.Errorf("%w: %w", media.ErrInvalidRequest, err)
	}
	return err
}

var _ media.Backend = (*Client)(nil)
