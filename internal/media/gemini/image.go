package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/kiranshivaraju/mediaforge/internal/media"
)

// GenerateImages asks Imagen for req.Count JPEG images from a text prompt.
func (c *Client) GenerateImages(ctx context.Context, req media.ImageRequest) ([]media.Image, error) {
	payload := predictRequest{
		Instances: []predictInstance{{Prompt: req.Prompt}},
		Parameters: predictParameters{
			AspectRatio:    req.AspectRatio,
			SampleCount:    max(req.Count, 1),
			OutputMIMEType: "image/jpeg",
		},
	}

	var resp predictResponse
	path := fmt.Sprintf("/models/%s:predict", url.PathEscape(c.imageModel))
	if err := c.postJSON(ctx, path, payload, &resp); err != nil {
		return nil, err
	}

	images := make([]media.Image, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.BytesBase64Encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: prediction payload: %v", ErrInvalidResponse, err)
		}
		mimeType := p.MIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		images = append(images, media.Image{Data: data, MIMEType: mimeType})
	}
	if len(images) == 0 {
		return nil, media.ErrNoImages
	}
	return images, nil
}

// EditImage sends the images followed by the instruction to the Gemini image
// model and returns the first image part of the reply.
func (c *Client) EditImage(ctx context.Context, req media.EditRequest) (media.Image, error) {
	parts := make([]contentPart, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, contentPart{InlineData: &inlineData{
			MIMEType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	parts = append(parts, contentPart{Text: req.Prompt})

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	var resp generateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.editModel))
	if err := c.postJSON(ctx, path, payload, &resp); err != nil {
		return media.Image{}, err
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return media.Image{}, fmt.Errorf("%w: inline data: %v", ErrInvalidResponse, err)
			}
			return media.Image{Data: data, MIMEType: part.InlineData.MIMEType}, nil
		}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		c.logger.Warn("gemini blocked prompt", "reason", resp.PromptFeedback.BlockReason, "model", c.editModel)
	}
	return media.Image{}, media.ErrNoImages
}

// --- predict / generateContent wire types ---

type predictResponse struct {
	Predictions []prediction `json:"predictions"`
}

type prediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type content struct {
	Role  string        `json:"role,omitempty"`
	Parts []contentPart `json:"parts"`
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}
