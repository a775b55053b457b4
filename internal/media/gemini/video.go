package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kiranshivaraju/mediaforge/internal/media"
)

// Submit starts a predictLongRunning operation and returns its name.
func (c *Client) Submit(ctx context.Context, req media.GenerationRequest) (media.JobHandle, error) {
	payload := predictRequest{
		Instances: []predictInstance{{
			Prompt: req.Prompt,
			Image: &inlineImage{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image.Data),
				MIMEType:           req.Image.MIMEType,
			},
		}},
		Parameters: predictParameters{
			AspectRatio: req.AspectRatio,
			SampleCount: 1,
		},
	}

	var op operation
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(c.videoModel))
	if err := c.postJSON(ctx, path, payload, &op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", fmt.Errorf("%w: operation has no name", ErrInvalidResponse)
	}

	c.logger.Debug("gemini operation started", "operation", op.Name, "model", c.videoModel)
	return media.JobHandle(op.Name), nil
}

// Poll fetches the operation once and maps it onto a JobStatus.
func (c *Client) Poll(ctx context.Context, handle media.JobHandle) (media.JobStatus, error) {
	name := strings.TrimLeft(string(handle), "/")
	if name == "" {
		return media.JobStatus{}, errors.New("empty operation name")
	}

	var op operation
	if err := c.getJSON(ctx, "/"+name, &op); err != nil {
		return media.JobStatus{}, err
	}
	return op.status(), nil
}

// Download fetches the artifact with the API key appended as the key parameter.
func (c *Client) Download(ctx context.Context, uri string) (media.Artifact, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return media.Artifact{}, &media.DownloadError{URI: uri, Err: err}
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return media.Artifact{}, &media.DownloadError{URI: uri, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return media.Artifact{}, &media.DownloadError{URI: uri, Err: classifyError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return media.Artifact{}, &media.DownloadError{URI: uri, StatusCode: resp.StatusCode, Err: decodeAPIError(resp)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxArtifact+1))
	if err != nil {
		return media.Artifact{}, &media.DownloadError{URI: uri, Err: fmt.Errorf("reading body: %w", err)}
	}
	if int64(len(data)) > c.maxArtifact {
		return media.Artifact{}, &media.DownloadError{URI: uri, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: exceeds %d bytes", ErrArtifactTooLarge, c.maxArtifact)}
	}

	return media.Artifact{Data: data, MIMEType: resp.Header.Get("Content-Type")}, nil
}

func (op operation) status() media.JobStatus {
	if !op.Done {
		return media.Pending(0)
	}
	if op.Error != nil {
		msg := op.Error.Message
		if msg == "" {
			msg = op.Error.Status
		}
		return media.Failed(msg)
	}
	if op.Response == nil {
		return media.Succeeded("")
	}

	gen := op.Response.GenerateVideoResponse
	for _, s := range gen.GeneratedSamples {
		if s.Video.URI != "" {
			return media.Succeeded(s.Video.URI)
		}
	}
	if len(gen.RAIMediaFilteredReasons) > 0 {
		return media.Failed(strings.Join(gen.RAIMediaFilteredReasons, "; "))
	}
	return media.Succeeded("")
}

// --- predictLongRunning wire types ---

type predictRequest struct {
	Instances  []predictInstance  `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string       `json:"prompt"`
	Image  *inlineImage `json:"image,omitempty"`
}

type inlineImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type predictParameters struct {
	AspectRatio      string `json:"aspectRatio,omitempty"`
	SampleCount      int    `json:"sampleCount,omitempty"`
	OutputMIMEType   string `json:"outputMimeType,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
}

type operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *apiStatus         `json:"error,omitempty"`
	Response *operationResponse `json:"response,omitempty"`
}

type operationResponse struct {
	GenerateVideoResponse generateVideoResponse `json:"generateVideoResponse"`
}

type generateVideoResponse struct {
	GeneratedSamples        []generatedSample `json:"generatedSamples"`
	RAIMediaFilteredCount   int               `json:"raiMediaFilteredCount,omitempty"`
	RAIMediaFilteredReasons []string          `json:"raiMediaFilteredReasons,omitempty"`
}

type generatedSample struct {
	Video struct {
		URI string `json:"uri"`
	} `json:"video"`
}
