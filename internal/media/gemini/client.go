// Package gemini talks to the Generative Language REST API: Veo long-running
// video operations, Imagen predictions and Gemini image generation.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/mediaforge/internal/media"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultVideoModel = "veo-2.0-generate-001"
	DefaultImageModel = "imagen-3.0-generate-002"
	DefaultEditModel  = "gemini-2.5-flash-image-preview"

	maxErrorBody = 64 << 10

	// DefaultMaxArtifactBytes caps a downloaded video.
	DefaultMaxArtifactBytes = 512 << 20
)

// Sentinel errors for transport failures.
var (
	ErrUnreachable     = errors.New("gemini unreachable")
	ErrTimeout         = errors.New("gemini request timeout")
	ErrInvalidResponse = errors.New("gemini returned an invalid response")

	ErrArtifactTooLarge = errors.New("artifact too large")
)

// APIError is the decoded {"error": {...}} body of a failed call.
type APIError struct {
	StatusCode int
	Code       int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini API error %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini API error %d: %s", e.StatusCode, e.Message)
}

// Is maps the API status onto the media sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case media.ErrQuotaExceeded:
		return e.Status == "RESOURCE_EXHAUSTED" || e.StatusCode == http.StatusTooManyRequests
	case media.ErrUnauthorized:
		return e.Status == "UNAUTHENTICATED" || e.Status == "PERMISSION_DENIED" ||
			e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case media.ErrInvalidRequest:
		return e.Status == "INVALID_ARGUMENT"
	}
	return false
}

// Options configures a Client. Empty models and base URL fall back to defaults.
type Options struct {
	APIKey           string
	BaseURL          string
	VideoModel       string
	ImageModel       string
	EditModel        string
	Timeout          time.Duration
	// MaxArtifactBytes rejects larger downloads. Zero means DefaultMaxArtifactBytes.
	MaxArtifactBytes int64
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Client implements media.Backend over HTTP.
type Client struct {
	apiKey      string
	baseURL     string
	videoModel  string
	imageModel  string
	editModel   string
	maxArtifact int64
	client      *http.Client
	logger      *slog.Logger
}

// NewClient creates a new Gemini REST client.
func NewClient(opts Options) *Client {
	c := &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		videoModel:  opts.VideoModel,
		imageModel:  opts.ImageModel,
		editModel:   opts.EditModel,
		maxArtifact: opts.MaxArtifactBytes,
		client:      opts.HTTPClient,
		logger:      opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.videoModel == "" {
		c.videoModel = DefaultVideoModel
	}
	if c.imageModel == "" {
		c.imageModel = DefaultImageModel
	}
	if c.editModel == "" {
		c.editModel = DefaultEditModel
	}
	if c.maxArtifact <= 0 {
		c.maxArtifact = DefaultMaxArtifactBytes
	}
	if c.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		c.client = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

func (c *Client) Name() string { return "gemini" }

// postJSON sends payload to {base}{path} and decodes the reply into out.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		apiErr.Code = body.Error.Code
		apiErr.Status = body.Error.Status
		apiErr.Message = body.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// classifyError maps transport-level errors to sentinel errors, keeping the
// context error in the chain.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

type errorResponse struct {
	Error apiStatus `json:"error"`
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Compile-time check that Client implements media.Backend.
var _ media.Backend = (*Client)(nil)
