package media

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kiranshivaraju/mediaforge/pkg/dataurl"
)

// DefaultAspectRatio is used when a request leaves the ratio empty.
const DefaultAspectRatio = "16:9"

// VideoAspectRatios are the ratios the video models accept.
var VideoAspectRatios = []string{"16:9", "9:16"}

// ImageAspectRatios are the ratios the image models accept.
var ImageAspectRatios = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}

// GenerationRequest is an image-to-video request. Treat it as a value: it is
// built once, handed to Submit and not touched afterwards.
type GenerationRequest struct {
	Image       Image
	Prompt      string
	AspectRatio string
}

// NewGenerationRequest builds a request, defaulting the aspect ratio.
func NewGenerationRequest(img Image, prompt, aspectRatio string) GenerationRequest {
	if strings.TrimSpace(aspectRatio) == "" {
		aspectRatio = DefaultAspectRatio
	}
	return GenerationRequest{
		Image:       img,
		Prompt:      strings.TrimSpace(prompt),
		AspectRatio: strings.TrimSpace(aspectRatio),
	}
}

// NewGenerationRequestFromDataURL decodes a data:<mime>;base64,<payload> image.
// Decoding failures wrap ErrInvalidImage.
func NewGenerationRequestFromDataURL(imageURL, prompt, aspectRatio string) (GenerationRequest, error) {
	img, err := ImageFromDataURL(imageURL)
	if err != nil {
		return GenerationRequest{}, err
	}
	return NewGenerationRequest(img, prompt, aspectRatio), nil
}

// ImageFromDataURL decodes a data URL into an Image.
func ImageFromDataURL(s string) (Image, error) {
	mimeType, data, err := dataurl.Parse(s)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return Image{Data: data, MIMEType: mimeType}, nil
}

// Validate reports the first problem with the request. It never touches the network.
func (r GenerationRequest) Validate() error {
	if err := r.Image.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if !SupportedAspectRatio(VideoAspectRatios, r.AspectRatio) {
		return fmt.Errorf("%w: unsupported aspect ratio %q", ErrInvalidRequest, r.AspectRatio)
	}
	return nil
}

// Validate checks that the image carries bytes and an image MIME type.
func (img Image) Validate() error {
	if len(img.Data) == 0 {
		return fmt.Errorf("%w: image data is empty", ErrInvalidImage)
	}
	if !strings.HasPrefix(img.MIMEType, "image/") {
		return fmt.Errorf("%w: %q is not an image type", ErrInvalidImage, img.MIMEType)
	}
	return nil
}

// SupportedAspectRatio reports whether ratio is one of allowed.
func SupportedAspectRatio(allowed []string, ratio string) bool {
	return slices.Contains(allowed, ratio)
}
