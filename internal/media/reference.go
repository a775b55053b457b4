package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
)

// Reference is a reference photo ready to send, with its pixel size.
// Width and Height are zero when the format could not be decoded locally.
type Reference struct {
	Image  Image
	Width  int
	Height int
}

// PrepareReference measures img and, when its longest side exceeds maxDim,
// downscales it to fit. maxDim <= 0 keeps the original size.
func PrepareReference(img Image, maxDim int) (Reference, error) {
	if err := img.Validate(); err != nil {
		return Reference{}, err
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			// Formats the service accepts but the stdlib decoders don't (webp, heic).
			slog.Debug("reference image not decodable locally, sending as-is", "mime_type", img.MIMEType)
			return Reference{Image: img}, nil
		}
		return Reference{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	b := decoded.Bounds()
	ref := Reference{Image: img, Width: b.Dx(), Height: b.Dy()}
	if maxDim <= 0 || (ref.Width <= maxDim && ref.Height <= maxDim) {
		return ref, nil
	}

	resized := imaging.Fit(decoded, maxDim, maxDim, imaging.Lanczos)

	format, mimeType := imaging.JPEG, "image/jpeg"
	if img.MIMEType == "image/png" {
		format, mimeType = imaging.PNG, "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(90)); err != nil {
		return Reference{}, fmt.Errorf("encoding resized reference: %w", err)
	}

	rb := resized.Bounds()
	return Reference{
		Image:  Image{Data: buf.Bytes(), MIMEType: mimeType},
		Width:  rb.Dx(),
		Height: rb.Dy(),
	}, nil
}
