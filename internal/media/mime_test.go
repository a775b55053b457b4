package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferMIME(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

	tests := []struct {
		name        string
		uri         string
		contentType string
		data        []byte
		want        string
	}{
		{"content type wins", "https://x/a.bin", "video/mp4", []byte{0, 1}, "video/mp4"},
		{"content type params stripped", "https://x/a", "video/webm; codecs=vp9", nil, "video/webm"},
		{"octet stream falls through to sniffing", "https://x/file", "application/octet-stream", pngHeader, "image/png"},
		{"sniffed without content type", "https://x/file", "", pngHeader, "image/png"},
		{"extension fallback", "https://x/a.mp4", "", []byte{0x00, 0x01}, "video/mp4"},
		{"extension with query", "https://x/v/clip.MOV?alt=media&key=k", "", []byte{0x00, 0x01}, "video/quicktime"},
		{"nothing known", "https://x/files/abc:download", "", []byte{0x00, 0x01}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferMIME(tt.uri, tt.contentType, tt.data))
		})
	}
}
