package media

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// Artifact URIs usually end in a media extension even when the download
// response omits a useful Content-Type.
var extensionTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// InferMIME picks the artifact MIME type. A specific Content-Type wins, then
// the sniffed bytes, then the URI extension.
func InferMIME(uri, contentType string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != octetStream {
		return mt
	}

	if len(data) > 0 {
		if mt := mimetype.Detect(data); !mt.Is(octetStream) && !mt.Is("text/plain") {
			return baseType(mt.String())
		}
	}

	if u, err := url.Parse(uri); err == nil {
		if mt, ok := extensionTypes[strings.ToLower(path.Ext(u.Path))]; ok {
			return mt
		}
	}
	return octetStream
}

func baseType(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
