// Package dataurl parses and builds base64 data URLs of the form
// data:<mime>;base64,<payload>.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingPayload = errors.New("data url has no base64 payload")
	ErrMissingMIME    = errors.New("data url has no mime type")
	ErrInvalidBase64  = errors.New("data url payload is not valid base64")
)

const base64Marker = ";base64,"

// Parse splits a data URL into its MIME type and decoded bytes.
func Parse(s string) (mimeType string, data []byte, err error) {
	s = strings.TrimSpace(s)
	head, payload, ok := strings.Cut(s, base64Marker)
	if !ok || payload == "" {
		return "", nil, ErrMissingPayload
	}

	mimeType = strings.TrimSpace(strings.TrimPrefix(head, "data:"))
	if mimeType == "" {
		return "", nil, ErrMissingMIME
	}

	data, err = decode(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	if len(data) == 0 {
		return "", nil, ErrMissingPayload
	}
	return mimeType, data, nil
}

// Encode returns data as a data URL with the given MIME type.
func Encode(mimeType string, data []byte) string {
	return "data:" + mimeType + base64Marker + base64.StdEncoding.EncodeToString(data)
}

// decode accepts padded and unpadded standard base64.
func decode(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}
