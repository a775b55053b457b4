package dataurl

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMIME string
		wantData []byte
		wantErr  error
	}{
		{
			name:     "png data url",
			input:    "data:image/png;base64,AAE=",
			wantMIME: "image/png",
			wantData: []byte{0x00, 0x01},
		},
		{
			name:     "unpadded payload",
			input:    "data:image/jpeg;base64,AAE",
			wantMIME: "image/jpeg",
			wantData: []byte{0x00, 0x01},
		},
		{
			name:     "surrounding whitespace",
			input:    "  data:image/webp;base64,aGk=\n",
			wantMIME: "image/webp",
			wantData: []byte("hi"),
		},
		{
			name:    "missing base64 marker",
			input:   "data:image/png,AAE=",
			wantErr: ErrMissingPayload,
		},
		{
			name:    "empty payload",
			input:   "data:image/png;base64,",
			wantErr: ErrMissingPayload,
		},
		{
			name:    "missing mime",
			input:   "data:;base64,AAE=",
			wantErr: ErrMissingMIME,
		},
		{
			name:    "not base64",
			input:   "data:image/png;base64,@@not-base64@@",
			wantErr: ErrInvalidBase64,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: ErrMissingPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mimeType, data, err := Parse(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mimeType != tt.wantMIME {
				t.Errorf("mime: got %q want %q", mimeType, tt.wantMIME)
			}
			if string(data) != string(tt.wantData) {
				t.Errorf("data: got %v want %v", data, tt.wantData)
			}
		})
	}
}

func TestEncodeParse(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	s := Encode("image/png", raw)
	if s != "data:image/png;base64,iVBORw0K" {
		t.Fatalf("unexpected encoding: %s", s)
	}

	mimeType, data, err := Parse(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mimeType != "image/png" || string(data) != string(raw) {
		t.Fatalf("round trip mismatch: %s %v", mimeType, data)
	}
}
