package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestGetFileExtension(t *testing.T) {
	assert.Equal(t, "jpg", GetFileExtension("photo.JPG"))
	assert.Equal(t, "png", GetFileExtension("/tmp/a.b/c.png"))
	assert.Equal(t, "", GetFileExtension("README"))
}

func TestDetectMediaType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		declared string
		data     []byte
		want     string
	}{
		{"declared wins", "notes.txt", "image/png", nil, "image/png"},
		{"declared with params", "x", "text/plain; charset=utf-8", nil, "text/plain"},
		{"extension", "crane.jpeg", "", nil, "image/jpeg"},
		{"octet-stream falls through to extension", "crane.png", "application/octet-stream", nil, "image/png"},
		{"sniffed", "upload", "", pngHeader, "image/png"},
		{"sniffed text", "upload", "", []byte("hello world"), "text/plain"},
		{"unknown", "upload", "", nil, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMediaType(tt.filename, tt.declared, tt.data))
		})
	}
}

func TestIsImageMediaType(t *testing.T) {
	assert.True(t, IsImageMediaType("image/jpeg"))
	assert.True(t, IsImageMediaType("IMAGE/PNG"))
	assert.False(t, IsImageMediaType("text/plain"))
	assert.False(t, IsImageMediaType(""))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c.png", SanitizeFilename("a/b\\c.png"))
	assert.Equal(t, "photo", SanitizeFilename("  photo.. "))
	assert.Equal(t, "image", SanitizeFilename(".."))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "10 MiB", FormatFileSize(10<<20))
	assert.Equal(t, "0 B", FormatFileSize(-1))
}
