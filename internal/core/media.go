package core

import (
	"mime"
	"net/http"
	"strings"
)

// imageMediaTypes are the formats an upload may carry. SVG is excluded since
// it can embed script.
var imageMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

var mediaTypeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
}

// IsImageMediaType reports whether mediaType is a servable image format.
func IsImageMediaType(mediaType string) bool {
	return imageMediaTypes[normalizeMediaType(mediaType)]
}

func normalizeMediaType(raw string) string {
	parsed, _, err := mime.ParseMediaType(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if alias, ok := mediaTypeAliases[parsed]; ok {
		return alias
	}
	return parsed
}

// SniffedMediaType is the type detected from the payload, ignoring whatever
// the client declared.
func (u Upload) SniffedMediaType() string {
	return normalizeMediaType(http.DetectContentType(u.Data))
}

// Acceptable reports whether the payload sniffs as an allowed image format
// and agrees with a declared type, when one was sent.
func (u Upload) Acceptable() bool {
	sniffed := u.SniffedMediaType()
	if !imageMediaTypes[sniffed] {
		return false
	}
	declared := strings.TrimSpace(u.MediaType)
	if declared == "" {
		return true
	}
	return normalizeMediaType(declared) == sniffed
}
