package util

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// SniffLen is how many leading bytes DetectMIME looks at.
const SniffLen = 512

// DetectMIME sniffs head and falls back to the name's extension when the
// content alone is inconclusive. Markdown and other text notes sniff as
// plain text, so the extension wins whenever it is more specific.
func DetectMIME(head []byte, name string) string {
	sniffed := http.DetectContentType(head)

	byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if byExt == "" {
		return sniffed
	}

	base := strings.TrimSpace(strings.SplitN(sniffed, ";", 2)[0])
	if base == "application/octet-stream" || base == "text/plain" {
		return byExt
	}
	return sniffed
}

func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// IsThumbnailMIME reports whether a thumbnail can be decoded from the type.
func IsThumbnailMIME(mimeType string) bool {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff":
		return true
	default:
		return false
	}
}
