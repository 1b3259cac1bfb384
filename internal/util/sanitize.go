package util

import (
	"regexp"
	"strings"
	"unicode"

	"go-notes-workspace/pkg/apierror"
)

const maxNameRunes = 255

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeName cleans a folder or document name supplied by a client.
// Invisible and control characters are dropped, path separators and other
// reserved characters become underscores.
func SanitizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apierror.New("INVALID_FILENAME", "name cannot be empty", "", 400)
	}

	var builder strings.Builder
	builder.Grow(len(trimmed))
	for _, char := range trimmed {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(invalidNameChars.ReplaceAllString(builder.String(), "_"))
	if cleaned == "" {
		return "", apierror.New("INVALID_FILENAME", "name is invalid after sanitization", trimmed, 400)
	}

	// Truncate by runes so multi-byte characters stay whole.
	if runes := []rune(cleaned); len(runes) > maxNameRunes {
		cleaned = strings.TrimSpace(string(runes[:maxNameRunes]))
	}

	if cleaned == "." || cleaned == ".." {
		return "", apierror.New("INVALID_FILENAME", "name cannot be current or parent directory", cleaned, 400)
	}

	return cleaned, nil
}

// isInvisibleUnicode reports zero-width and other format characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u200E', '\u200F', '\u2060', '\uFEFF':
		return true
	}
	return unicode.Is(unicode.Cf, r)
}
