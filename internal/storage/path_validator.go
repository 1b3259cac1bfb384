package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"go-notes-workspace/pkg/apierror"
)

// KeyValidator maps blob keys such as "<owner>/<document>" to files under a
// root directory and refuses anything that would escape it.
type KeyValidator struct {
	rootAbs string
}

func NewKeyValidator(root string) (*KeyValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	return &KeyValidator{rootAbs: rootAbs}, nil
}

func (v *KeyValidator) RootAbs() string {
	return v.rootAbs
}

func (v *KeyValidator) Resolve(key string) (string, error) {
	normalized := strings.Trim(strings.ReplaceAll(strings.TrimSpace(key), `\`, "/"), "/")
	if normalized == "" {
		return "", apierror.New("INVALID_KEY", "blob key is required", key, http.StatusBadRequest)
	}

	if hasControlCharacters(normalized) {
		return "", apierror.New("INVALID_KEY", "blob key contains invalid characters", key, http.StatusBadRequest)
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." || segment == "." || segment == "" {
			return "", apierror.New("PATH_TRAVERSAL", "blob key is not canonical", key, http.StatusForbidden)
		}
	}

	resolved, err := filepath.Abs(filepath.Join(v.rootAbs, filepath.FromSlash(normalized)))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	if !isWithinRoot(v.rootAbs, resolved) || resolved == v.rootAbs {
		return "", apierror.New("PATH_TRAVERSAL", "blob key resolves outside storage root", key, http.StatusForbidden)
	}

	return resolved, nil
}

// hasControlCharacters also catches NUL.
func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	if candidateAbs == rootAbs {
		return true
	}
	return strings.HasPrefix(candidateAbs, rootAbs+string(filepath.Separator))
}
