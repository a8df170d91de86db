package static

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// IndexDocument is served for the root path and for directories.
const IndexDocument = "index.html"

var (
	ErrMalformedInput = errors.New("malformed request path")
	ErrOutsideRoot    = errors.New("request path escapes served root")
)

// Resolve maps a raw request path onto a file below root. root must be an
// absolute, clean path. Anything that would land outside root is rejected.
func Resolve(root, raw string) (string, error) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if strings.IndexByte(decoded, 0) >= 0 {
		return "", fmt.Errorf("%w: NUL byte", ErrMalformedInput)
	}

	rel := strings.TrimLeft(decoded, "/")
	if rel == "" {
		rel = IndexDocument
	}

	full := filepath.Join(root, filepath.FromSlash(rel))
	if !within(root, full) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, decoded)
	}

	if !linksWithin(root, full) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, decoded)
	}

	return full, nil
}

// linksWithin reports whether p, once its symlinks are followed, still lies
// under root. A path that does not exist yet cannot escape.
func linksWithin(root, p string) bool {
	target, err := filepath.EvalSymlinks(p)
	if err != nil {
		return true
	}
	return within(root, target)
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
