package store

import (
	"fmt"
	"strings"
)

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// CollectionOf returns the parent collection of a document path.
func CollectionOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// IDOf returns the last segment of a document path.
func IDOf(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// ValidateDocPath checks that path names a document, not a collection.
func ValidateDocPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	parts := strings.Split(path, "/")
	if len(parts)%2 != 0 {
		return fmt.Errorf("%w: %q is a collection", ErrInvalidPath, path)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return nil
}
