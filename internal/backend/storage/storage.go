package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrNamespaceNotFound is returned when a batch namespace does not exist
	ErrNamespaceNotFound = errors.New("namespace not found")
	// ErrObjectNotFound is returned when an object does not exist in a namespace
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Storage persists the objects of a batch under a flat namespace.
// Names starting with a dot are reserved for backend bookkeeping
// (temp files, markers) and are never listed.
type Storage interface {
	CreateNamespace(ctx context.Context, namespace string) error
	Exists(ctx context.Context, namespace string) (bool, error)
	// Put writes the object atomically; readers never observe a partial object.
	Put(ctx context.Context, namespace, name string, data []byte) error
	ListNames(ctx context.Context, namespace string) ([]string, error)
	Stat(ctx context.Context, namespace, name string) (ObjectInfo, error)
	Open(ctx context.Context, namespace, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, namespace, name string) error
}

// ValidateName rejects names that could escape a namespace
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("invalid name %q: must not contain path separators", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("invalid name %q: must not contain NUL", name)
	}
	return nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
