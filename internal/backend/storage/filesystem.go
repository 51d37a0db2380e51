package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FileSystemStorage stores each namespace as a directory below a root
type FileSystemStorage struct {
	root string
}

// NewFileSystemStorage creates the root directory if needed
func NewFileSystemStorage(root string) (*FileSystemStorage, error) {
	if root == "" {
		return nil, errors.New("filesystem storage root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	return &FileSystemStorage{root: root}, nil
}

func (s *FileSystemStorage) namespaceDir(namespace string) (string, error) {
	if err := ValidateName(namespace); err != nil {
		return "", err
	}
	return filepath.Join(s.root, namespace), nil
}

func (s *FileSystemStorage) objectPath(namespace, name string) (string, error) {
	dir, err := s.namespaceDir(namespace)
	if err != nil {
		return "", err
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (s *FileSystemStorage) CreateNamespace(ctx context.Context, namespace string) error {
	dir, err := s.namespaceDir(namespace)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", namespace, err)
	}
	return nil
}

func (s *FileSystemStorage) Exists(ctx context.Context, namespace string) (bool, error) {
	dir, err := s.namespaceDir(namespace)
	if err != nil {
		// an invalid name can never exist
		return false, nil
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (s *FileSystemStorage) Put(ctx context.Context, namespace, name string, data []byte) error {
	path, err := s.objectPath(namespace, name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNamespaceNotFound, namespace)
		}
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	slog.Debug("FileSystemStorage: object written", "namespace", namespace, "name", name, "size_bytes", len(data))
	return nil
}

func (s *FileSystemStorage) ListNames(ctx context.Context, namespace string) ([]string, error) {
	dir, err := s.namespaceDir(namespace)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNamespaceNotFound, namespace)
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileSystemStorage) Stat(ctx context.Context, namespace, name string) (ObjectInfo, error) {
	path, err := s.objectPath(namespace, name)
	if err != nil {
		return ObjectInfo{}, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ObjectInfo{}, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, namespace, name)
	}
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (s *FileSystemStorage) Open(ctx context.Context, namespace, name string) (io.ReadCloser, error) {
	path, err := s.objectPath(namespace, name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, namespace, name)
	}
	return file, err
}

func (s *FileSystemStorage) Remove(ctx context.Context, namespace, name string) error {
	path, err := s.objectPath(namespace, name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
