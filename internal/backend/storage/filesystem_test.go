package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestFileSystemStorage(t *testing.T) *FileSystemStorage {
	t.Helper()
	s, err := NewFileSystemStorage(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewFileSystemStorage error: %v", err)
	}
	return s
}

func TestFileSystemStorage_NamespaceLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestFileSystemStorage(t)

	exists, err := s.Exists(ctx, "batch-1")
	if err != nil {
		t.Fatalf("Exists error: %v", err)
	}
	if exists {
		t.Fatal("expected namespace to be missing before creation")
	}

	if err := s.CreateNamespace(ctx, "batch-1"); err != nil {
		t.Fatalf("CreateNamespace error: %v", err)
	}
	exists, err = s.Exists(ctx, "batch-1")
	if err != nil || !exists {
		t.Fatalf("expected namespace to exist, got %v (err %v)", exists, err)
	}
}

func TestFileSystemStorage_PutListOpen(t *testing.T) {
	ctx := context.Background()
	s := newTestFileSystemStorage(t)
	if err := s.CreateNamespace(ctx, "b"); err != nil {
		t.Fatalf("CreateNamespace error: %v", err)
	}

	if err := s.Put(ctx, "b", "two.webp", []byte("2")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := s.Put(ctx, "b", "one.webp", []byte("1")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	// overwrite is silent
	if err := s.Put(ctx, "b", "one.webp", []byte("11")); err != nil {
		t.Fatalf("Put overwrite error: %v", err)
	}
	// hidden files are never listed
	if err := os.WriteFile(filepath.Join(s.root, "b", ".one.webp.tmp-123"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	names, err := s.ListNames(ctx, "b")
	if err != nil {
		t.Fatalf("ListNames error: %v", err)
	}
	if want := []string{"one.webp", "two.webp"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("ListNames = %v, want %v", names, want)
	}

	rc, err := s.Open(ctx, "b", "one.webp")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if string(data) != "11" {
		t.Errorf("expected overwritten content, got %q", data)
	}

	info, err := s.Stat(ctx, "b", "one.webp")
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if info.Size != 2 {
		t.Errorf("expected size 2, got %d", info.Size)
	}
}

func TestFileSystemStorage_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestFileSystemStorage(t)

	if err := s.Put(ctx, "missing", "a.webp", []byte("x")); !errors.Is(err, ErrNamespaceNotFound) {
		t.Errorf("Put into missing namespace: expected ErrNamespaceNotFound, got %v", err)
	}
	if _, err := s.ListNames(ctx, "missing"); !errors.Is(err, ErrNamespaceNotFound) {
		t.Errorf("ListNames of missing namespace: expected ErrNamespaceNotFound, got %v", err)
	}

	if err := s.CreateNamespace(ctx, "b"); err != nil {
		t.Fatalf("CreateNamespace error: %v", err)
	}
	if _, err := s.Stat(ctx, "b", "none.webp"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Stat of missing object: expected ErrObjectNotFound, got %v", err)
	}
	if _, err := s.Open(ctx, "b", "none.webp"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Open of missing object: expected ErrObjectNotFound, got %v", err)
	}
	if err := s.Remove(ctx, "b", "none.webp"); err != nil {
		t.Errorf("Remove of missing object should be a no-op, got %v", err)
	}
}

func TestFileSystemStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newTestFileSystemStorage(t)

	for _, name := range []string{"..", "../etc", "a/b", `a\b`, ""} {
		exists, err := s.Exists(ctx, name)
		if err != nil || exists {
			t.Errorf("Exists(%q) = %v, %v; want false, nil", name, exists, err)
		}
		if err := s.CreateNamespace(ctx, name); err == nil {
			t.Errorf("CreateNamespace(%q) expected error", name)
		}
	}
}
