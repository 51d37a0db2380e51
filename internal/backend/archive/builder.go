package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/jo-hoe/imagecompressor/internal/backend/storage"
	"github.com/jo-hoe/imagecompressor/internal/common"
)

const lockRetryDelay = 50 * time.Millisecond

// ArchiveName returns the object name of the archive of a batch
func ArchiveName(batchID string) string {
	return batchID + ".zip"
}

// Builder lazily creates one ZIP archive per batch namespace and reuses it
// once it exists. Builds of the same batch are serialized with a lock file
// so that concurrent first downloads build exactly once.
type Builder struct {
	storage storage.Storage
	lockDir string
}

func NewBuilder(store storage.Storage, lockDir string) (*Builder, error) {
	if lockDir == "" {
		return nil, errors.New("archive lock directory must not be empty")
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", lockDir, err)
	}
	return &Builder{storage: store, lockDir: lockDir}, nil
}

// GetOrBuild returns the archive object name, building it first if needed.
// An existing archive is never checked for freshness.
func (b *Builder) GetOrBuild(ctx context.Context, batchID string) (string, error) {
	name := ArchiveName(batchID)

	exists, err := b.storage.Exists(ctx, batchID)
	if err != nil {
		return "", &common.BuildError{BatchID: batchID, Err: err}
	}
	if !exists {
		return "", &common.NotFoundError{Resource: "batch", ID: batchID}
	}

	built, err := b.archiveExists(ctx, batchID)
	if err != nil {
		return "", err
	}
	if built {
		return name, nil
	}

	lock := flock.New(filepath.Join(b.lockDir, batchID+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err == nil && !locked {
		err = errors.New("lock not acquired")
	}
	if err != nil {
		return "", &common.BuildError{BatchID: batchID, Err: fmt.Errorf("failed to acquire build lock: %w", err)}
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Error("Builder: failed to release build lock", "batch_id", batchID, "error", err)
		}
	}()

	// another builder may have finished while we waited
	if built, err = b.archiveExists(ctx, batchID); err != nil {
		return "", err
	}
	if built {
		return name, nil
	}

	if err := b.build(ctx, batchID); err != nil {
		slog.Error("Builder: failed to build archive", "batch_id", batchID, "error", err)
		return "", &common.BuildError{BatchID: batchID, Err: err}
	}
	return name, nil
}

// Open builds the archive if needed and returns a reader with its metadata
func (b *Builder) Open(ctx context.Context, batchID string) (io.ReadCloser, storage.ObjectInfo, error) {
	name, err := b.GetOrBuild(ctx, batchID)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	info, err := b.storage.Stat(ctx, batchID, name)
	if err != nil {
		return nil, storage.ObjectInfo{}, &common.BuildError{BatchID: batchID, Err: err}
	}
	reader, err := b.storage.Open(ctx, batchID, name)
	if err != nil {
		return nil, storage.ObjectInfo{}, &common.BuildError{BatchID: batchID, Err: err}
	}
	return reader, info, nil
}

// Invalidate removes the cached archive so the next download rebuilds it
func (b *Builder) Invalidate(ctx context.Context, batchID string) error {
	exists, err := b.storage.Exists(ctx, batchID)
	if err != nil {
		return err
	}
	if !exists {
		return &common.NotFoundError{Resource: "batch", ID: batchID}
	}

	lock := flock.New(filepath.Join(b.lockDir, batchID+".lock"))
	if _, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("failed to acquire build lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := b.storage.Remove(ctx, batchID, ArchiveName(batchID)); err != nil {
		return fmt.Errorf("failed to remove archive of batch %s: %w", batchID, err)
	}
	slog.Info("Builder: archive invalidated", "batch_id", batchID)
	return nil
}

func (b *Builder) archiveExists(ctx context.Context, batchID string) (bool, error) {
	_, err := b.storage.Stat(ctx, batchID, ArchiveName(batchID))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &common.BuildError{BatchID: batchID, Err: err}
	}
	return true, nil
}

// build zips every object of the namespace except the archive itself into
// memory and stores the result in one Put.
func (b *Builder) build(ctx context.Context, batchID string) error {
	start := time.Now()
	archiveName := ArchiveName(batchID)

	names, err := b.storage.ListNames(ctx, batchID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)
	zipWriter.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	entries := 0
	for _, name := range names {
		if name == archiveName {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.addEntry(ctx, zipWriter, batchID, name); err != nil {
			return err
		}
		entries++
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := b.storage.Put(ctx, batchID, archiveName, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to store archive: %w", err)
	}

	slog.Info("Builder: archive built",
		"batch_id", batchID,
		"entries", entries,
		"size_bytes", buf.Len(),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (b *Builder) addEntry(ctx context.Context, zipWriter *zip.Writer, batchID, name string) error {
	info, err := b.storage.Stat(ctx, batchID, name)
	if err != nil {
		return err
	}
	reader, err := b.storage.Open(ctx, batchID, name)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	writer, err := zipWriter.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: info.ModTime,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := io.Copy(writer, reader); err != nil {
		return fmt.Errorf("failed to compress %s: %w", name, err)
	}
	return nil
}
