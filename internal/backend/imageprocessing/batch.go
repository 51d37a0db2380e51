package imageprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/jo-hoe/imagecompressor/internal/backend/storage"
	"github.com/jo-hoe/imagecompressor/internal/common"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxFiles is the upload limit per batch
const DefaultMaxFiles = 10

// MaxOverrideWidth bounds the widths a request may ask for
const MaxOverrideWidth = 8192

// UploadedFile is one file of an upload request
type UploadedFile struct {
	Name string
	Data []byte
}

// BatchRequest carries the files of one upload plus the selection that
// determines their widths. The overrides apply only where the policy has
// no answer; zero means not given.
type BatchRequest struct {
	Files           []UploadedFile
	Brand           Brand
	Category        Category
	FeatureWidth    int
	NonFeatureWidth int
}

// BatchResult lists the stored outputs in completion order
type BatchResult struct {
	BatchID string
	Results []Result
}

// Processor validates an upload, allocates its batch and encodes all files concurrently
type Processor struct {
	storage  storage.Storage
	encoder  *Encoder
	policy   ResolutionPolicy
	maxFiles int
	workers  int
}

func NewProcessor(store storage.Storage, encoder *Encoder, policy ResolutionPolicy, maxFiles int) *Processor {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Processor{
		storage:  store,
		encoder:  encoder,
		policy:   policy,
		maxFiles: maxFiles,
		workers:  runtime.GOMAXPROCS(0),
	}
}

type plannedFile struct {
	file  UploadedFile
	width int
}

// Process runs the whole batch. The batch is rejected before any storage
// is touched if it is empty, too large, contains a non-image file or has a
// file without a resolvable width. The first encode failure cancels the
// remaining ones; files already written stay in the namespace.
func (p *Processor) Process(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	plan, err := p.plan(req)
	if err != nil {
		return nil, err
	}

	batchID := NewBatchID()
	if err := p.storage.CreateNamespace(ctx, batchID); err != nil {
		return nil, fmt.Errorf("failed to create batch %s: %w", batchID, err)
	}
	slog.Info("Processor: batch started",
		"batch_id", batchID,
		"file_count", len(plan),
		"brand", req.Brand,
		"category", req.Category)

	var mu sync.Mutex
	results := make([]Result, 0, len(plan))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, item := range plan {
		g.Go(func() error {
			result, err := p.encoder.Encode(gctx, batchID, item.file.Name, item.file.Data, item.width)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("Processor: batch failed", "batch_id", batchID, "error", err)
		return nil, err
	}

	slog.Info("Processor: batch completed", "batch_id", batchID, "file_count", len(results))
	return &BatchResult{BatchID: batchID, Results: results}, nil
}

func (p *Processor) plan(req BatchRequest) ([]plannedFile, error) {
	if len(req.Files) == 0 {
		return nil, common.NewValidationError("No images uploaded.")
	}

	var invalid []string
	for _, file := range req.Files {
		if !IsAllowedImage(file.Name) {
			invalid = append(invalid, file.Name)
		}
	}
	if len(invalid) > 0 {
		return nil, &common.ValidationError{Message: "Only image files are allowed.", InvalidFiles: invalid}
	}

	if len(req.Files) > p.maxFiles {
		return nil, common.NewValidationError("Too many images: at most %d per upload.", p.maxFiles)
	}

	plan := make([]plannedFile, 0, len(req.Files))
	for _, file := range req.Files {
		width, err := p.widthFor(req, file.Name)
		if err != nil {
			return nil, err
		}
		plan = append(plan, plannedFile{file: file, width: width})
	}
	return plan, nil
}

func (p *Processor) widthFor(req BatchRequest, name string) (int, error) {
	isFeature := IsFeature(name)
	if width, ok := p.policy.ResolveWidth(req.Brand, req.Category, isFeature); ok {
		return width, nil
	}

	override := req.NonFeatureWidth
	if isFeature {
		override = req.FeatureWidth
	}
	if override > MaxOverrideWidth {
		return 0, &common.ValidationError{
			Message:      fmt.Sprintf("Requested width %d exceeds the maximum of %d.", override, MaxOverrideWidth),
			InvalidFiles: []string{name},
		}
	}
	if override > 0 {
		return override, nil
	}
	return 0, &common.ValidationError{
		Message:      fmt.Sprintf("No target width for brand %q and category %q.", req.Brand, req.Category),
		InvalidFiles: []string{name},
	}
}
