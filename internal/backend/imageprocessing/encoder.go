package imageprocessing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/imagecompressor/internal/backend/commands"
	"github.com/jo-hoe/imagecompressor/internal/backend/commandstructure"
	"github.com/jo-hoe/imagecompressor/internal/backend/storage"
	"github.com/jo-hoe/imagecompressor/internal/common"
)

// BudgetConfig configures the WebP quality descent. A nil QualityFloor
// takes the default; 0 lets the descent reach the lowest quality step.
type BudgetConfig struct {
	MaxBytes     int  `yaml:"maxBytes"`
	Quality      int  `yaml:"quality"`
	QualityStep  int  `yaml:"qualityStep"`
	QualityFloor *int `yaml:"qualityFloor"`
}

// DefaultBudgetConfig returns a 200 KiB budget descending from quality 80 in steps of 10
func DefaultBudgetConfig() BudgetConfig {
	floor := commands.DefaultQualityFloor
	return BudgetConfig{
		MaxBytes:     commands.DefaultMaxBytes,
		Quality:      commands.DefaultQuality,
		QualityStep:  commands.DefaultQualityStep,
		QualityFloor: &floor,
	}
}

func (b BudgetConfig) params() map[string]any {
	params := map[string]any{
		"maxBytes":    b.MaxBytes,
		"quality":     b.Quality,
		"qualityStep": b.QualityStep,
	}
	if b.QualityFloor != nil {
		params["qualityFloor"] = *b.QualityFloor
	}
	return params
}

// Result describes one stored output image
type Result struct {
	FileName string `json:"fileName"`
	Size     int    `json:"size"`
	Quality  int    `json:"quality"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Encoder turns one uploaded image into a width-normalized WebP within the
// byte budget and stores it in the batch namespace.
type Encoder struct {
	storage  storage.Storage
	registry *commandstructure.CommandRegistry
	budget   BudgetConfig
}

// NewEncoder creates an encoder that builds its pipeline from the default registry
func NewEncoder(store storage.Storage, budget BudgetConfig) *Encoder {
	return &Encoder{
		storage:  store,
		registry: commandstructure.DefaultRegistry,
		budget:   budget,
	}
}

// Encode resizes raw to targetWidth, re-encodes it and stores the result
// under the normalized file name. Any failure is an EncodeError.
func (e *Encoder) Encode(ctx context.Context, batchID, originalName string, raw []byte, targetWidth int) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &common.EncodeError{FileName: originalName, Err: err}
	}

	pipeline, err := e.registry.CreateAll([]commandstructure.CommandConfig{
		{Name: commands.ResizeCommandName, Params: map[string]any{"width": targetWidth}},
		{Name: commands.WebPBudgetCommandName, Params: e.budget.params()},
	})
	if err != nil {
		return Result{}, &common.EncodeError{FileName: originalName, Err: err}
	}

	encoded, err := commandstructure.NewCommandInvoker(originalName, pipeline).Execute(raw)
	if err != nil {
		slog.Error("Encoder: failed to process image", "file", originalName, "batch_id", batchID, "error", err)
		return Result{}, &common.EncodeError{FileName: originalName, Err: err}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(encoded))
	if err != nil {
		return Result{}, &common.EncodeError{FileName: originalName, Err: fmt.Errorf("failed to read encoded image: %w", err)}
	}

	fileName := NormalizeFileName(originalName)
	if err := e.storage.Put(ctx, batchID, fileName, encoded); err != nil {
		slog.Error("Encoder: failed to store image", "file", originalName, "batch_id", batchID, "error", err)
		return Result{}, &common.EncodeError{FileName: originalName, Err: err}
	}

	result := Result{
		FileName: fileName,
		Size:     len(encoded),
		Quality:  lastQuality(pipeline),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}
	slog.Info("Encoder: image stored",
		"file", originalName,
		"batch_id", batchID,
		"stored_as", result.FileName,
		"size_bytes", result.Size,
		"quality", result.Quality,
		"width", result.Width)
	return result, nil
}

func lastQuality(pipeline []commandstructure.Command) int {
	for _, command := range pipeline {
		if webpCommand, ok := command.(*commands.WebPBudgetCommand); ok {
			return webpCommand.LastQuality()
		}
	}
	return 0
}

// Validate checks the budget with the same rules the WebP command applies
func (b BudgetConfig) Validate() error {
	_, err := commands.NewWebPBudgetParamsFromMap(b.params())
	return err
}
