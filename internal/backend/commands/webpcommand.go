package commands

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	"github.com/gen2brain/webp"
	"github.com/jo-hoe/imagecompressor/internal/backend/commandstructure"
)

const WebPBudgetCommandName = "WebPBudgetCommand"

const (
	DefaultMaxBytes     = 200 * 1024
	DefaultQuality      = 80
	DefaultQualityStep  = 10
	DefaultQualityFloor = 10

	webpMethod = 4
)

// WebPBudgetParams represents typed parameters for the WebP budget command
type WebPBudgetParams struct {
	MaxBytes     int
	Quality      int
	QualityStep  int
	QualityFloor int
}

// NewWebPBudgetParamsFromMap creates WebPBudgetParams from a generic map.
// All parameters are optional and default to a 200 KiB budget starting at
// quality 80, stepping down by 10, never encoding at or below quality 10.
func NewWebPBudgetParamsFromMap(params map[string]any) (*WebPBudgetParams, error) {
	maxBytes, err := commandstructure.GetPositiveIntParam(params, "maxBytes", DefaultMaxBytes)
	if err != nil {
		return nil, err
	}
	quality, err := commandstructure.GetPositiveIntParam(params, "quality", DefaultQuality)
	if err != nil {
		return nil, err
	}
	step, err := commandstructure.GetPositiveIntParam(params, "qualityStep", DefaultQualityStep)
	if err != nil {
		return nil, err
	}
	floor := commandstructure.GetIntParam(params, "qualityFloor", DefaultQualityFloor)

	if quality > 100 {
		return nil, fmt.Errorf("quality must be at most 100, got %d", quality)
	}
	if floor < 0 || floor >= quality {
		return nil, fmt.Errorf("qualityFloor must be in [0, quality), got %d", floor)
	}

	return &WebPBudgetParams{
		MaxBytes:     maxBytes,
		Quality:      quality,
		QualityStep:  step,
		QualityFloor: floor,
	}, nil
}

// WebPBudgetCommand re-encodes an image as lossy WebP, lowering the quality
// linearly until the output fits the byte budget or the next step would
// reach the quality floor. Every attempt encodes the decoded input, never
// the previous lossy output. The final output may exceed the budget.
type WebPBudgetCommand struct {
	name        string
	params      *WebPBudgetParams
	lastQuality int
}

// NewWebPBudgetCommand creates a WebP budget command from configuration parameters
func NewWebPBudgetCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewWebPBudgetParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &WebPBudgetCommand{
		name:   WebPBudgetCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *WebPBudgetCommand) Name() string {
	return c.name
}

// LastQuality returns the quality used by the most recent Execute, 0 before the first run
func (c *WebPBudgetCommand) LastQuality() int {
	return c.lastQuality
}

// Execute encodes the image into WebP within the configured budget
func (c *WebPBudgetCommand) Execute(imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData)
	if err != nil {
		slog.Error("WebPBudgetCommand: failed to decode image", "error", err)
		return nil, err
	}

	out, quality, err := c.descend(img)
	if err != nil {
		return nil, err
	}
	c.lastQuality = quality

	if len(out) > c.params.MaxBytes {
		slog.Warn("WebPBudgetCommand: output exceeds budget at lowest quality",
			"quality", quality,
			"output_size_bytes", len(out),
			"max_bytes", c.params.MaxBytes)
	}
	return out, nil
}

func (c *WebPBudgetCommand) descend(img image.Image) ([]byte, int, error) {
	quality := c.params.Quality
	for {
		out, err := encodeWebP(img, quality)
		if err != nil {
			slog.Error("WebPBudgetCommand: failed to encode webp", "quality", quality, "error", err)
			return nil, 0, fmt.Errorf("failed to encode webp at quality %d: %w", quality, err)
		}

		slog.Debug("WebPBudgetCommand: encoded attempt",
			"quality", quality,
			"output_size_bytes", len(out),
			"max_bytes", c.params.MaxBytes)

		next := quality - c.params.QualityStep
		if len(out) <= c.params.MaxBytes || next <= c.params.QualityFloor {
			return out, quality, nil
		}
		quality = next
	}
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	err := webp.Encode(&buf, img, webp.Options{
		Quality: quality,
		Method:  webpMethod,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(WebPBudgetCommandName, NewWebPBudgetCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", WebPBudgetCommandName, err))
	}
}
