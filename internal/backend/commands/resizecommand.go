package commands

import (
	"fmt"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/imagecompressor/internal/backend/commandstructure"
)

const ResizeCommandName = "ResizeCommand"

// ResizeParams represents typed parameters for the resize command
type ResizeParams struct {
	Width int
}

// NewResizeParamsFromMap creates ResizeParams from a generic map
func NewResizeParamsFromMap(params map[string]any) (*ResizeParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"width"}); err != nil {
		return nil, err
	}
	width, err := commandstructure.GetPositiveIntParam(params, "width", 0)
	if err != nil {
		return nil, err
	}
	return &ResizeParams{Width: width}, nil
}

// ResizeCommand scales an image to a fixed width. The height follows from
// the source aspect ratio. Output is a lossless PNG intermediate.
type ResizeCommand struct {
	name   string
	params *ResizeParams
}

// NewResizeCommand creates a resize command from configuration parameters
func NewResizeCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewResizeParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &ResizeCommand{
		name:   ResizeCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *ResizeCommand) Name() string {
	return c.name
}

// Execute decodes the image, resizes it to the target width and returns PNG bytes
func (c *ResizeCommand) Execute(imageData []byte) ([]byte, error) {
	img, format, err := decodeImage(imageData)
	if err != nil {
		slog.Error("ResizeCommand: failed to decode image", "error", err)
		return nil, err
	}

	bounds := img.Bounds()
	slog.Debug("ResizeCommand: resizing image",
		"format", format,
		"original_width", bounds.Dx(),
		"original_height", bounds.Dy(),
		"target_width", c.params.Width)

	// height 0 lets imaging derive it from the aspect ratio
	resized := imaging.Resize(img, c.params.Width, 0, imaging.Lanczos)

	out, err := encodePNG(resized)
	if err != nil {
		slog.Error("ResizeCommand: failed to encode resized image", "error", err)
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	slog.Debug("ResizeCommand: resize complete",
		"width", resized.Bounds().Dx(),
		"height", resized.Bounds().Dy(),
		"output_size_bytes", len(out))
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(ResizeCommandName, NewResizeCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", ResizeCommandName, err))
	}
}
