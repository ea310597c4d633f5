package commands

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/jo-hoe/goimagine/internal/backend/commandstructure"
	xdraw "golang.org/x/image/draw"
)

const FitPadCommandName = "FitPadCommand"

// FitPadParams represents typed parameters for the fit-and-pad command
type FitPadParams struct {
	Width  int
	Height int
}

// FitPadCommand scales an image uniformly so it fits entirely inside the target size and
// centers it on a black canvas of exactly that size. Nothing is cropped.
type FitPadCommand struct {
	name   string
	params *FitPadParams
}

// NewFitPadCommand creates a fit-and-pad command from configuration parameters
func NewFitPadCommand(params map[string]any) (commandstructure.Command, error) {
	width, height, err := commandstructure.GetPositiveDimensions(params)
	if err != nil {
		return nil, err
	}
	return NewFitPadCommandWithParams(width, height)
}

// NewFitPadCommandWithParams creates a fit-and-pad command from concrete typed parameters
func NewFitPadCommandWithParams(width, height int) (*FitPadCommand, error) {
	if width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", width)
	}
	if height <= 0 {
		return nil, fmt.Errorf("height must be positive, got %d", height)
	}
	return &FitPadCommand{
		name:   FitPadCommandName,
		params: &FitPadParams{Width: width, Height: height},
	}, nil
}

func (c *FitPadCommand) Name() string {
	return c.name
}

func (c *FitPadCommand) Execute(_ context.Context, imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData)
	if err != nil {
		slog.Error("FitPadCommand: failed to decode image", "error", err)
		return nil, err
	}

	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()
	targetWidth := c.params.Width
	targetHeight := c.params.Height

	if originalWidth == targetWidth && originalHeight == targetHeight {
		slog.Debug("FitPadCommand: target dimensions equal original; skipping")
		return imageData, nil
	}

	scaledWidth, scaledHeight := computeScaledDimensions(originalWidth, originalHeight, targetWidth, targetHeight)
	offsetX, offsetY := computeCenterOffset(targetWidth, targetHeight, scaledWidth, scaledHeight)
	slog.Debug("FitPadCommand: placing scaled image",
		"original_width", originalWidth,
		"original_height", originalHeight,
		"scaled_width", scaledWidth,
		"scaled_height", scaledHeight,
		"offset_x", offsetX,
		"offset_y", offsetY)

	canvas := createTargetCanvas(targetWidth, targetHeight, color.Black)
	placement := image.Rect(offsetX, offsetY, offsetX+scaledWidth, offsetY+scaledHeight)
	xdraw.CatmullRom.Scale(canvas, placement, img, bounds, xdraw.Src, nil)

	out, err := encodePNG(canvas)
	if err != nil {
		slog.Error("FitPadCommand: failed to encode image", "error", err)
		return nil, fmt.Errorf("failed to encode padded PNG image: %w", err)
	}
	return out, nil
}

// computeScaledDimensions returns the largest size with the original aspect ratio that
// fits inside the target. Both results are at least 1.
func computeScaledDimensions(originalWidth, originalHeight, targetWidth, targetHeight int) (int, int) {
	originalAspect := float64(originalWidth) / float64(originalHeight)
	targetAspect := float64(targetWidth) / float64(targetHeight)
	if originalAspect > targetAspect {
		// wider than target: width is the limiting side
		return targetWidth, max(1, int(float64(targetWidth)/originalAspect+0.5))
	}
	return max(1, int(float64(targetHeight)*originalAspect+0.5)), targetHeight
}

func computeCenterOffset(targetWidth, targetHeight, scaledWidth, scaledHeight int) (int, int) {
	return (targetWidth - scaledWidth) / 2, (targetHeight - scaledHeight) / 2
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(FitPadCommandName, NewFitPadCommand); err != nil {
		panic(fmt.Sprintf("failed to register FitPadCommand: %v", err))
	}
}
