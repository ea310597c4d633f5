package commands

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/goimagine/internal/backend/commandstructure"
	xdraw "golang.org/x/image/draw"
)

const ResizeCommandName = "ResizeCommand"

// ResizeCommand resamples an image to exactly the configured size using Catmull-Rom.
// The aspect ratio is not preserved.
type ResizeCommand struct {
	name   string
	width  int
	height int
}

func NewResizeCommand(params map[string]any) (commandstructure.Command, error) {
	width, height, err := commandstructure.GetPositiveDimensions(params)
	if err != nil {
		return nil, err
	}
	return &ResizeCommand{name: ResizeCommandName, width: width, height: height}, nil
}

func (c *ResizeCommand) Name() string {
	return c.name
}

func (c *ResizeCommand) Execute(_ context.Context, imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData)
	if err != nil {
		slog.Error("ResizeCommand: failed to decode image", "error", err)
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() == c.width && bounds.Dy() == c.height {
		return imageData, nil
	}

	slog.Debug("ResizeCommand: resampling",
		"original_width", bounds.Dx(),
		"original_height", bounds.Dy(),
		"target_width", c.width,
		"target_height", c.height)

	dst := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)

	out, err := encodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resized PNG image: %w", err)
	}
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(ResizeCommandName, NewResizeCommand); err != nil {
		panic(fmt.Sprintf("failed to register ResizeCommand: %v", err))
	}
}
