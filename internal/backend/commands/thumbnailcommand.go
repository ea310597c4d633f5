package commands

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/goimagine/internal/backend/commandstructure"
	xdraw "golang.org/x/image/draw"
)

const ThumbnailCommandName = "ThumbnailCommand"

// ThumbnailCommand shrinks an image to the configured width, keeping its aspect ratio.
// Images that are already narrower are re-encoded unchanged.
type ThumbnailCommand struct {
	name  string
	width int
}

func NewThumbnailCommand(params map[string]any) (commandstructure.Command, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"width"}); err != nil {
		return nil, err
	}
	width := commandstructure.GetIntParam(params, "width", 0)
	if width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", width)
	}
	return &ThumbnailCommand{name: ThumbnailCommandName, width: width}, nil
}

func (c *ThumbnailCommand) Name() string {
	return c.name
}

func (c *ThumbnailCommand) Execute(_ context.Context, imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() <= c.width {
		return encodePNG(img)
	}

	height := max(1, int(float64(c.width)*float64(bounds.Dy())/float64(bounds.Dx())+0.5))
	slog.Debug("ThumbnailCommand: scaling",
		"original_width", bounds.Dx(),
		"original_height", bounds.Dy(),
		"target_width", c.width,
		"target_height", height)

	dst := image.NewRGBA(image.Rect(0, 0, c.width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return encodePNG(dst)
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(ThumbnailCommandName, NewThumbnailCommand); err != nil {
		panic(fmt.Sprintf("failed to register ThumbnailCommand: %v", err))
	}
}
