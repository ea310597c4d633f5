package commands

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/jo-hoe/goimagine/internal/backend/aspectratio"
	"github.com/jo-hoe/goimagine/internal/backend/generator"
)

const OutpaintCommandName = "OutpaintCommand"

// darknessThreshold is the highest 8-bit channel value still counted as black padding.
const darknessThreshold = 16

// Edges lists the borders of an image that are solid black padding, in pixels.
type Edges struct {
	Top    int
	Bottom int
	Left   int
	Right  int
}

// Any reports whether at least one border is padded.
func (e Edges) Any() bool {
	return e.Top > 0 || e.Bottom > 0 || e.Left > 0 || e.Right > 0
}

// Names returns the padded borders in top, bottom, left, right order.
func (e Edges) Names() []string {
	names := make([]string, 0, 4)
	if e.Top > 0 {
		names = append(names, "top")
	}
	if e.Bottom > 0 {
		names = append(names, "bottom")
	}
	if e.Left > 0 {
		names = append(names, "left")
	}
	if e.Right > 0 {
		names = append(names, "right")
	}
	return names
}

// OutpaintCommand asks the generation provider to paint over black padding left by
// FitPadCommand. It is not registered in the default registry because it needs a provider.
type OutpaintCommand struct {
	name     string
	provider generator.Provider
	width    int
	height   int
}

// NewOutpaintCommand creates an outpaint command targeting the given frame size
func NewOutpaintCommand(provider generator.Provider, width, height int) (*OutpaintCommand, error) {
	if provider == nil {
		return nil, fmt.Errorf("outpaint requires a generation provider")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("width and height must be positive, got %dx%d", width, height)
	}
	return &OutpaintCommand{
		name:     OutpaintCommandName,
		provider: provider,
		width:    width,
		height:   height,
	}, nil
}

func (c *OutpaintCommand) Name() string {
	return c.name
}

func (c *OutpaintCommand) Execute(ctx context.Context, imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData)
	if err != nil {
		return nil, err
	}

	edges := DetectBlackEdges(img)
	if !edges.Any() {
		slog.Debug("OutpaintCommand: no black borders found; skipping")
		return imageData, nil
	}

	ratio := aspectratio.Select(c.width, c.height)
	slog.Info("OutpaintCommand: extending borders",
		"edges", strings.Join(edges.Names(), ","),
		"provider", c.provider.Name(),
		"aspect_ratio", ratio.String())

	out, err := c.provider.Generate(ctx, generator.Request{
		Prompt:            outpaintPrompt(edges),
		AspectRatio:       ratio,
		Width:             c.width,
		Height:            c.height,
		ReferenceImage:    imageData,
		ReferenceMIMEType: "image/png",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to outpaint image: %w", err)
	}
	return out, nil
}

func outpaintPrompt(edges Edges) string {
	names := edges.Names()
	var where string
	switch len(names) {
	case 1:
		where = "the " + names[0] + " edge"
	default:
		where = "the " + strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1] + " edges"
	}
	return fmt.Sprintf("Extend this image outward to replace the black borders on %s. "+
		"Continue the existing scene seamlessly and keep the original content unchanged. "+
		"Fill the entire frame; no black bars or letterboxing.", where)
}

// DetectBlackEdges measures how many rows and columns at each border are entirely dark.
// A fully dark image reports no edges since there is nothing to extend from.
func DetectBlackEdges(img image.Image) Edges {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return Edges{}
	}

	darkRows := make([]bool, h)
	parallelFor(h, func(y int) {
		darkRows[y] = isDarkLine(img, bounds.Min.X, bounds.Min.Y+y, 1, 0, w)
	})
	darkCols := make([]bool, w)
	parallelFor(w, func(x int) {
		darkCols[x] = isDarkLine(img, bounds.Min.X+x, bounds.Min.Y, 0, 1, h)
	})

	top := leadingTrue(darkRows)
	if top == h {
		return Edges{}
	}
	return Edges{
		Top:    top,
		Bottom: trailingTrue(darkRows),
		Left:   leadingTrue(darkCols),
		Right:  trailingTrue(darkCols),
	}
}

func isDarkLine(img image.Image, x, y, dx, dy, n int) bool {
	for i := 0; i < n; i++ {
		r, g, b, _ := img.At(x+i*dx, y+i*dy).RGBA()
		if r>>8 > darknessThreshold || g>>8 > darknessThreshold || b>>8 > darknessThreshold {
			return false
		}
	}
	return true
}

func leadingTrue(values []bool) int {
	for i, v := range values {
		if !v {
			return i
		}
	}
	return len(values)
}

func trailingTrue(values []bool) int {
	for i := len(values) - 1; i >= 0; i-- {
		if !values[i] {
			return len(values) - 1 - i
		}
	}
	return len(values)
}
