package generator

import (
	"context"

	"github.com/jo-hoe/goimagine/internal/backend/aspectratio"
)

// Request describes a single image generation call.
type Request struct {
	Prompt      string
	AspectRatio aspectratio.AspectRatio
	// Width and Height are hints for providers that take pixel sizes instead of a ratio.
	Width  int
	Height int
	// ReferenceImage is sent alongside the prompt when set (used for border extension).
	ReferenceImage    []byte
	ReferenceMIMEType string
}

// Provider performs one generation attempt against a remote image API and returns the
// encoded image bytes.
type Provider interface {
	Name() string
	Generate(ctx context.Context, request Request) ([]byte, error)
}
