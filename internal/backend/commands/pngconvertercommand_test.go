package commands

import (
	"context"
	"image/color"
	"testing"
)

func TestPngConverterCommand_ConvertsJPEG(t *testing.T) {
	input := encodeTestJPEG(t, createTestImage(40, 30, color.RGBA{R: 200, G: 10, B: 10, A: 255}))

	command, err := NewPngConverterCommand(map[string]any{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	out, err := command.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	img := decodeTestPNG(t, out)
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("Expected 40x30, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPngConverterCommand_DropsAlpha(t *testing.T) {
	input := encodeTestPNG(t, createTestImage(8, 8, color.NRGBA{R: 10, G: 200, B: 10, A: 64}))

	command, _ := NewPngConverterCommand(map[string]any{})
	out, err := command.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	img := decodeTestPNG(t, out)
	c := color.NRGBAModel.Convert(img.At(3, 3)).(color.NRGBA)
	if c.A != 255 {
		t.Errorf("Expected opaque pixel, got alpha %d", c.A)
	}
	if c.G != 200 {
		t.Errorf("Expected green channel to be kept at 200, got %d", c.G)
	}
}

func TestPngConverterCommand_RendersSVG(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10"><rect x="0" y="0" width="20" height="10" fill="#ffffff"/></svg>`)

	command, _ := NewPngConverterCommand(map[string]any{})
	out, err := command.Execute(context.Background(), svg)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	img := decodeTestPNG(t, out)
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("Expected 20x10, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPngConverterCommand_InvalidData(t *testing.T) {
	command, _ := NewPngConverterCommand(map[string]any{})
	if _, err := command.Execute(context.Background(), []byte("not an image")); err == nil {
		t.Error("Expected error for invalid image data")
	}
}

func TestNewPngConverterCommand_NegativeFallback(t *testing.T) {
	_, err := NewPngConverterCommand(map[string]any{"svgFallbackWidth": -1})
	if err == nil {
		t.Error("Expected error for negative fallback width")
	}
}
