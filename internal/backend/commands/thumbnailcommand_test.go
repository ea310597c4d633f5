package commands

import (
	"context"
	"image/color"
	"testing"
)

func TestThumbnailCommand_Scaling(t *testing.T) {
	tests := []struct {
		name           string
		inputW, inputH int
		width          int
		wantW, wantH   int
	}{
		{"Landscape", 640, 480, 320, 320, 240},
		{"Portrait", 300, 600, 150, 150, 300},
		{"Already narrow", 100, 80, 320, 100, 80},
		{"Thin strip keeps one row", 1000, 1, 10, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewThumbnailCommand(map[string]any{"width": tt.width})
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			input := encodeTestJPEG(t, createTestImage(tt.inputW, tt.inputH, color.RGBA{R: 40, G: 90, B: 200, A: 255}))
			out, err := command.Execute(context.Background(), input)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			bounds := decodeTestPNG(t, out).Bounds()
			if bounds.Dx() != tt.wantW || bounds.Dy() != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, bounds.Dx(), bounds.Dy())
			}
		})
	}
}

func TestNewThumbnailCommand_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"Missing width", map[string]any{}},
		{"Zero width", map[string]any{"width": 0}},
		{"Negative width", map[string]any{"width": -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewThumbnailCommand(tt.params); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestThumbnailCommand_InvalidData(t *testing.T) {
	command, err := NewThumbnailCommand(map[string]any{"width": 10})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := command.Execute(context.Background(), []byte("not an image")); err == nil {
		t.Error("Expected decode error, got nil")
	}
}
