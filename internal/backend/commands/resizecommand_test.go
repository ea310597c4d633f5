package commands

import (
	"context"
	"image/color"
	"testing"

	"github.com/jo-hoe/goimagine/internal/backend/commandstructure"
)

func registryHas(name string) bool {
	for _, registered := range commandstructure.DefaultRegistry.GetRegisteredNames() {
		if registered == name {
			return true
		}
	}
	return false
}

func TestResizeCommand_ExactSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"Downscale", 32, 16},
		{"Upscale", 300, 200},
		{"Change ratio", 90, 160},
	}

	input := encodeTestPNG(t, createTestImage(120, 80, color.Gray{Y: 128}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewResizeCommand(map[string]any{"width": tt.width, "height": tt.height})
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			out, err := command.Execute(context.Background(), input)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			img := decodeTestPNG(t, out)
			if img.Bounds().Dx() != tt.width || img.Bounds().Dy() != tt.height {
				t.Errorf("Expected %dx%d, got %dx%d", tt.width, tt.height, img.Bounds().Dx(), img.Bounds().Dy())
			}
		})
	}
}

func TestResizeCommand_InvalidParams(t *testing.T) {
	if _, err := NewResizeCommand(map[string]any{"width": 10}); err == nil {
		t.Error("Expected error for missing height")
	}
}

func TestDefaultRegistryContainsCommands(t *testing.T) {
	for _, name := range []string{PngConverterCommandName, FitPadCommandName, ResizeCommandName, ThumbnailCommandName} {
		if !registryHas(name) {
			t.Errorf("Expected %s to be registered", name)
		}
	}
	if registryHas(OutpaintCommandName) {
		t.Errorf("Expected %s not to be registered", OutpaintCommandName)
	}
}
