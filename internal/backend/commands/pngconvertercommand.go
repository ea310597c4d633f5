package commands

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"github.com/jo-hoe/goimagine/internal/backend/commandstructure"
)

const PngConverterCommandName = "PngConverterCommand"

// PngConverterCommand decodes any supported input (raster formats and SVG), drops the
// alpha channel and re-encodes the result as PNG at its native size.
type PngConverterCommand struct {
	name              string
	svgFallbackWidth  int
	svgFallbackHeight int
}

// NewPngConverterCommand creates a new PNG converter command. The optional
// svgFallbackWidth/svgFallbackHeight params size SVG input without a viewBox.
func NewPngConverterCommand(params map[string]any) (commandstructure.Command, error) {
	w := commandstructure.GetIntParam(params, "svgFallbackWidth", 0)
	h := commandstructure.GetIntParam(params, "svgFallbackHeight", 0)
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("svg fallback size must not be negative, got %dx%d", w, h)
	}

	return &PngConverterCommand{
		name:              PngConverterCommandName,
		svgFallbackWidth:  w,
		svgFallbackHeight: h,
	}, nil
}

func (c *PngConverterCommand) Name() string {
	return c.name
}

func (c *PngConverterCommand) Execute(_ context.Context, imageData []byte) ([]byte, error) {
	slog.Debug("PngConverterCommand: start", "input_size_bytes", len(imageData))

	var img image.Image
	if isSVGData(imageData) {
		rendered, err := c.rasterizeSVG(imageData)
		if err != nil {
			slog.Error("PngConverterCommand: failed to render SVG", "error", err)
			return nil, err
		}
		img = rendered
	} else {
		decoded, format, err := decodeImage(imageData)
		if err != nil {
			slog.Error("PngConverterCommand: failed to decode image", "error", err)
			return nil, err
		}
		slog.Debug("PngConverterCommand: decoded raster image",
			"current_format", format,
			"orig_width", decoded.Bounds().Dx(),
			"orig_height", decoded.Bounds().Dy())
		img = decoded
	}

	out, err := encodePNG(toOpaqueRGB(img))
	if err != nil {
		slog.Error("PngConverterCommand: failed to encode image to PNG", "error", err)
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	slog.Debug("PngConverterCommand: conversion complete", "output_size_bytes", len(out))
	return out, nil
}

func (c *PngConverterCommand) rasterizeSVG(data []byte) (image.Image, error) {
	if w, h, ok := svgIntrinsicSize(data); ok {
		slog.Debug("PngConverterCommand: SVG has intrinsic size", "width", w, "height", h)
		return renderSVG(data, w, h)
	}
	if c.svgFallbackWidth <= 0 || c.svgFallbackHeight <= 0 {
		return nil, fmt.Errorf("SVG fallback size not set; cannot render SVG without explicit size")
	}
	slog.Debug("PngConverterCommand: SVG lacks intrinsic size; using fallback",
		"width", c.svgFallbackWidth, "height", c.svgFallbackHeight)
	return renderSVG(data, c.svgFallbackWidth, c.svgFallbackHeight)
}

// toOpaqueRGB converts img to non-premultiplied RGBA and discards transparency, keeping
// the color values of translucent pixels.
func toOpaqueRGB(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	parallelFor(dst.Bounds().Dy(), func(y int) {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+dst.Bounds().Dx()*4]
		for i := 3; i < len(row); i += 4 {
			row[i] = 0xff
		}
	})
	return dst
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(PngConverterCommandName, NewPngConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register PngConverterCommand: %v", err))
	}
}
