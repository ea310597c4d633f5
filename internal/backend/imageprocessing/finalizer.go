package imageprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jo-hoe/goimagine/internal/backend/commands"
	"github.com/jo-hoe/goimagine/internal/backend/commandstructure"
	"github.com/jo-hoe/goimagine/internal/backend/generator"
)

// Policy selects how generated images are brought into their final shape.
type Policy string

const (
	// PolicyPassthrough converts to PNG and keeps the provider's native size.
	PolicyPassthrough Policy = "passthrough"
	// PolicyFitPad fits the image into the requested size on a black canvas, optionally
	// extends the padding via outpainting, and resizes to exactly the requested size.
	PolicyFitPad Policy = "fitpad"
)

// ParsePolicy maps a configuration value to a Policy. Empty selects passthrough.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(value) {
	case "", PolicyPassthrough:
		return PolicyPassthrough, nil
	case PolicyFitPad:
		return PolicyFitPad, nil
	default:
		return "", fmt.Errorf("unknown post-processing policy: %q", value)
	}
}

// Options configures a Finalizer.
type Options struct {
	Policy Policy
	// Outpaint enables border extension in the fitpad policy and requires Provider.
	Outpaint bool
	Provider generator.Provider
	// Registry defaults to commandstructure.DefaultRegistry.
	Registry *commandstructure.CommandRegistry
}

// Result is the finished image with its real dimensions.
type Result struct {
	Data   []byte
	Width  int
	Height int
	// Fallback is set when the input could not be decoded and was kept verbatim.
	Fallback bool
}

// Finalizer turns raw provider output into the PNG that is stored on disk.
type Finalizer struct {
	policy   Policy
	outpaint bool
	provider generator.Provider
	registry *commandstructure.CommandRegistry
}

func NewFinalizer(options Options) (*Finalizer, error) {
	policy, err := ParsePolicy(string(options.Policy))
	if err != nil {
		return nil, err
	}
	if options.Outpaint && options.Provider == nil {
		return nil, fmt.Errorf("outpainting requires a generation provider")
	}
	registry := options.Registry
	if registry == nil {
		registry = commandstructure.DefaultRegistry
	}
	return &Finalizer{
		policy:   policy,
		outpaint: options.Outpaint && policy == PolicyFitPad,
		provider: options.Provider,
		registry: registry,
	}, nil
}

// Policy returns the active policy.
func (f *Finalizer) Policy() Policy {
	return f.policy
}

// Finalize processes raw image bytes. Undecodable input is returned verbatim with the
// target dimensions and Fallback set; only context cancellation is reported as an error.
func (f *Finalizer) Finalize(ctx context.Context, raw []byte, targetWidth, targetHeight int) (Result, error) {
	fallback := Result{Data: raw, Width: targetWidth, Height: targetHeight, Fallback: true}

	if f.policy == PolicyPassthrough || targetWidth <= 0 || targetHeight <= 0 {
		data, err := f.run(ctx, raw, commandstructure.CommandConfig{Name: commands.PngConverterCommandName})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			slog.Warn("could not convert image, storing raw bytes", "error", err)
			return fallback, nil
		}
		return withDimensions(data, fallback), nil
	}

	padded, err := f.run(ctx, raw,
		commandstructure.CommandConfig{Name: commands.PngConverterCommandName},
		commandstructure.CommandConfig{Name: commands.FitPadCommandName, Params: dimensionParams(targetWidth, targetHeight)},
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		slog.Warn("could not fit image, storing raw bytes", "error", err)
		return fallback, nil
	}

	if !f.outpaint {
		return withDimensions(padded, fallback), nil
	}

	extended, err := f.extend(ctx, padded, targetWidth, targetHeight)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		slog.Warn("outpainting failed, keeping padded image", "error", err)
		return withDimensions(padded, fallback), nil
	}
	return withDimensions(extended, fallback), nil
}

// extend outpaints the padded borders and resizes the provider result back to the target.
func (f *Finalizer) extend(ctx context.Context, padded []byte, targetWidth, targetHeight int) ([]byte, error) {
	outpaint, err := commands.NewOutpaintCommand(f.provider, targetWidth, targetHeight)
	if err != nil {
		return nil, err
	}
	resize, err := f.registry.Create(commands.ResizeCommandName, dimensionParams(targetWidth, targetHeight))
	if err != nil {
		return nil, err
	}
	converter, err := f.registry.Create(commands.PngConverterCommandName, nil)
	if err != nil {
		return nil, err
	}
	return f.execute(ctx, padded, commandstructure.NewCommandInvoker([]commandstructure.Command{outpaint, converter, resize}))
}

func (f *Finalizer) run(ctx context.Context, data []byte, configs ...commandstructure.CommandConfig) ([]byte, error) {
	pipeline, err := commandstructure.BuildCommands(f.registry, configs)
	if err != nil {
		return nil, err
	}
	return f.execute(ctx, data, commandstructure.NewCommandInvoker(pipeline))
}

func (f *Finalizer) execute(ctx context.Context, data []byte, invoker *commandstructure.CommandInvoker) ([]byte, error) {
	slog.Debug("running post-processing pipeline",
		"policy", string(f.policy),
		"commands", strings.Join(invoker.Names(), ","))
	return invoker.Execute(ctx, data)
}

func withDimensions(data []byte, fallback Result) Result {
	width, height, err := commands.DecodeDimensions(data)
	if err != nil {
		return Result{Data: data, Width: fallback.Width, Height: fallback.Height}
	}
	return Result{Data: data, Width: width, Height: height}
}

func dimensionParams(width, height int) map[string]any {
	return map[string]any{"width": width, "height": height}
}
