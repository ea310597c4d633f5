package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jo-hoe/goimagine/internal/backend/aspectratio"
	"github.com/jo-hoe/goimagine/internal/backend/commands"
	"github.com/jo-hoe/goimagine/internal/backend/commandstructure"
	"github.com/jo-hoe/goimagine/internal/backend/database"
	"github.com/jo-hoe/goimagine/internal/backend/generator"
	"github.com/jo-hoe/goimagine/internal/backend/imageprocessing"
)

const (
	DefaultImageSize = 1024
	UnknownPrompt    = "Unknown prompt"
	Unknown          = "Unknown"

	fillFrameInstruction   = "\n\nIMPORTANT: Fill the entire frame completely. No black bars, no letterboxing, no pillarboxing. The image should extend to all edges of the canvas."
	referenceInstruction   = "Use the uploaded image's aspect ratio as the final frame; fill all its area; no letterboxing."
	noReferenceInstruction = "Fill the entire frame; no black bars or letterboxing."
)

type GenerateRequest struct {
	Prompt string
	Width  int
	Height int
	// RefImage names a previously stored image whose aspect ratio is used instead of Width/Height.
	RefImage string
}

type GenerateResult struct {
	ImageB64       string
	AspectRatio    string
	GenerationTime float64
}

type SaveRequest struct {
	ImageB64       string
	Prompt         string
	Width          int
	Height         int
	GenerationTime float64
}

type SavedImage struct {
	Filename       string
	Width          int
	Height         int
	Model          string
	GenerationTime float64
	FileSize       int64
	Prompt         string
	Created        time.Time
}

// GalleryImage is a stored PNG joined with its metadata. Missing metadata is reported as
// zero dimensions and "Unknown" strings.
type GalleryImage struct {
	Filename       string
	Size           int64
	Width          int
	Height         int
	Prompt         string
	Model          string
	GenerationTime float64
	Created        string

	createdAt time.Time
}

type CoreService struct {
	config    *ServiceConfig
	store     database.MetadataStore
	provider  generator.Provider
	finalizer *imageprocessing.Finalizer
	now       func() time.Time
}

// NewCoreService wires the metadata store, the generation provider and the post-processor
// described by config.
func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	store, err := database.NewMetadataStore(database.StoreOptions{
		Type:             config.Metadata.Type,
		ConnectionString: config.Metadata.ConnectionString,
		Directory:        config.StorageDirectory,
		Strict:           config.Metadata.Strict,
		KeyPrefix:        config.Metadata.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metadata store: %w", err)
	}

	var provider generator.Provider
	if config.Generator.IsEnabled() {
		provider, err = newRetryingProvider(config.Generator)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	} else {
		slog.Warn("image generation is disabled")
	}

	service, err := NewCoreServiceWithDependencies(config, store, provider)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return service, nil
}

// NewCoreServiceWithDependencies builds a service around an existing store and provider.
// A nil provider disables generation.
func NewCoreServiceWithDependencies(config *ServiceConfig, store database.MetadataStore, provider generator.Provider) (*CoreService, error) {
	if err := os.MkdirAll(config.StorageDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	finalizer, err := imageprocessing.NewFinalizer(imageprocessing.Options{
		Policy:   imageprocessing.Policy(config.PostProcessing.Policy),
		Outpaint: config.PostProcessing.Outpaint && provider != nil,
		Provider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize post-processing: %w", err)
	}

	return &CoreService{
		config:    config,
		store:     store,
		provider:  provider,
		finalizer: finalizer,
		now:       time.Now,
	}, nil
}

func newRetryingProvider(config Generator) (generator.Provider, error) {
	provider, err := generator.NewProvider(generator.ProviderOptions{
		Name:     config.Provider,
		Endpoint: config.Endpoint,
		Model:    config.Model,
		APIKey:   config.APIKey,
		Timeout:  config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation provider: %w", err)
	}

	policy := generator.RetryPolicy{
		MaxAttempts:    config.MaxRetries,
		BaseDelay:      config.BaseDelay,
		RateLimitDelay: config.RateLimitDelay,
	}
	slog.Info("generation provider initialized",
		"provider", provider.Name(),
		"max_attempts", policy.MaxAttempts,
		"base_delay", policy.BaseDelay,
		"rate_limit_delay", policy.RateLimitDelay)
	return generator.NewRetrier(provider, policy, generator.WithTransitionHook(logTransition)), nil
}

func logTransition(transition generator.Transition) {
	switch transition.State {
	case generator.StateWaiting:
		slog.Warn("generation attempt failed, retrying",
			"attempt", transition.Attempt, "delay", transition.Delay, "error", transition.Err)
	case generator.StateExhausted:
		slog.Error("generation failed", "attempt", transition.Attempt, "error", transition.Err)
	case generator.StateSucceeded:
		slog.Info("generation succeeded", "attempt", transition.Attempt)
	}
}

// Generate calls the provider and returns the image base64 encoded without storing it.
func (service *CoreService) Generate(ctx context.Context, request GenerateRequest) (*GenerateResult, error) {
	prompt := strings.TrimSpace(request.Prompt)
	if prompt == "" {
		return nil, newValidationError("Prompt missing")
	}
	width, height := withDefaultSize(request.Width, request.Height)

	ratio := aspectratio.Select(width, height)
	instruction := noReferenceInstruction
	if request.RefImage != "" {
		refWidth, refHeight, err := service.referenceDimensions(request.RefImage)
		if err != nil {
			slog.Warn("reference image unavailable", "ref_image", request.RefImage, "error", err)
			return nil, newValidationError("Reference image not found: " + request.RefImage)
		}
		ratio = aspectratio.Select(refWidth, refHeight)
		instruction = referenceInstruction
		slog.Info("using reference image aspect ratio", "ref_image", request.RefImage, "aspect_ratio", ratio.String())
	}

	if service.provider == nil {
		return nil, ErrGenerationDisabled
	}

	slog.Info("generating image",
		"requested_width", width,
		"requested_height", height,
		"aspect_ratio", ratio.String())

	start := service.now()
	data, err := service.provider.Generate(ctx, generator.Request{
		Prompt:      EnhancePrompt(prompt, instruction),
		AspectRatio: ratio,
		Width:       width,
		Height:      height,
	})
	if err != nil {
		return nil, err
	}

	return &GenerateResult{
		ImageB64:       base64.StdEncoding.EncodeToString(data),
		AspectRatio:    ratio.String(),
		GenerationTime: roundSeconds(service.now().Sub(start)),
	}, nil
}

// EnhancePrompt appends the fill-the-frame directive and the reference instruction.
func EnhancePrompt(prompt, instruction string) string {
	return prompt + fillFrameInstruction + "\n\n" + instruction
}

func (service *CoreService) referenceDimensions(filename string) (int, int, error) {
	path, err := service.ImagePath(filename)
	if err != nil {
		return 0, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	return commands.DecodeDimensions(data)
}

// SaveImage post-processes a base64 image, writes it to the storage directory and records
// its metadata.
func (service *CoreService) SaveImage(ctx context.Context, request SaveRequest) (*SavedImage, error) {
	if strings.TrimSpace(request.ImageB64) == "" {
		return nil, newValidationError("No image data provided")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(request.ImageB64))
	if err != nil {
		return nil, newValidationError(fmt.Sprintf("Invalid base64 data: %v", err))
	}

	prompt := request.Prompt
	if prompt == "" {
		prompt = UnknownPrompt
	}
	width, height := withDefaultSize(request.Width, request.Height)
	generationTime := math.Max(0, request.GenerationTime)

	result, err := service.finalizer.Finalize(ctx, raw, width, height)
	if err != nil {
		return nil, err
	}
	if result.Fallback {
		slog.Warn("image could not be decoded, saved raw data", "requested_width", width, "requested_height", height)
	}

	created := service.now()
	filename := database.NewImageFilename(created)
	path := filepath.Join(service.config.StorageDirectory, filename)
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image %s: %w", filename, err)
	}

	record := database.ImageRecord{
		Filename:       filename,
		Width:          result.Width,
		Height:         result.Height,
		Prompt:         prompt,
		Model:          service.config.Generator.ModelLabel,
		GenerationTime: generationTime,
		Created:        created,
	}
	if err := service.store.Upsert(ctx, filename, record); err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			slog.Warn("could not remove image after metadata failure", "filename", filename, "error", removeErr)
		}
		return nil, fmt.Errorf("failed to store metadata for %s: %w", filename, err)
	}

	slog.Info("image saved",
		"filename", filename,
		"width", result.Width,
		"height", result.Height,
		"size_bytes", len(result.Data),
		"policy", service.finalizer.Policy())

	return &SavedImage{
		Filename:       filename,
		Width:          result.Width,
		Height:         result.Height,
		Model:          record.Model,
		GenerationTime: generationTime,
		FileSize:       int64(len(result.Data)),
		Prompt:         prompt,
		Created:        created,
	}, nil
}

// ListImages returns all stored PNG files, newest first. Images without a creation time
// are listed last.
func (service *CoreService) ListImages(ctx context.Context) ([]GalleryImage, error) {
	entries, err := os.ReadDir(service.config.StorageDirectory)
	if errors.Is(err, fs.ErrNotExist) {
		return []GalleryImage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	records, err := service.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	images := make([]GalleryImage, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		images = append(images, toGalleryImage(entry.Name(), info.Size(), records))
	}

	sortGallery(images)
	return images, nil
}

func toGalleryImage(filename string, size int64, records map[string]database.ImageRecord) GalleryImage {
	image := GalleryImage{
		Filename: filename,
		Size:     size,
		Prompt:   Unknown,
		Model:    Unknown,
		Created:  Unknown,
	}
	record, ok := records[filename]
	if !ok {
		return image
	}
	image.Width = record.Width
	image.Height = record.Height
	image.GenerationTime = record.GenerationTime
	if record.Prompt != "" {
		image.Prompt = record.Prompt
	}
	if record.Model != "" {
		image.Model = record.Model
	}
	if !record.Created.IsZero() {
		image.createdAt = record.Created
		image.Created = record.Created.Format(time.RFC3339)
	}
	return image
}

func sortGallery(images []GalleryImage) {
	sort.SliceStable(images, func(i, j int) bool {
		if !images[i].createdAt.Equal(images[j].createdAt) {
			return images[i].createdAt.After(images[j].createdAt)
		}
		return images[i].Filename < images[j].Filename
	})
}

// ImagePath resolves a stored image filename. Names that could leave the storage directory
// and names of missing files yield ErrNotFound.
func (service *CoreService) ImagePath(filename string) (string, error) {
	if !isSafeFilename(filename) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	path := filepath.Join(service.config.StorageDirectory, filename)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	return path, nil
}

// Thumbnail renders a PNG preview of a stored image at the configured width.
func (service *CoreService) Thumbnail(ctx context.Context, filename string) ([]byte, error) {
	path, err := service.ImagePath(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", filename, err)
	}

	command, err := commandstructure.DefaultRegistry.Create(commands.ThumbnailCommandName,
		map[string]any{"width": service.config.ThumbnailWidth})
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail command: %w", err)
	}
	thumbnail, err := command.Execute(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail: %w", err)
	}
	return thumbnail, nil
}

// GenerationEnabled reports whether Generate can reach a provider.
func (service *CoreService) GenerationEnabled() bool {
	return service.provider != nil
}

// ModelLabel is the model name recorded with saved images.
func (service *CoreService) ModelLabel() string {
	return service.config.Generator.ModelLabel
}

func (service *CoreService) Close() error {
	return service.store.Close()
}

func isSafeFilename(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}

func withDefaultSize(width, height int) (int, int) {
	if width <= 0 {
		width = DefaultImageSize
	}
	if height <= 0 {
		height = DefaultImageSize
	}
	return width, height
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
