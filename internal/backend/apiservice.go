package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/goimagine/internal/backend/generator"
	"github.com/jo-hoe/goimagine/internal/backend/middleware"
	"github.com/jo-hoe/goimagine/internal/common"
	"github.com/jo-hoe/goimagine/internal/core"
	"github.com/labstack/echo/v4"
)

type APIService struct {
	coreService *core.CoreService
}

type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Width    int    `json:"width" validate:"min=0,max=8192"`
	Height   int    `json:"height" validate:"min=0,max=8192"`
	RefImage string `json:"ref_image"`
}

type GenerateResponse struct {
	ImageB64       string  `json:"image_b64"`
	AspectRatio    string  `json:"aspect_ratio"`
	GenerationTime float64 `json:"generation_time"`
}

type SaveImageRequest struct {
	ImageB64       string  `json:"image_b64"`
	Prompt         string  `json:"prompt"`
	Width          int     `json:"width" validate:"min=0,max=8192"`
	Height         int     `json:"height" validate:"min=0,max=8192"`
	GenerationTime float64 `json:"generation_time" validate:"min=0"`
}

type SaveImageResponse struct {
	Success        bool    `json:"success"`
	Filename       string  `json:"filename"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Model          string  `json:"model"`
	GenerationTime float64 `json:"generation_time"`
	FileSize       int64   `json:"file_size"`
	Prompt         string  `json:"prompt"`
	Created        string  `json:"created"`
}

type Image struct {
	Filename       string  `json:"filename"`
	Size           int64   `json:"size"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Prompt         string  `json:"prompt"`
	Model          string  `json:"model"`
	GenerationTime float64 `json:"generation_time"`
	Created        string  `json:"created"`
}

type ImageListResponse struct {
	Images []Image `json:"images"`
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
	}
}

// NewHTTPErrorHandler renders every failure as {"error": message} with the status
// derived from StatusForError.
func NewHTTPErrorHandler() echo.HTTPErrorHandler {
	return common.NewJSONErrorHandler(StatusForError)
}

// StatusForError maps core and generator errors to HTTP status codes.
func StatusForError(err error) (int, bool) {
	var generationErr *generator.GenerationError
	var upstreamErr *generator.UpstreamError
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, true
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, core.ErrGenerationDisabled):
		return http.StatusServiceUnavailable, true
	case errors.As(err, &generationErr), errors.As(err, &upstreamErr), errors.Is(err, generator.ErrNoImageInResponse):
		return http.StatusInternalServerError, true
	}
	return 0, false
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", s.probeHandler)
	e.GET("/metrics", middleware.MetricsHandler())

	e.POST("/generate", s.generateHandler)
	e.POST("/save_image", s.saveImageHandler)
	e.GET("/images", s.listImagesHandler)
	e.GET("/generated_images/:filename", s.serveImageHandler)
	e.GET("/download/:filename", s.downloadImageHandler)
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "API Service is running")
}

func (s *APIService) generateHandler(ctx echo.Context) error {
	var request GenerateRequest
	if err := ctx.Bind(&request); err != nil {
		return err
	}
	if err := ctx.Validate(&request); err != nil {
		return err
	}

	result, err := s.coreService.Generate(ctx.Request().Context(), core.GenerateRequest{
		Prompt:   request.Prompt,
		Width:    request.Width,
		Height:   request.Height,
		RefImage: request.RefImage,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, GenerateResponse{
		ImageB64:       result.ImageB64,
		AspectRatio:    result.AspectRatio,
		GenerationTime: result.GenerationTime,
	})
}

func (s *APIService) saveImageHandler(ctx echo.Context) error {
	var request SaveImageRequest
	if err := ctx.Bind(&request); err != nil {
		return err
	}
	if err := ctx.Validate(&request); err != nil {
		return err
	}

	saved, err := s.coreService.SaveImage(ctx.Request().Context(), core.SaveRequest{
		ImageB64:       request.ImageB64,
		Prompt:         request.Prompt,
		Width:          request.Width,
		Height:         request.Height,
		GenerationTime: request.GenerationTime,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, SaveImageResponse{
		Success:        true,
		Filename:       saved.Filename,
		Width:          saved.Width,
		Height:         saved.Height,
		Model:          saved.Model,
		GenerationTime: saved.GenerationTime,
		FileSize:       saved.FileSize,
		Prompt:         saved.Prompt,
		Created:        saved.Created.Format(time.RFC3339),
	})
}

func (s *APIService) listImagesHandler(ctx echo.Context) error {
	images, err := s.coreService.ListImages(ctx.Request().Context())
	if err != nil {
		return err
	}

	response := ImageListResponse{Images: make([]Image, 0, len(images))}
	for _, image := range images {
		response.Images = append(response.Images, Image{
			Filename:       image.Filename,
			Size:           image.Size,
			Width:          image.Width,
			Height:         image.Height,
			Prompt:         image.Prompt,
			Model:          image.Model,
			GenerationTime: image.GenerationTime,
			Created:        image.Created,
		})
	}
	return ctx.JSON(http.StatusOK, response)
}

func (s *APIService) serveImageHandler(ctx echo.Context) error {
	filename := ctx.Param("filename")
	path, err := s.coreService.ImagePath(filename)
	if err != nil {
		slog.Warn("serveImageHandler: image not available", "filename", filename, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "Image not found")
	}
	return ctx.File(path)
}

func (s *APIService) downloadImageHandler(ctx echo.Context) error {
	filename := ctx.Param("filename")
	path, err := s.coreService.ImagePath(filename)
	if err != nil {
		slog.Warn("downloadImageHandler: file not available", "filename", filename, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "File not found")
	}
	return ctx.Attachment(path, filename)
}
