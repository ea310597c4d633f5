package frontend

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/goimagine/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName = "index.html"
	mimePNG      = "image/png"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

// pageData is passed to the index template.
type pageData struct {
	Images            []core.GalleryImage
	GenerationEnabled bool
	ModelLabel        string
	ThumbnailWidth    int
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = &Template{
		templates: template.Must(template.New("").ParseFS(templateFS, viewsPattern)),
	}

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.indexHandler)
	e.GET("/thumbnails/:filename", service.thumbnailHandler)
	e.StaticFS("/static", echo.MustSubFS(staticFS, "static"))
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	images, err := service.coreService.ListImages(ctx.Request().Context())
	if err != nil {
		slog.Error("indexHandler: failed to list images",
			"status", http.StatusInternalServerError, "error", err)
		return err
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, MainPageName, pageData{
		Images:            images,
		GenerationEnabled: service.coreService.GenerationEnabled(),
		ModelLabel:        service.coreService.ModelLabel(),
		ThumbnailWidth:    service.config.ThumbnailWidth,
	})
}

func (service *FrontendService) thumbnailHandler(ctx echo.Context) error {
	filename := ctx.Param("filename")
	thumbnail, err := service.coreService.Thumbnail(ctx.Request().Context(), filename)
	if errors.Is(err, core.ErrNotFound) {
		slog.Warn("thumbnailHandler: image not available",
			"status", http.StatusNotFound, "filename", filename)
		return echo.NewHTTPError(http.StatusNotFound, "Image not found")
	}
	if err != nil {
		slog.Error("thumbnailHandler: thumbnail not available",
			"status", http.StatusInternalServerError, "filename", filename, "error", err)
		return err
	}

	// stored images never change, so previews may be cached
	ctx.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return ctx.Blob(http.StatusOK, mimePNG, thumbnail)
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}
