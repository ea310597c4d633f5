package frontend

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jo-hoe/goimagine/internal/backend/database"
	"github.com/jo-hoe/goimagine/internal/core"
	"github.com/labstack/echo/v4"
)

func newTestFrontend(t *testing.T) (*echo.Echo, *core.ServiceConfig) {
	t.Helper()
	config := core.DefaultConfig()
	config.StorageDirectory = t.TempDir()
	config.ThumbnailWidth = 16

	store, err := database.NewJSONStore(config.StorageDirectory, false)
	if err != nil {
		t.Fatalf("NewJSONStore error: %v", err)
	}
	coreService, err := core.NewCoreServiceWithDependencies(config, store, nil)
	if err != nil {
		t.Fatalf("NewCoreServiceWithDependencies error: %v", err)
	}
	t.Cleanup(func() { _ = coreService.Close() })

	e := echo.New()
	NewFrontendService(config, coreService).SetRoutes(e)
	return e, config
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
}

func TestRootRedirectsToIndex(t *testing.T) {
	e, _ := newTestFrontend(t)
	rec := get(e, "/")
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("Expected 301, got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "/index.html" {
		t.Errorf("Expected redirect to /index.html, got %q", rec.Header().Get("Location"))
	}
}

func TestIndexListsImages(t *testing.T) {
	e, config := newTestFrontend(t)
	writePNG(t, filepath.Join(config.StorageDirectory, "image_0000abcd_1700000000.png"), 40, 20)

	rec := get(e, "/index.html")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "/thumbnails/image_0000abcd_1700000000.png") {
		t.Error("Expected thumbnail link for stored image")
	}
	if !strings.Contains(body, "Image generation is disabled") {
		t.Error("Expected disabled notice without a provider")
	}
}

func TestIndexEmptyGallery(t *testing.T) {
	e, _ := newTestFrontend(t)
	rec := get(e, "/index.html")
	if !strings.Contains(rec.Body.String(), "No images generated yet.") {
		t.Errorf("Expected empty gallery message, got %s", rec.Body.String())
	}
}

func TestThumbnail(t *testing.T) {
	e, config := newTestFrontend(t)
	writePNG(t, filepath.Join(config.StorageDirectory, "wide.png"), 64, 32)

	rec := get(e, "/thumbnails/wide.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Expected PNG thumbnail: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Errorf("Expected 16x8, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	if rec := get(e, "/thumbnails/missing.png"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing thumbnail, got %d", rec.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	e, _ := newTestFrontend(t)
	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		if rec := get(e, path); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
