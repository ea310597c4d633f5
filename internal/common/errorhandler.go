package common

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusMapper maps domain errors to an HTTP status. It returns false for unknown errors.
type StatusMapper func(err error) (int, bool)

// NewJSONErrorHandler returns an echo.HTTPErrorHandler writing {"error": message}.
// echo.HTTPError keeps its own code; errors unknown to mapper become 500.
func NewJSONErrorHandler(mapper StatusMapper) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := err.Error()

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			message = fmt.Sprint(httpErr.Message)
			if httpErr.Internal != nil && status >= http.StatusInternalServerError {
				message = httpErr.Internal.Error()
			}
		} else if mapper != nil {
			if mapped, ok := mapper(err); ok {
				status = mapped
			}
		}

		if status >= http.StatusInternalServerError {
			slog.Error("request failed", "status", status, "path", c.Path(), "error", err)
		} else {
			slog.Warn("request rejected", "status", status, "path", c.Path(), "error", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, ErrorResponse{Error: message})
		}
		if writeErr != nil {
			slog.Error("failed to write error response", "error", writeErr)
		}
	}
}
