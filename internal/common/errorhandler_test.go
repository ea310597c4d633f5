package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

var errMissing = errors.New("missing thing")

func testMapper(err error) (int, bool) {
	if errors.Is(err, errMissing) {
		return http.StatusNotFound, true
	}
	return 0, false
}

func TestJSONErrorHandler(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{"Mapped error", errMissing, http.StatusNotFound, "missing thing"},
		{"Unknown error", errors.New("boom"), http.StatusInternalServerError, "boom"},
		{"Echo HTTP error", echo.NewHTTPError(http.StatusBadRequest, "bad body"), http.StatusBadRequest, "bad body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			NewJSONErrorHandler(testMapper)(tt.err, c)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Expected JSON body, got %q", rec.Body.String())
			}
			if body.Error != tt.expectedMessage {
				t.Errorf("Expected message %q, got %q", tt.expectedMessage, body.Error)
			}
		})
	}
}

func TestGenericEchoValidator(t *testing.T) {
	type request struct {
		Name string `validate:"required"`
	}

	v := &GenericEchoValidator{}
	if err := v.Validate(&request{Name: "x"}); err != nil {
		t.Errorf("Expected valid request, got %v", err)
	}

	err := v.Validate(&request{})
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 HTTPError, got %v", err)
	}
}
