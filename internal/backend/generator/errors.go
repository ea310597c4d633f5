package generator

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNoImageInResponse is returned when a successful response carries no image payload.
var ErrNoImageInResponse = errors.New("no image in response")

// ErrReferenceUnsupported is returned by providers that cannot take a reference image.
var ErrReferenceUnsupported = errors.New("provider does not support reference images")

// UpstreamError is a non-2xx answer from the remote provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
	// RetryAfter is the provider supplied wait hint; zero when absent.
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s responded with HTTP %d", e.Provider, e.StatusCode)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// RateLimited reports whether the provider rejected the call because of a quota.
func (e *UpstreamError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
}

// GenerationError is returned after every attempt failed.
type GenerationError struct {
	Attempts int
	Last     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("image generation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *GenerationError) Unwrap() error {
	return e.Last
}
