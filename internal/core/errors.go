package core

import "errors"

var (
	// ErrValidation marks request errors caused by the caller.
	ErrValidation = errors.New("invalid request")
	// ErrNotFound is returned for unknown or unsafe image filenames.
	ErrNotFound = errors.New("not found")
	// ErrGenerationDisabled is returned by Generate when generation is switched off.
	ErrGenerationDisabled = errors.New("image generation is disabled")
)

// ValidationError carries a message meant for the client. It matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(message string) error {
	return &ValidationError{Message: message}
}
