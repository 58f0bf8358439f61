package services

import "promptlab/internal/errors"

// Standard service errors
var (
	// Handler configuration errors. These reject an execution before any
	// run is attempted.
	ErrTemplateNotFound   = errors.New("prompt template not found")
	ErrMissingPlaceholder = errors.New("template has no input placeholder")
	ErrDuplicateHandlerID = errors.New("duplicate handler ID")
	ErrHandlerNotFound    = errors.New("handler not found")
	ErrInvalidRunCount    = errors.New("run count must be at least 1")
	ErrInvalidPolicy      = errors.New("invalid execution policy")

	// Provider and transport errors
	ErrProviderUnavailable = errors.New("LLM provider unavailable")
	ErrTimeout             = errors.New("operation timed out")

	// Data errors
	ErrInvalidInput  = errors.New("invalid input provided")
	ErrInvalidFormat = errors.New("invalid format")
)

// IsConfigurationError reports whether an error is a setup problem that
// fails the whole execution rather than an individual run
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrMissingPlaceholder) ||
		errors.Is(err, ErrDuplicateHandlerID) ||
		errors.Is(err, ErrHandlerNotFound) ||
		errors.Is(err, ErrInvalidRunCount) ||
		errors.Is(err, ErrInvalidPolicy)
}

// IsRetryableError determines if an error should be retried
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrTimeout)
}
