package shared

import "fmt"

var (
	// Domain errors surfaced by both library backends
	ErrNotFound   = fmt.Errorf("not found")
	ErrValidation = fmt.Errorf("validation failed")
	ErrDuplicate  = fmt.Errorf("duplicate entry")

	// Transport and upstream errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrAPIUnavailable   = fmt.Errorf("API unavailable")
	ErrTimeout          = fmt.Errorf("operation timed out")
	ErrMethodNotAllowed = fmt.Errorf("method not allowed")
	ErrUpstream         = fmt.Errorf("upstream request failed")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Local persistence errors
	ErrPersistence = fmt.Errorf("persistence failed")
)

// NotFoundf wraps [ErrNotFound] with a formatted detail message so callers
// can match with errors.Is while logs keep the entity context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Validationf wraps [ErrValidation] with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
