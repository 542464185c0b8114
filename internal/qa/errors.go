package qa

import "errors"

// ErrEngineUnavailable is returned alongside a complete degraded Response
// when the answer engine failed to initialize.
var ErrEngineUnavailable = errors.New("AI system not initialized")

// ValidationError rejects a request before any provider is called.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
