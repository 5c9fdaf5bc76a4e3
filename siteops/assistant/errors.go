package assistant

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage      = errors.New("message must not be empty")
	ErrOwnerRequired     = errors.New("owner id is required")
	ErrModelRequired     = errors.New("model is required")
	ErrModelUnavailable  = errors.New("model is not available")
	ErrAccessDenied      = errors.New("access denied")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrChatFailed        = errors.New("chat failed")
	ErrRateLimited       = errors.New("too many requests")
	ErrNoToolCalls       = errors.New("at least one tool call is required")
)

// ModelUnavailableError names the requested model that the runtime does not have.
type ModelUnavailableError struct {
	Model string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %q is not available; pull it first", e.Model)
}

func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}
