// Package inference defines the port interface for the text generation
// capability.
package inference

import (
	"context"
	"errors"
	"fmt"
)

// Request carries one generation call. Context is the prior session turns
// rendered as prompt context by the caller.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Context     []string
	Temperature float64
	MaxTokens   int
}

// Generator is the port interface for the inference backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Error is the typed failure of a generation call. Transient errors
// (timeouts, 5xx) are eligible for retry with backoff.
type Error struct {
	Reason    string
	Transient bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("inference: %s", e.Reason)
}

// AsError unwraps err into an *Error when possible.
func AsError(err error) (*Error, bool) {
	var ie *Error
	ok := errors.As(err, &ie)
	return ie, ok
}
