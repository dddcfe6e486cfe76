// Package action defines the port interface for the resource mutation
// capability (VM deallocate/scale).
package action

import (
	"context"
	"fmt"
	"time"
)

// Ack confirms one applied action.
type Ack struct {
	ResourceID string    `json:"resource_id"`
	Action     string    `json:"action"`
	AppliedAt  time.Time `json:"applied_at"`
}

// Actuator applies an action to an external resource. The idempotency key
// must be unique per validated repair attempt; the backend is expected to
// treat a repeated key as already applied.
type Actuator interface {
	Apply(ctx context.Context, resourceID, actionName, idempotencyKey string) (*Ack, error)
}

// Error is the typed failure of a mutation. Fatal for the attempt that
// issued it; the repair loop decides whether to retry or abort.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("action %s: %s", e.Code, e.Message)
}
