// Package broadcast defines the port interface for pushing live events to
// connected clients.
package broadcast

import "context"

// Broadcaster fans an event out to all connected clients.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, event string, payload any)
}
