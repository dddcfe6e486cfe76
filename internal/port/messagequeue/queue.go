// Package messagequeue defines the port interface for the durable message
// queue used as the report sink and turn event feed.
package messagequeue

import "context"

// Handler processes one message. Returning an error causes redelivery.
type Handler func(subject string, data []byte) error

// Queue is the message queue port.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler Handler) (func(), error)
	Close() error
}
