// Package pubsub defines the outbound message bus contract used to mirror
// store notifications to external consumers.
package pubsub

import "context"

// Publisher sends a message to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}
