package eventstream

import "context"

// Publisher publishes relayed events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, envelope *Envelope) error
	Close() error
}
