package nop

import (
	"context"

	"github.com/papercomputeco/opencode-go/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish validates input and otherwise does nothing.
func (p *Publisher) Publish(_ context.Context, envelope *eventstream.Envelope) error {
	if envelope == nil {
		return eventstream.ErrNilEnvelope
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
