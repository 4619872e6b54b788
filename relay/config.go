package relay

import (
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/eventstream"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// Config is the relay configuration.
type Config struct {
	// Client reads the server's event feed.
	Client *opencode.Client

	// Publisher receives an envelope for every relayed event. The relay owns
	// it and closes it on Close.
	Publisher eventstream.Publisher

	// StreamOptions are applied to the event feed request, for example
	// opencode.WithStreamTee to record the raw feed.
	StreamOptions []opencode.RequestOption

	// Filter is an event type prefix (e.g. "session." or "message.part").
	// Empty relays every event.
	Filter string

	// Workers and QueueSize size the publish worker pool. Zero uses the
	// pool defaults.
	Workers   uint
	QueueSize uint

	// OnEvent, when set, is called synchronously for every event that passes
	// the filter, before it is enqueued.
	OnEvent func(opencode.Event)

	Logger *zap.Logger
}
