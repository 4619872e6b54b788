// Package relay forwards the opencode server's event feed to an event stream
// backend.
//
//	opencode server --SSE--> Relay --worker pool--> eventstream.Publisher
//
// Reading the feed and publishing are decoupled by the worker pool, so a
// slow publisher drops events instead of stalling the SSE connection.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/eventstream"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
	"github.com/papercomputeco/opencode-go/relay/worker"
)

// Relay reads events from one server and publishes them.
type Relay struct {
	config     Config
	source     eventstream.EventSource
	workerPool *worker.Pool
	logger     *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// New creates a Relay and starts its worker pool.
func New(config Config) (*Relay, error) {
	if config.Client == nil {
		return nil, errors.New("relay requires a client")
	}
	if config.Publisher == nil {
		return nil, errors.New("relay requires a publisher")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	wp, err := worker.NewPool(&worker.Config{
		Publisher:  config.Publisher,
		NumWorkers: config.Workers,
		QueueSize:  config.QueueSize,
		Logger:     config.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	return &Relay{
		config: config,
		source: eventstream.EventSource{
			BaseURL:   config.Client.BaseURL(),
			Directory: config.Client.DefaultQuery().Get("directory"),
		},
		workerPool: wp,
		logger:     config.Logger,
	}, nil
}

// Run subscribes to the event feed and relays events until the feed ends,
// the connection fails, or ctx is cancelled. The end of the feed and a
// cancelled ctx return nil. Events that fail to decode are logged and
// skipped.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("starting event relay",
		zap.String("source", r.source.BaseURL),
		zap.String("filter", r.config.Filter),
	)

	stream, err := r.config.Client.Event().List(ctx, r.config.StreamOptions...)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer stream.Close()

	for event, err := range stream.All() {
		if err != nil {
			var apiErr *opencode.Error
			if errors.As(err, &apiErr) && apiErr.Kind == opencode.KindSerialization {
				r.logger.Warn("skipping undecodable event", zap.Error(err))
				continue
			}
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("reading events: %w", err)
		}

		if !r.matches(event.Type) {
			continue
		}

		if r.config.OnEvent != nil {
			r.config.OnEvent(event)
		}

		r.workerPool.Enqueue(worker.Job{
			Envelope: eventstream.NewEnvelope(event, r.source),
		})
	}

	stats := r.workerPool.Stats()
	r.logger.Info("event relay stopped",
		zap.Uint64("published", stats.Published),
		zap.Uint64("failed", stats.Failed),
		zap.Uint64("dropped", stats.Dropped),
	)
	return nil
}

func (r *Relay) matches(eventType string) bool {
	return r.config.Filter == "" || strings.HasPrefix(eventType, r.config.Filter)
}

// Stats returns the worker pool counters.
func (r *Relay) Stats() worker.Stats {
	return r.workerPool.Stats()
}

// Close drains queued events and closes the publisher.
func (r *Relay) Close() error {
	r.closeOnce.Do(func() {
		r.workerPool.Close()
		r.closeErr = r.config.Publisher.Close()
	})
	return r.closeErr
}
