package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/eventstream"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// recordingPublisher records envelopes and can be made to fail or block.
type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []*eventstream.Envelope
	err       error
	block     chan struct{}
}

func (r *recordingPublisher) Publish(ctx context.Context, envelope *eventstream.Envelope) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.err != nil {
		return r.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, envelope)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.envelopes))
	for _, e := range r.envelopes {
		out = append(out, e.Event.Type)
	}
	return out
}

func envelope(eventType string) *eventstream.Envelope {
	return eventstream.NewEnvelope(opencode.Event{Type: eventType}, eventstream.EventSource{BaseURL: "http://test"})
}

var _ = Describe("Worker Pool", func() {
	var publisher *recordingPublisher

	BeforeEach(func() {
		publisher = &recordingPublisher{}
	})

	newPool := func(c *Config) *Pool {
		c.Publisher = publisher
		c.Logger = zap.NewNop()
		wp, err := NewPool(c)
		Expect(err).NotTo(HaveOccurred())
		return wp
	}

	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(HaveOccurred())
	})

	It("applies defaults", func() {
		c := &Config{}
		wp := newPool(c)
		defer wp.Close()

		Expect(c.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(c.QueueSize).To(Equal(defaultJobQueueSize))
		Expect(c.PublishTimeout).To(Equal(defaultPublishTimeout))
	})

	It("publishes every enqueued envelope before Close returns", func() {
		wp := newPool(&Config{NumWorkers: 1})

		Expect(wp.Enqueue(Job{Envelope: envelope(opencode.EventSessionCreated)})).To(BeTrue())
		Expect(wp.Enqueue(Job{Envelope: envelope(opencode.EventSessionIdle)})).To(BeTrue())
		wp.Close()

		Expect(publisher.types()).To(Equal([]string{"session.created", "session.idle"}))
		Expect(wp.Stats()).To(Equal(Stats{Published: 2}))
	})

	It("drops jobs when the queue is full", func() {
		publisher.block = make(chan struct{})
		wp := newPool(&Config{NumWorkers: 1, QueueSize: 1})

		// The first job may be picked up by the worker, which then blocks.
		// At most one more fits in the queue.
		accepted := 0
		for range 5 {
			if wp.Enqueue(Job{Envelope: envelope(opencode.EventSessionIdle)}) {
				accepted++
			}
		}
		Expect(accepted).To(BeNumerically("<=", 2))
		Expect(wp.Stats().Dropped).To(BeNumerically(">=", 3))

		close(publisher.block)
		wp.Close()
		Expect(wp.Stats().Published).To(BeNumerically("==", accepted))
	})

	It("counts publish failures", func() {
		publisher.err = errors.New("broker down")
		wp := newPool(&Config{})

		Expect(wp.Enqueue(Job{Envelope: envelope(opencode.EventSessionIdle)})).To(BeTrue())
		wp.Close()

		Expect(wp.Stats()).To(Equal(Stats{Failed: 1}))
	})

	It("rejects jobs after Close and tolerates a second Close", func() {
		wp := newPool(&Config{})
		wp.Close()

		Expect(wp.Enqueue(Job{Envelope: envelope(opencode.EventSessionIdle)})).To(BeFalse())
		Expect(wp.Stats().Dropped).To(Equal(uint64(1)))
		wp.Close()
	})

	It("rejects nil envelopes", func() {
		wp := newPool(&Config{})
		defer wp.Close()

		Expect(wp.Enqueue(Job{})).To(BeFalse())
	})
})
