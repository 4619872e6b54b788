package kafka_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/opencode-go/pkg/eventstream"
	"github.com/papercomputeco/opencode-go/pkg/eventstream/kafka"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func headers(msg kafkago.Message) map[string]string {
	out := map[string]string{}
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

var _ = Describe("Publisher", func() {
	var (
		writer *fakeWriter
		p      *kafka.Publisher
	)

	BeforeEach(func() {
		writer = &fakeWriter{}
		p = kafka.NewPublisherWithWriter(writer, "opencode.events", nil)
	})

	It("writes the envelope as JSON keyed by session id", func() {
		envelope := eventstream.NewEnvelope(opencode.Event{
			Type:       opencode.EventSessionIdle,
			Properties: json.RawMessage(`{"sessionID":"ses_1"}`),
		}, eventstream.EventSource{BaseURL: "http://localhost:54321"})

		Expect(p.Publish(context.Background(), envelope)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("ses_1"))
		Expect(headers(msg)).To(Equal(map[string]string{
			kafka.HeaderEventType:     "session.idle",
			kafka.HeaderSchemaVersion: "1",
		}))

		var decoded eventstream.Envelope
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(envelope.EventID))
		Expect(decoded.Event.Type).To(Equal(opencode.EventSessionIdle))
	})

	It("keys session-less events by type", func() {
		envelope := eventstream.NewEnvelope(opencode.Event{Type: opencode.EventServerConnected}, eventstream.EventSource{})
		Expect(p.Publish(context.Background(), envelope)).To(Succeed())
		Expect(string(writer.messages[0].Key)).To(Equal("server.connected"))
	})

	It("returns ErrNilEnvelope for nil envelopes", func() {
		Expect(p.Publish(context.Background(), nil)).To(MatchError(eventstream.ErrNilEnvelope))
		Expect(writer.messages).To(BeEmpty())
	})

	It("wraps writer errors with the topic", func() {
		writer.err = errors.New("leader not available")
		envelope := eventstream.NewEnvelope(opencode.Event{Type: opencode.EventServerConnected}, eventstream.EventSource{})

		err := p.Publish(context.Background(), envelope)
		Expect(err).To(MatchError(ContainSubstring("opencode.events")))
		Expect(errors.Is(err, writer.err)).To(BeTrue())
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})

var _ = Describe("NewPublisher", func() {
	It("requires brokers and a topic", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "t"})
		Expect(err).To(HaveOccurred())

		_, err = kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).To(HaveOccurred())
	})

	It("builds a publisher without dialing", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "t"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})
})

var _ = Describe("ParseBrokers", func() {
	It("splits and trims the list", func() {
		Expect(kafka.ParseBrokers(" a:1, ,b:2,")).To(Equal([]string{"a:1", "b:2"}))
		Expect(kafka.ParseBrokers("")).To(BeEmpty())
	})
})
