// Package kafka publishes relayed opencode events to a kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/eventstream"
)

// Header keys set on every message.
const (
	HeaderEventType     = "event_type"
	HeaderSchemaVersion = "schema_version"
)

// Config configures a Publisher.
type Config struct {
	// Brokers are host:port pairs of the kafka cluster.
	Brokers []string
	Topic   string

	// BatchTimeout bounds how long messages wait for a batch to fill.
	// Zero uses 10ms.
	BatchTimeout time.Duration

	Logger *zap.Logger
}

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes envelopes as JSON messages keyed by session id, so that
// every event of one session lands on the same partition. Messages keep the
// order of Publish calls; callers publishing from several goroutines get no
// ordering across them.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewPublisher creates a Publisher backed by a kafka-go Writer with a hash
// balancer.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 10 * time.Millisecond
	}

	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}

	return newPublisher(writer, cfg.Topic, cfg.Logger), nil
}

func newPublisher(writer messageWriter, topic string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

// Publish writes one envelope and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, envelope *eventstream.Envelope) error {
	if envelope == nil {
		return eventstream.ErrNilEnvelope
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(envelope.Key()),
		Value: value,
		Time:  envelope.EmittedAt,
		Headers: []kafkago.Header{
			{Key: HeaderEventType, Value: []byte(envelope.Event.Type)},
			{Key: HeaderSchemaVersion, Value: []byte(strconv.Itoa(envelope.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to kafka topic %s: %w", p.topic, err)
	}

	p.logger.Debug("published event",
		zap.String("topic", p.topic),
		zap.String("event_id", envelope.EventID),
		zap.String("type", envelope.Event.Type),
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
