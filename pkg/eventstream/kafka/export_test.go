package kafka

import "go.uber.org/zap"

// NewPublisherWithWriter lets tests substitute the kafka writer.
func NewPublisherWithWriter(writer messageWriter, topic string, logger *zap.Logger) *Publisher {
	return newPublisher(writer, topic, logger)
}
