package config

const (
	defaultBaseURL    = "http://localhost:54321"
	defaultTimeout    = "1m0s"
	defaultMaxRetries = 2

	defaultPublisher = PublisherNop
	defaultWorkers   = 2
	defaultQueueSize = 256

	defaultKafkaBrokers = "localhost:9092"
	defaultKafkaTopic   = "opencode.events"

	defaultServerListen    = "localhost:54321"
	defaultServerHeartbeat = "10s"
)

// Event publisher names accepted by events.publisher.
const (
	PublisherNop   = "nop"
	PublisherKafka = "kafka"
)

// IsValidPublisher reports whether name is a supported events.publisher value.
func IsValidPublisher(name string) bool {
	return name == PublisherNop || name == PublisherKafka
}

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	retries := uint(defaultMaxRetries)
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			BaseURL:    defaultBaseURL,
			Timeout:    defaultTimeout,
			MaxRetries: &retries,
		},
		Events: EventsConfig{
			Publisher: defaultPublisher,
			Workers:   defaultWorkers,
			QueueSize: defaultQueueSize,
		},
		Kafka: KafkaConfig{
			Brokers: defaultKafkaBrokers,
			Topic:   defaultKafkaTopic,
		},
		Server: ServerConfig{
			Listen:    defaultServerListen,
			Heartbeat: defaultServerHeartbeat,
		},
	}
}
