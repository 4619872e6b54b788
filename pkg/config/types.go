package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent ocgo configuration stored as config.toml
// in the .ocgo/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Log     LogConfig    `toml:"log"`
	Events  EventsConfig `toml:"events"`
	Kafka   KafkaConfig  `toml:"kafka"`
	Server  ServerConfig `toml:"server"`
}

// ClientConfig holds the settings used to build an opencode.Client.
type ClientConfig struct {
	BaseURL string `toml:"base_url,omitempty"`

	// Timeout is a Go duration string such as "60s" or "2m".
	Timeout string `toml:"timeout,omitempty"`

	// MaxRetries is a pointer so that an explicit 0 (no retries) survives
	// applyDefaults.
	MaxRetries *uint `toml:"max_retries,omitempty"`

	// Directory is sent as the "directory" query parameter on every request
	// when non-empty.
	Directory string `toml:"directory,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Debug bool `toml:"debug,omitempty"`

	// File, when set, receives a JSON copy of every log line.
	File string `toml:"file,omitempty"`
}

// EventsConfig holds settings for "ocgo events" and the event relay.
type EventsConfig struct {
	Publisher string `toml:"publisher,omitempty"`
	Workers   uint   `toml:"workers,omitempty"`
	QueueSize uint   `toml:"queue_size,omitempty"`

	// Filter is an event type prefix such as "session." or "message.part".
	Filter string `toml:"filter,omitempty"`
}

// KafkaConfig holds settings for the kafka event publisher.
type KafkaConfig struct {
	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// ServerConfig holds settings for the mock server run by "ocgo serve".
type ServerConfig struct {
	Listen    string `toml:"listen,omitempty"`
	Heartbeat string `toml:"heartbeat,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.base_url": {
		get: func(c *Config) string { return c.Client.BaseURL },
		set: func(c *Config, v string) error { c.Client.BaseURL = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			if err := parseDuration("client.timeout", v); err != nil {
				return err
			}
			c.Client.Timeout = v
			return nil
		},
	},
	"client.max_retries": {
		get: func(c *Config) string {
			if c.Client.MaxRetries == nil {
				return ""
			}
			return strconv.FormatUint(uint64(*c.Client.MaxRetries), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for client.max_retries: %w", err)
			}
			retries := uint(n)
			c.Client.MaxRetries = &retries
			return nil
		},
	},
	"client.directory": {
		get: func(c *Config) string { return c.Client.Directory },
		set: func(c *Config, v string) error { c.Client.Directory = v; return nil },
	},
	"log.debug": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Debug) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for log.debug: %w", err)
			}
			c.Log.Debug = b
			return nil
		},
	},
	"log.file": {
		get: func(c *Config) string { return c.Log.File },
		set: func(c *Config, v string) error { c.Log.File = v; return nil },
	},
	"events.publisher": {
		get: func(c *Config) string { return c.Events.Publisher },
		set: func(c *Config, v string) error {
			if !IsValidPublisher(v) {
				return fmt.Errorf("invalid value for events.publisher: %q (available: %s, %s)", v, PublisherNop, PublisherKafka)
			}
			c.Events.Publisher = v
			return nil
		},
	},
	"events.workers": {
		get: func(c *Config) string { return formatUint(c.Events.Workers) },
		set: func(c *Config, v string) error { return setUint("events.workers", v, &c.Events.Workers) },
	},
	"events.queue_size": {
		get: func(c *Config) string { return formatUint(c.Events.QueueSize) },
		set: func(c *Config, v string) error { return setUint("events.queue_size", v, &c.Events.QueueSize) },
	},
	"events.filter": {
		get: func(c *Config) string { return c.Events.Filter },
		set: func(c *Config, v string) error { c.Events.Filter = v; return nil },
	},
	"kafka.brokers": {
		get: func(c *Config) string { return c.Kafka.Brokers },
		set: func(c *Config, v string) error { c.Kafka.Brokers = v; return nil },
	},
	"kafka.topic": {
		get: func(c *Config) string { return c.Kafka.Topic },
		set: func(c *Config, v string) error { c.Kafka.Topic = v; return nil },
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.heartbeat": {
		get: func(c *Config) string { return c.Server.Heartbeat },
		set: func(c *Config, v string) error {
			if err := parseDuration("server.heartbeat", v); err != nil {
				return err
			}
			c.Server.Heartbeat = v
			return nil
		},
	},
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

func setUint(key, v string, target *uint) error {
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = uint(n)
	return nil
}

func parseDuration(key, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid value for %s: must be positive", key)
	}
	return nil
}
