package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/opencode-go/pkg/dotdir"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the OCGO_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (OCGO_CLIENT_TIMEOUT, OCGO_KAFKA_TOPIC, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: OCGO_CLIENT_BASE_URL, OCGO_EVENTS_FILTER, etc.
	v.SetEnvPrefix("OCGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// OPENCODE_BASE_URL is honored by every opencode SDK. The first name wins
	// when both are set.
	if err := v.BindEnv("client.base_url", "OCGO_CLIENT_BASE_URL", opencode.BaseURLEnv); err != nil {
		return nil, fmt.Errorf("binding %s: %w", opencode.BaseURLEnv, err)
	}

	return v, nil
}

// FromViper builds a Config from the resolved viper values, so that flags and
// environment variables take part in the result.
func FromViper(v *viper.Viper) *Config {
	retries := v.GetUint("client.max_retries")
	return &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			BaseURL:    v.GetString("client.base_url"),
			Timeout:    v.GetString("client.timeout"),
			MaxRetries: &retries,
			Directory:  v.GetString("client.directory"),
		},
		Log: LogConfig{
			Debug: v.GetBool("log.debug"),
			File:  v.GetString("log.file"),
		},
		Events: EventsConfig{
			Publisher: v.GetString("events.publisher"),
			Workers:   v.GetUint("events.workers"),
			QueueSize: v.GetUint("events.queue_size"),
			Filter:    v.GetString("events.filter"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetString("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Server: ServerConfig{
			Listen:    v.GetString("server.listen"),
			Heartbeat: v.GetString("server.heartbeat"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.base_url", d.Client.BaseURL)
	v.SetDefault("client.timeout", d.Client.Timeout)
	v.SetDefault("client.max_retries", *d.Client.MaxRetries)
	v.SetDefault("client.directory", d.Client.Directory)

	// Log
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.file", d.Log.File)

	// Events
	v.SetDefault("events.publisher", d.Events.Publisher)
	v.SetDefault("events.workers", d.Events.Workers)
	v.SetDefault("events.queue_size", d.Events.QueueSize)
	v.SetDefault("events.filter", d.Events.Filter)

	// Kafka
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic", d.Kafka.Topic)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.heartbeat", d.Server.Heartbeat)
}
