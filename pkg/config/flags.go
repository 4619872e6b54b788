package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --base-url
// on "ocgo session", "ocgo chat" and "ocgo events").
type Flag struct {
	// Name is the long flag name (e.g. "base-url").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.base_url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddDurationFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagBaseURL    = "base-url"
	FlagTimeout    = "timeout"
	FlagMaxRetries = "max-retries"
	FlagDirectory  = "directory"
	FlagLogFile    = "log-file"
	FlagFilter     = "filter"
	FlagPublisher  = "publish"
	FlagWorkers    = "workers"
	FlagQueueSize  = "queue-size"
	FlagBrokers    = "brokers"
	FlagTopic      = "topic"
	FlagListen     = "listen"
	FlagHeartbeat  = "heartbeat"
)

// Flags is the registry shared by every ocgo command.
var Flags = FlagSet{
	FlagBaseURL: {
		Name:        "base-url",
		Shorthand:   "u",
		ViperKey:    "client.base_url",
		Description: "opencode server URL",
	},
	FlagTimeout: {
		Name:        "timeout",
		ViperKey:    "client.timeout",
		Description: "Per-attempt request timeout",
	},
	FlagMaxRetries: {
		Name:        "max-retries",
		ViperKey:    "client.max_retries",
		Description: "Retries after the first attempt (0 disables retrying)",
	},
	FlagDirectory: {
		Name:        "directory",
		ViperKey:    "client.directory",
		Description: "Project directory sent with every request",
	},
	FlagLogFile: {
		Name:        "log-file",
		ViperKey:    "log.file",
		Description: "Also write JSON logs to this file",
	},
	FlagFilter: {
		Name:        "filter",
		Shorthand:   "f",
		ViperKey:    "events.filter",
		Description: "Only handle events whose type starts with this prefix",
	},
	FlagPublisher: {
		Name:        "publish",
		ViperKey:    "events.publisher",
		Description: "Event publisher (nop, kafka)",
	},
	FlagWorkers: {
		Name:        "workers",
		ViperKey:    "events.workers",
		Description: "Number of publish workers",
	},
	FlagQueueSize: {
		Name:        "queue-size",
		ViperKey:    "events.queue_size",
		Description: "Publish queue capacity; events are dropped when it is full",
	},
	FlagBrokers: {
		Name:        "brokers",
		ViperKey:    "kafka.brokers",
		Description: "Comma separated kafka brokers",
	},
	FlagTopic: {
		Name:        "topic",
		ViperKey:    "kafka.topic",
		Description: "Kafka topic for relayed events",
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the mock server to listen on",
	},
	FlagHeartbeat: {
		Name:        "heartbeat",
		ViperKey:    "server.heartbeat",
		Description: "Interval between SSE heartbeat comments",
	},
}

// ClientFlags are the registry keys every command talking to a server binds.
var ClientFlags = []string{FlagBaseURL, FlagTimeout, FlagMaxRetries, FlagDirectory}

// AddClientFlags registers ClientFlags on cmd. Their values are read back
// through viper after BindRegisteredFlags.
func AddClientFlags(cmd *cobra.Command) {
	var (
		baseURL, directory string
		timeout            time.Duration
		retries            uint
	)
	AddStringFlag(cmd, Flags, FlagBaseURL, &baseURL)
	AddDurationFlag(cmd, Flags, FlagTimeout, &timeout)
	AddUintFlag(cmd, Flags, FlagMaxRetries, &retries)
	AddStringFlag(cmd, Flags, FlagDirectory, &directory)
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddDurationFlag registers a time.Duration flag on cmd from the given FlagSet.
// The bound viper key keeps its string form, so config.toml and the flag
// share the same "60s" syntax.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *time.Duration) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultDuration(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().DurationVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultDuration returns the default duration value for a viper key from NewDefaultConfig.
func defaultDuration(viperKey string) time.Duration {
	v := viper.New()
	setViperDefaults(v)
	return v.GetDuration(viperKey)
}
