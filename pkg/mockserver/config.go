// Package mockserver is an in-memory opencode server. It answers every
// endpoint the SDK calls and publishes the matching events on /event, which
// makes it useful for tests and for trying the CLI without a real agent.
package mockserver

import "time"

// DefaultHeartbeat is the keep-alive interval used when Config.Heartbeat is
// zero.
const DefaultHeartbeat = 10 * time.Second

// Config is the mock server configuration.
type Config struct {
	// ListenAddr is the address Run listens on (e.g., "localhost:54321")
	ListenAddr string

	// Heartbeat is the interval between keep-alive comments on /event
	Heartbeat time.Duration

	// Root is reported as the project root and working directory
	Root string

	// Git is reported by /app as whether Root is a git work tree
	Git bool

	// Hostname is reported by /app. Defaults to the machine hostname.
	Hostname string

	// Files seeds the project served by /file and /find, keyed by
	// slash-separated path relative to Root
	Files map[string]string
}

func (c Config) withDefaults() Config {
	if c.Heartbeat <= 0 {
		c.Heartbeat = DefaultHeartbeat
	}
	if c.Root == "" {
		c.Root = "/project"
	}
	files := make(map[string]string, len(c.Files))
	for name, content := range c.Files {
		files[cleanPath(name)] = content
	}
	c.Files = files
	return c
}
