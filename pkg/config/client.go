package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// ClientOptions turns the client section of cfg into options for
// opencode.NewClient. A nil logger leaves the client's nop logger in place.
func ClientOptions(cfg *Config, logger *zap.Logger) ([]opencode.Option, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	var opts []opencode.Option

	if cfg.Client.BaseURL != "" {
		opts = append(opts, opencode.WithBaseURL(cfg.Client.BaseURL))
	}

	if cfg.Client.Timeout != "" {
		timeout, err := time.ParseDuration(cfg.Client.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parsing client.timeout: %w", err)
		}
		opts = append(opts, opencode.WithTimeout(timeout))
	}

	if cfg.Client.MaxRetries != nil {
		opts = append(opts, opencode.WithMaxRetries(int(*cfg.Client.MaxRetries)))
	}

	if cfg.Client.Directory != "" {
		opts = append(opts, opencode.WithQuery("directory", cfg.Client.Directory))
	}

	if logger != nil {
		opts = append(opts, opencode.WithLogger(logger))
	}

	return opts, nil
}

// NewClient builds an opencode.Client from cfg.
func NewClient(cfg *Config, logger *zap.Logger) (*opencode.Client, error) {
	opts, err := ClientOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	client, err := opencode.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating opencode client: %w", err)
	}
	return client, nil
}
