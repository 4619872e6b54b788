// Package initcmder provides the init command for initializing a local .ocgo
// directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/config"
)

const (
	dirName    = ".ocgo"
	configFile = "config.toml"

	// fetchTimeout bounds the download of a remote preset.
	fetchTimeout = 30 * time.Second
	maxPresetLen = 1 << 20
)

const initLongDesc string = `Initialize a new .ocgo/ directory in the current working directory.

Creates a local .ocgo/ directory that takes precedence over the default
~/.ocgo/ directory for configuration and the current session, and writes a
config.toml there.

--preset selects the initial configuration:
  local    talk to an opencode server on this machine (default)
  kafka    like local, and relay "ocgo events" to a local kafka broker
  <url>    download a config.toml from an http(s) URL

An existing config.toml is kept unless --preset is given.

Examples:
  ocgo init
  ocgo init --preset kafka
  ocgo init --preset https://example.com/team/ocgo.toml`

const initShortDesc string = "Initialize a local .ocgo/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Config preset name (local, kafka) or http(s) URL")

	return cmd
}

func (c *initCommander) run(ctx context.Context, out io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .ocgo directory: %w", err)
	}

	path := filepath.Join(dir, configFile)
	_, statErr := os.Stat(path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", statErr)
	}

	if exists && c.preset == "" {
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
		return nil
	}

	cfg, err := c.resolvePreset(ctx)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Initialized .ocgo directory: %s\n", cliui.SuccessMark, dir)
	return nil
}

func (c *initCommander) resolvePreset(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.PresetConfig("local")
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchPreset(ctx, c.preset)
	default:
		return config.PresetConfig(c.preset)
	}
}

// fetchPreset downloads and validates a config.toml.
func fetchPreset(ctx context.Context, url string) (*config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building preset request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching preset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching preset: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPresetLen))
	if err != nil {
		return nil, fmt.Errorf("reading preset: %w", err)
	}

	return config.ParseConfigTOML(data)
}
