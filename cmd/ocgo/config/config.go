// Package configcmder provides the config command for managing persistent
// ocgo configuration stored in the .ocgo/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/config"
)

const configLongDesc string = `Manage persistent ocgo configuration.

Configuration is stored as config.toml in the .ocgo/ directory and provides
default values for command flags. Environment variables (OCGO_CLIENT_BASE_URL,
OCGO_EVENTS_FILTER, ...) override the file, and CLI flags override both.

Keys use dotted notation matching the TOML section structure:
  client.base_url, client.timeout, client.max_retries, client.directory,
  log.debug, log.file,
  events.publisher, events.workers, events.queue_size, events.filter,
  kafka.brokers, kafka.topic,
  server.listen, server.heartbeat

Use subcommands to get, set, or list configuration values:
  ocgo config set <key> <value>    Set a configuration value
  ocgo config get <key>            Get a configuration value
  ocgo config list                 List all configuration values

Examples:
  ocgo config set client.base_url http://localhost:4096
  ocgo config set events.publisher kafka
  ocgo config get client.timeout
  ocgo config list`

const configShortDesc string = "Manage persistent ocgo configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// printTarget writes which config file a subcommand is operating on.
func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}
