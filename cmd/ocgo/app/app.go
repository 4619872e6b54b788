// Package appcmder provides the app command for inspecting the opencode
// instance a client is connected to.
package appcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/config"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

const appLongDesc string = `Inspect the opencode instance.

Without a subcommand, prints the hostname, project paths and initialization
time reported by the server.

Examples:
  ocgo app
  ocgo app modes
  ocgo app providers
  ocgo app config
  ocgo app log --level warn "disk almost full"`

const appShortDesc string = "Inspect the opencode instance"

func NewAppCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: appShortDesc,
		Long:  appLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, runInfo)
		},
	}
	config.AddClientFlags(cmd)

	cmd.AddCommand(newLeaf("init", "Initialize the app", runInit))
	cmd.AddCommand(newLeaf("modes", "List agent modes", runModes))
	cmd.AddCommand(newLeaf("providers", "List providers and their models", runProviders))
	cmd.AddCommand(newLeaf("config", "Print the server configuration as JSON", runServerConfig))
	cmd.AddCommand(newLogCmd())

	return cmd
}

type runFunc func(cmd *cobra.Command, env *cmdutil.Env) error

func newLeaf(use, short string, run runFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, run)
		},
	}
	config.AddClientFlags(cmd)
	return cmd
}

func withEnv(cmd *cobra.Command, run runFunc) error {
	env, err := cmdutil.Setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	return run(cmd, env)
}

func runInfo(cmd *cobra.Command, env *cmdutil.Env) error {
	app, err := env.Client.App().Get(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cliui.KeyValue(out, "hostname", app.Hostname)
	cliui.KeyValue(out, "root", app.Path.Root)
	cliui.KeyValue(out, "cwd", app.Path.Cwd)
	cliui.KeyValue(out, "config", app.Path.Config)
	cliui.KeyValue(out, "data", app.Path.Data)
	cliui.KeyValue(out, "git", app.Git)
	initialized := "no"
	if app.Time.Initialized != nil {
		initialized = cliui.FormatMillis(*app.Time.Initialized)
	}
	cliui.KeyValue(out, "initialized", initialized)
	return nil
}

func runInit(cmd *cobra.Command, env *cmdutil.Env) error {
	return cliui.Step(cmd.OutOrStdout(), "Initializing app", func() error {
		_, err := env.Client.App().Init(cmd.Context())
		return err
	})
}

func runModes(cmd *cobra.Command, env *cmdutil.Env) error {
	modes, err := env.Client.App().Modes(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, mode := range modes {
		model := ""
		if mode.Model != nil {
			model = mode.Model.ProviderID + "/" + mode.Model.ModelID
		}
		fmt.Fprintf(out, "%s %s %s\n",
			cliui.HeaderStyle.Render(mode.Name),
			cliui.DimStyle.Render(disabledTools(mode.Tools)),
			cliui.ValueStyle.Render(model),
		)
	}
	return nil
}

// disabledTools lists the tools a mode switches off, sorted.
func disabledTools(tools map[string]bool) string {
	var off []string
	for name, enabled := range tools {
		if !enabled {
			off = append(off, name)
		}
	}
	if len(off) == 0 {
		return "all tools"
	}
	sort.Strings(off)
	return "without " + strings.Join(off, ", ")
}

func runProviders(cmd *cobra.Command, env *cmdutil.Env) error {
	resp, err := env.Client.App().Providers(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, provider := range resp.Providers {
		fmt.Fprintf(out, "%s %s\n", cliui.HeaderStyle.Render(provider.ID), cliui.DimStyle.Render(provider.Name))

		ids := make([]string, 0, len(provider.Models))
		for id := range provider.Models {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			marker := " "
			if resp.Default[provider.ID] == id {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %s %s\n", marker, cliui.IDStyle.Render(id), cliui.DimStyle.Render(provider.Models[id].Name))
		}
	}
	return nil
}

func runServerConfig(cmd *cobra.Command, env *cmdutil.Env) error {
	cfg, err := env.Client.Config().Get(cmd.Context())
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), cfg)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type logCommander struct {
	level   string
	service string
}

func newLogCmd() *cobra.Command {
	cmder := &logCommander{}

	cmd := &cobra.Command{
		Use:   "log <message>",
		Short: "Write an entry to the server log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(cmd *cobra.Command, env *cmdutil.Env) error {
				_, err := env.Client.App().Log(cmd.Context(), opencode.AppLogParams{
					Level:   opencode.LogLevel(cmder.level),
					Message: strings.Join(args, " "),
					Service: cmder.service,
				})
				return err
			})
		},
	}
	config.AddClientFlags(cmd)

	cmd.Flags().StringVar(&cmder.level, "level", string(opencode.LogLevelInfo), "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&cmder.service, "service", "ocgo", "Service name recorded with the entry")

	return cmd
}
