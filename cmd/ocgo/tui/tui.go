// Package tuicmder provides the tui command for driving a terminal UI that
// is connected to the same opencode server.
package tuicmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/config"
)

const tuiLongDesc string = `Drive the opencode terminal UI attached to the server.

Examples:
  ocgo tui append "review the diff in client.go"
  ocgo tui open-help`

const tuiShortDesc string = "Drive the opencode terminal UI"

func NewTuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: tuiShortDesc,
		Long:  tuiLongDesc,
	}

	cmd.AddCommand(newAppendCmd())
	cmd.AddCommand(newHelpCmd())

	return cmd
}

func newAppendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append <text...>",
		Short: "Append text to the prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.Client.Tui().AppendPrompt(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Appended to prompt\n", cliui.SuccessMark)
			return nil
		},
	}
	config.AddClientFlags(cmd)

	return cmd
}

func newHelpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open-help",
		Short: "Open the help dialog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.Client.Tui().OpenHelp(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Opened help\n", cliui.SuccessMark)
			return nil
		},
	}
	config.AddClientFlags(cmd)

	return cmd
}
