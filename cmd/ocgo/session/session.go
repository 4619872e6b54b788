// Package sessioncmder provides the session command for managing opencode
// sessions and the locally selected current session.
package sessioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/config"
	"github.com/papercomputeco/opencode-go/pkg/dotdir"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

const sessionLongDesc string = `Manage opencode sessions.

Commands that act on one session take the session id as an argument. When
it is omitted they use the session selected with "ocgo session use", which
is stored in the .ocgo/ directory and also picked up by "ocgo chat".

Examples:
  ocgo session list
  ocgo session create --use
  ocgo session use ses_01h...
  ocgo session messages
  ocgo session share
  ocgo session revert msg_01h...
  ocgo session delete ses_01h...`

const sessionShortDesc string = "Manage opencode sessions"

func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   sessionShortDesc,
		Long:    sessionLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newUseCmd())
	cmd.AddCommand(newCurrentCmd())
	cmd.AddCommand(newMessagesCmd())
	cmd.AddCommand(newAbortCmd())
	cmd.AddCommand(newShareCmd())
	cmd.AddCommand(newUnshareCmd())
	cmd.AddCommand(newRevertCmd())
	cmd.AddCommand(newUnrevertCmd())
	cmd.AddCommand(newSummarizeCmd())
	cmd.AddCommand(newInitCmd())

	return cmd
}

// clientCmd builds a subcommand that runs with a resolved Env.
func clientCmd(use, short string, args cobra.PositionalArgs, run func(*cobra.Command, *cmdutil.Env, []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			return run(cmd, env, args)
		},
	}
	config.AddClientFlags(cmd)
	return cmd
}

func newListCmd() *cobra.Command {
	return clientCmd("list", "List sessions", cobra.NoArgs, func(cmd *cobra.Command, env *cmdutil.Env, _ []string) error {
		sessions, err := env.Client.Session().List(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, cliui.DimStyle.Render("No sessions."))
			return nil
		}

		current, _ := dotdir.NewManager().LoadCurrentSession(env.ConfigDir)
		for _, session := range sessions {
			marker := " "
			if current != nil && current.ID == session.ID {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s  %s  %s%s\n",
				marker,
				cliui.IDStyle.Render(session.ID),
				cliui.DimStyle.Render(cliui.FormatMillis(session.Time.Updated)),
				cliui.ValueStyle.Render(session.Title),
				sessionFlags(session),
			)
		}
		return nil
	})
}

// sessionFlags describes the share and revert state of a session.
func sessionFlags(session opencode.Session) string {
	var flags string
	if session.Share != nil {
		flags += " " + cliui.KeyStyle.Render("shared")
	}
	if session.Revert != nil {
		flags += " " + cliui.KeyStyle.Render("reverted")
	}
	return flags
}

func writeSession(cmd *cobra.Command, session opencode.Session) {
	out := cmd.OutOrStdout()
	cliui.KeyValue(out, "id", session.ID)
	cliui.KeyValue(out, "title", session.Title)
	cliui.KeyValue(out, "created", cliui.FormatMillis(session.Time.Created))
	cliui.KeyValue(out, "updated", cliui.FormatMillis(session.Time.Updated))
	if session.Share != nil {
		cliui.KeyValue(out, "share", session.Share.URL)
	}
	if session.Revert != nil {
		cliui.KeyValue(out, "reverted", session.Revert.MessageID)
	}
}

func newCreateCmd() *cobra.Command {
	var use bool

	cmd := clientCmd("create", "Create a session", cobra.NoArgs, func(cmd *cobra.Command, env *cmdutil.Env, _ []string) error {
		session, err := env.Client.Session().Create(cmd.Context())
		if err != nil {
			return err
		}

		writeSession(cmd, session)
		if use {
			return selectSession(cmd, env, session)
		}
		return nil
	})
	cmd.Flags().BoolVar(&use, "use", false, "Select the new session as the current session")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	return clientCmd("delete [session-id]", "Delete a session and all of its data", cobra.MaximumNArgs(1), func(cmd *cobra.Command, env *cmdutil.Env, args []string) error {
		id, err := env.SessionID(cmd, args)
		if err != nil {
			return err
		}

		if _, err := env.Client.Session().Delete(cmd.Context(), id); err != nil {
			return err
		}

		current, err := dotdir.NewManager().LoadCurrentSession(env.ConfigDir)
		if err == nil && current != nil && current.ID == id {
			if err := dotdir.NewManager().ClearCurrentSession(env.ConfigDir); err != nil {
				return fmt.Errorf("clearing current session: %w", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", cliui.SuccessMark, cliui.IDStyle.Render(id))
		return nil
	})
}

func newUseCmd() *cobra.Command {
	var clearCurrent bool

	cmd := clientCmd("use [session-id]", "Select the current session", cobra.MaximumNArgs(1), func(cmd *cobra.Command, env *cmdutil.Env, args []string) error {
		if clearCurrent {
			if err := dotdir.NewManager().ClearCurrentSession(env.ConfigDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Cleared current session\n", cliui.SuccessMark)
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("session id required (or --clear)")
		}

		sessions, err := env.Client.Session().List(cmd.Context())
		if err != nil {
			return err
		}
		for _, session := range sessions {
			if session.ID == args[0] {
				return selectSession(cmd, env, session)
			}
		}
		return fmt.Errorf("session not found: %s", args[0])
	})
	cmd.Flags().BoolVar(&clearCurrent, "clear", false, "Forget the current session")

	return cmd
}

func selectSession(cmd *cobra.Command, env *cmdutil.Env, session opencode.Session) error {
	state := &dotdir.CurrentSession{ID: session.ID, Title: session.Title}
	if err := dotdir.NewManager().SaveCurrentSession(state, env.ConfigDir); err != nil {
		return fmt.Errorf("saving current session: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Using session %s\n", cliui.SuccessMark, cliui.IDStyle.Render(session.ID))
	return nil
}

func newCurrentCmd() *cobra.Command {
	return clientCmd("current", "Print the current session", cobra.NoArgs, func(cmd *cobra.Command, env *cmdutil.Env, _ []string) error {
		current, err := dotdir.NewManager().LoadCurrentSession(env.ConfigDir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if current == nil {
			fmt.Fprintln(out, cliui.DimStyle.Render("No session selected."))
			return nil
		}
		cliui.KeyValue(out, "id", current.ID)
		cliui.KeyValue(out, "title", current.Title)
		if current.ProviderID != "" {
			cliui.KeyValue(out, "model", current.ProviderID+"/"+current.ModelID)
		}
		return nil
	})
}
