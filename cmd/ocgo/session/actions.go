package sessioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// sessionCmd builds a subcommand acting on one session, given as the
// optional positional argument or resolved through Env.SessionID.
func sessionCmd(use, short string, run func(*cobra.Command, *cmdutil.Env, string) error) *cobra.Command {
	cmd := clientCmd(use+" [session-id]", short, cobra.MaximumNArgs(1), func(cmd *cobra.Command, env *cmdutil.Env, args []string) error {
		id, err := env.SessionID(cmd, args)
		if err != nil {
			return err
		}
		return run(cmd, env, id)
	})
	cmdutil.AddSessionFlag(cmd)
	return cmd
}

func newMessagesCmd() *cobra.Command {
	return sessionCmd("messages", "Print the messages of a session", func(cmd *cobra.Command, env *cmdutil.Env, id string) error {
		messages, err := env.Client.Session().Messages(cmd.Context(), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(messages) == 0 {
			fmt.Fprintln(out, cliui.DimStyle.Render("No messages."))
			return nil
		}
		for _, message := range messages {
			if err := cmdutil.WriteMessage(out, message); err != nil {
				return err
			}
		}
		return nil
	})
}

func newAbortCmd() *cobra.Command {
	return sessionCmd("abort", "Stop the generation in progress", func(cmd *cobra.Command, env *cmdutil.Env, id string) error {
		aborted, err := env.Client.Session().Abort(cmd.Context(), id)
		if err != nil {
			return err
		}

		if !aborted {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Nothing to abort in %s\n", cliui.FailMark, cliui.IDStyle.Render(id))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Aborted %s\n", cliui.SuccessMark, cliui.IDStyle.Render(id))
		return nil
	})
}

func newShareCmd() *cobra.Command {
	return sessionCmd("share", "Share a session", func(cmd *cobra.Command, env *cmdutil.Env, id string) error {
		session, err := env.Client.Session().Share(cmd.Context(), id)
		if err != nil {
			return err
		}

		if session.Share == nil {
			return fmt.Errorf("server did not return a share url for %s", id)
		}
		fmt.Fprintln(cmd.OutOrStdout(), session.Share.URL)
		return nil
	})
}

func newUnshareCmd() *cobra.Command {
	return sessionCmd("unshare", "Stop sharing a session", func(cmd *cobra.Command, env *cmdutil.Env, id string) error {
		if _, err := env.Client.Session().Unshare(cmd.Context(), id); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Unshared %s\n", cliui.SuccessMark, cliui.IDStyle.Render(id))
		return nil
	})
}

func newRevertCmd() *cobra.Command {
	var partID string

	cmd := clientCmd("revert <message-id> [session-id]", "Undo a message and the changes it made", cobra.RangeArgs(1, 2), func(cmd *cobra.Command, env *cmdutil.Env, args []string) error {
		id, err := env.SessionID(cmd, args[1:])
		if err != nil {
			return err
		}

		session, err := env.Client.Session().Revert(cmd.Context(), id, opencode.RevertParams{
			MessageID: args[0],
			PartID:    partID,
		})
		if err != nil {
			return err
		}

		writeSession(cmd, session)
		return nil
	})
	cmd.Flags().StringVar(&partID, "part", "", "Revert from this part of the message onwards")
	cmdutil.AddSessionFlag(cmd)

	return cmd
}

func newUnrevertCmd() *cobra.Command {
	return sessionCmd("unrevert", "Restore all reverted messages", func(cmd *cobra.Command, env *cmdutil.Env, id string) error {
		session, err := env.Client.Session().Unrevert(cmd.Context(), id)
		if err != nil {
			return err
		}

		writeSession(cmd, session)
		return nil
	})
}

func newSummarizeCmd() *cobra.Command {
	var provider, model string

	cmd := sessionCmd("summarize", "Compact the session history", func(cmd *cobra.Command, env *cmdutil.Env, id string) error {
		providerID, modelID, err := env.ResolveModel(cmd.Context(), provider, model)
		if err != nil {
			return err
		}

		return cliui.Step(cmd.OutOrStdout(), "Summarizing "+id, func() error {
			_, err := env.Client.Session().Summarize(cmd.Context(), id, opencode.SummarizeParams{
				ProviderID: providerID,
				ModelID:    modelID,
			})
			return err
		})
	})
	cmdutil.AddModelFlags(cmd, &provider, &model)

	return cmd
}

func newInitCmd() *cobra.Command {
	var provider, model string

	cmd := clientCmd("init <message-id> [session-id]", "Analyze the project and write AGENTS.md", cobra.RangeArgs(1, 2), func(cmd *cobra.Command, env *cmdutil.Env, args []string) error {
		id, err := env.SessionID(cmd, args[1:])
		if err != nil {
			return err
		}

		providerID, modelID, err := env.ResolveModel(cmd.Context(), provider, model)
		if err != nil {
			return err
		}

		return cliui.Step(cmd.OutOrStdout(), "Initializing "+id, func() error {
			_, err := env.Client.Session().Init(cmd.Context(), id, opencode.InitParams{
				MessageID:  args[0],
				ProviderID: providerID,
				ModelID:    modelID,
			})
			return err
		})
	})
	cmdutil.AddModelFlags(cmd, &provider, &model)
	cmdutil.AddSessionFlag(cmd)

	return cmd
}
