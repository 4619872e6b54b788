// Package chatcmder provides the chat command for talking to an opencode
// session from the terminal.
package chatcmder

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/config"
	"github.com/papercomputeco/opencode-go/pkg/dotdir"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
	"github.com/papercomputeco/opencode-go/pkg/utils"
)

var userPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")

type chatCommander struct {
	provider   string
	model      string
	system     string
	mode       string
	newSession bool

	env       *cmdutil.Env
	sessionID string
	out       io.Writer
}

const chatLongDesc string = `Chat with an opencode session.

With a message argument the message is sent once and the reply printed.
Without one, lines are read from stdin until EOF or /exit.

The conversation continues the current session (see "ocgo session use").
When there is none, or with --new, a session is created and becomes the
current session. The provider and model default to the ones the session
was last used with, then to the server default.

Examples:
  ocgo chat "explain the retry loop in client.go"
  ocgo chat --new -m anthropic/claude-sonnet-4
  echo "summarize the README" | ocgo chat
  ocgo chat --session ses_01h... --mode plan`

const chatShortDesc string = "Chat with an opencode session"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			cmder.env = env
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd, args)
		},
	}

	config.AddClientFlags(cmd)
	cmdutil.AddModelFlags(cmd, &cmder.provider, &cmder.model)
	cmdutil.AddSessionFlag(cmd)
	cmd.Flags().BoolVar(&cmder.newSession, "new", false, "Start a new session")
	cmd.Flags().StringVar(&cmder.system, "system", "", "System prompt for this conversation")
	cmd.Flags().StringVar(&cmder.mode, "mode", "", `Agent mode, such as "build" or "plan"`)

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command, args []string) error {
	if err := c.resolveSession(cmd); err != nil {
		return err
	}

	if len(args) > 0 {
		return c.send(cmd, strings.Join(args, " "))
	}

	in := cmd.InOrStdin()
	interactive := cliui.IsTerminal(c.out)
	if interactive {
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if interactive {
			fmt.Fprint(c.out, userPrompt)
		}
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if err := c.send(cmd, input); err != nil {
			if !interactive {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s %v\n", cliui.FailMark, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// resolveSession picks the session to talk to and the model to use, and
// records both as the current session.
func (c *chatCommander) resolveSession(cmd *cobra.Command) error {
	ctx := cmd.Context()
	manager := dotdir.NewManager()

	current, err := manager.LoadCurrentSession(c.env.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading current session: %w", err)
	}

	flagSession, _ := cmd.Flags().GetString(cmdutil.FlagSession)
	state := &dotdir.CurrentSession{}

	switch {
	case c.newSession:
		current = nil
	case flagSession != "":
		if current == nil || current.ID != flagSession {
			current = &dotdir.CurrentSession{ID: flagSession}
		}
	}

	if current != nil {
		state = current
	} else {
		session, err := c.env.Client.Session().Create(ctx)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		state.ID = session.ID
		state.Title = session.Title
		fmt.Fprintf(c.out, "%s New session %s\n", cliui.SuccessMark, cliui.IDStyle.Render(session.ID))
	}

	provider, model := c.provider, c.model
	if provider == "" && model == "" {
		provider, model = state.ProviderID, state.ModelID
	}
	provider, model, err = c.env.ResolveModel(ctx, provider, model)
	if err != nil {
		return err
	}

	c.provider, c.model = provider, model
	c.sessionID = state.ID
	state.ProviderID, state.ModelID = provider, model

	c.env.Logger.Debug("chat session resolved",
		zap.String("session", state.ID),
		zap.String("provider", provider),
		zap.String("model", model),
	)
	return manager.SaveCurrentSession(state, c.env.ConfigDir)
}

// send posts one message and prints the assistant reply with its parts.
func (c *chatCommander) send(cmd *cobra.Command, text string) error {
	ctx := cmd.Context()
	session := c.env.Client.Session()

	reply, err := session.Chat(ctx, c.sessionID, opencode.ChatParams{
		ProviderID: c.provider,
		ModelID:    c.model,
		Mode:       c.mode,
		System:     c.system,
		Parts:      []opencode.PartInput{opencode.TextInput(text)},
	})
	if err != nil {
		return err
	}

	c.env.Logger.Debug("reply received",
		zap.String("message", reply.ID),
		zap.String("prompt", utils.Truncate(text, 40)),
	)

	messages, err := session.Messages(ctx, c.sessionID)
	if err != nil {
		return fmt.Errorf("loading reply: %w", err)
	}
	for _, message := range messages {
		if message.Info.ID() == reply.ID {
			if err := cmdutil.WriteMessage(c.out, message); err != nil {
				return err
			}
			break
		}
	}

	if reply.Error != nil {
		return reply.Error
	}
	return nil
}
