// Package cmdutil holds the setup shared by ocgo commands that talk to an
// opencode server.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/config"
	"github.com/papercomputeco/opencode-go/pkg/dotdir"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// FlagSession is the --session flag shared by commands that act on a session.
const FlagSession = "session"

// Env is the resolved configuration, logger and client for one command run.
type Env struct {
	Config    *config.Config
	Logger    *zap.Logger
	Client    *opencode.Client
	ConfigDir string

	done func()
}

// Setup resolves configuration for cmd with the client flags plus any extra
// registry keys bound, then builds the logger and client. Logs go to the
// command's stderr. Call Close when the command finishes.
func Setup(cmd *cobra.Command, extraKeys ...string) (*Env, error) {
	keys := append(append([]string{}, config.ClientFlags...), config.FlagLogFile)
	keys = append(keys, extraKeys...)

	cfg, err := config.ResolveCommand(cmd, keys)
	if err != nil {
		return nil, err
	}

	log, done, err := config.NewLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	client, err := config.NewClient(cfg, log)
	if err != nil {
		done()
		return nil, err
	}

	configDir, _ := cmd.Flags().GetString(config.FlagConfigDir)
	return &Env{
		Config:    cfg,
		Logger:    log,
		Client:    client,
		ConfigDir: configDir,
		done:      done,
	}, nil
}

// Close flushes the logger.
func (e *Env) Close() {
	if e.done != nil {
		e.done()
	}
}

// SessionID returns the first positional argument when there is one, then
// the --session flag value, then the session selected with "ocgo session
// use".
func (e *Env) SessionID(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if id, _ := cmd.Flags().GetString(FlagSession); id != "" {
		return id, nil
	}

	current, err := dotdir.NewManager().LoadCurrentSession(e.ConfigDir)
	if err != nil {
		return "", fmt.Errorf("loading current session: %w", err)
	}
	if current == nil {
		return "", errors.New(`no session selected: pass a session id or run "ocgo session use <id>"`)
	}
	return current.ID, nil
}

// ResolveModel returns the provider and model to use. model may be given as
// "provider/model". Missing parts are filled from the server's default model,
// preferring the given provider.
func (e *Env) ResolveModel(ctx context.Context, provider, model string) (string, string, error) {
	if p, m, ok := strings.Cut(model, "/"); ok && provider == "" {
		provider, model = p, m
	}
	if provider != "" && model != "" {
		return provider, model, nil
	}

	resp, err := e.Client.App().Providers(ctx)
	if err != nil {
		return "", "", fmt.Errorf("listing providers: %w", err)
	}

	if provider != "" {
		if def, ok := resp.Default[provider]; ok {
			return provider, def, nil
		}
		return "", "", fmt.Errorf("provider %q has no default model; pass --model", provider)
	}

	for _, p := range resp.Providers {
		if def, ok := resp.Default[p.ID]; ok {
			return p.ID, def, nil
		}
	}
	return "", "", errors.New("server reports no default model; pass --provider and --model")
}

// AddModelFlags registers --provider and --model on cmd.
func AddModelFlags(cmd *cobra.Command, provider, model *string) {
	cmd.Flags().StringVarP(provider, "provider", "p", "", "Provider id (default: the server default)")
	cmd.Flags().StringVarP(model, "model", "m", "", `Model id, or "provider/model" (default: the server default)`)
}

// AddSessionFlag registers --session on cmd.
func AddSessionFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(FlagSession, "s", "", `Session id (default: the session chosen with "ocgo session use")`)
}

// AddPersistentFlags registers the flags every ocgo command inherits from
// the root: --debug and --config-dir.
func AddPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().BoolP(config.FlagDebug, "d", false, "Enable debug logging")
	root.PersistentFlags().String(config.FlagConfigDir, "", "Override path to .ocgo/ config directory")
}
