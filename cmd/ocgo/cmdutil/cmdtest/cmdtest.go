// Package cmdtest runs ocgo commands against an in-process mock server.
package cmdtest

import (
	"bytes"
	"context"
	"net"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	"github.com/papercomputeco/opencode-go/pkg/mockserver"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// Harness is a running mock server plus a private config directory.
type Harness struct {
	Server    *mockserver.Server
	URL       string
	ConfigDir string
}

// Start runs a mock server on a loopback port.
func Start(config mockserver.Config) (*Harness, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	configDir, err := os.MkdirTemp("", "ocgo-cmdtest-*")
	if err != nil {
		listener.Close()
		return nil, err
	}

	srv := mockserver.NewServer(config, zap.NewNop())
	go func() { _ = srv.RunWithListener(listener) }()

	return &Harness{
		Server:    srv,
		URL:       "http://" + listener.Addr().String(),
		ConfigDir: configDir,
	}, nil
}

// Execute runs cmd with args under an ocgo root, pointed at the mock server,
// and returns everything it wrote to stdout and stderr.
func (h *Harness) Execute(cmd *cobra.Command, args ...string) (string, error) {
	return h.ExecuteContext(context.Background(), cmd, args...)
}

// ExecuteContext is Execute with a context, for commands that run until
// cancelled.
func (h *Harness) ExecuteContext(ctx context.Context, cmd *cobra.Command, args ...string) (string, error) {
	root := &cobra.Command{Use: "ocgo", SilenceUsage: true, SilenceErrors: true}
	cmdutil.AddPersistentFlags(root)
	root.AddCommand(cmd)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)

	full := append([]string{cmd.Name()}, args...)
	full = append(full, "--base-url", h.URL, "--max-retries", "0", "--config-dir", h.ConfigDir)
	root.SetArgs(full)

	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// Client returns an opencode client for seeding the mock server directly.
func (h *Harness) Client() (*opencode.Client, error) {
	return opencode.NewClient(opencode.WithBaseURL(h.URL), opencode.WithMaxRetries(0))
}

// Close stops the server and removes the config directory.
func (h *Harness) Close() error {
	err := h.Server.Close()
	_ = os.RemoveAll(h.ConfigDir)
	return err
}
