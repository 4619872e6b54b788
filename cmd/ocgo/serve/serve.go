// Package servecmder provides the serve command, which runs the in-memory
// mock opencode server.
package servecmder

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/config"
	"github.com/papercomputeco/opencode-go/pkg/git"
	"github.com/papercomputeco/opencode-go/pkg/mockserver"
)

const (
	// maxLoadedFile and maxLoadedFiles bound what --load reads into memory.
	maxLoadedFile  = 256 * 1024
	maxLoadedFiles = 2000
)

type serveCommander struct {
	root string
	load bool

	logger *zap.Logger
}

const serveLongDesc string = `Run an in-memory mock opencode server.

The mock server answers every endpoint the SDK uses. Chat replies echo the
prompt back, sessions live in memory, and every change is published on the
/event feed. Point other ocgo commands at it with --base-url or
client.base_url to try them without a real agent.

With --load the files under --root are served by the file and find
endpoints. Hidden directories, node_modules and files over 256KiB are
skipped.

Examples:
  ocgo serve
  ocgo serve --listen 127.0.0.1:4096 --heartbeat 2s
  ocgo serve --root . --load`

const serveShortDesc string = "Run a mock opencode server"

// serveFlags are the registry keys bound by the serve command.
var serveFlags = []string{config.FlagListen, config.FlagHeartbeat, config.FlagLogFile}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ResolveCommand(cmd, serveFlags)
			if err != nil {
				return err
			}

			log, done, err := config.NewLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer done()
			cmder.logger = log

			return cmder.run(cmd, cfg)
		},
	}

	var listen, logFile string
	var heartbeat time.Duration
	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)
	config.AddDurationFlag(cmd, config.Flags, config.FlagHeartbeat, &heartbeat)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &logFile)

	cmd.Flags().StringVar(&cmder.root, "root", "", "Project root reported by the server (default: the current directory)")
	cmd.Flags().BoolVar(&cmder.load, "load", false, "Serve the files under --root")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command, cfg *config.Config) error {
	heartbeat, err := time.ParseDuration(cfg.Server.Heartbeat)
	if err != nil {
		return fmt.Errorf("parsing server.heartbeat: %w", err)
	}

	root := c.root
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return err
	}

	_, inRepo := git.Toplevel(cmd.Context(), root)
	serverConfig := mockserver.Config{
		ListenAddr: cfg.Server.Listen,
		Heartbeat:  heartbeat,
		Root:       root,
		Git:        inRepo,
	}
	if c.load {
		serverConfig.Files, err = loadFiles(root)
		if err != nil {
			return err
		}
		c.logger.Info("loaded project files",
			zap.String("root", root),
			zap.Int("files", len(serverConfig.Files)),
		)
	}

	listener, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Listen, err)
	}

	srv := mockserver.NewServer(serverConfig, c.logger)
	defer func() {
		if err := srv.Close(); err != nil {
			c.logger.Error("closing mock server", zap.Error(err))
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		if err := srv.RunWithListener(listener); err != nil {
			errChan <- fmt.Errorf("mock server error: %w", err)
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "%s Mock server listening on %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render("http://"+listener.Addr().String()),
	)
	c.logger.Info("starting mock server",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("heartbeat", heartbeat),
		zap.String("root", root),
		zap.Bool("git", inRepo),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down mock server")
		return nil
	}
}

// loadFiles reads the text and binary files under root into a map keyed by
// slash-separated relative path.
func loadFiles(root string) (map[string]string, error) {
	files := map[string]string{}
	errLimit := errors.New("file limit reached")

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxLoadedFile {
			return nil
		}
		if len(files) >= maxLoadedFiles {
			return errLimit
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, fmt.Errorf("loading files from %s: %w", root, err)
	}
	return files, nil
}
