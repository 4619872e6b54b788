// Package ocgocmder assembles the ocgo command tree.
package ocgocmder

import (
	"github.com/spf13/cobra"

	appcmder "github.com/papercomputeco/opencode-go/cmd/ocgo/app"
	chatcmder "github.com/papercomputeco/opencode-go/cmd/ocgo/chat"
	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	configcmder "github.com/papercomputeco/opencode-go/cmd/ocgo/config"
	eventscmder "github.com/papercomputeco/opencode-go/cmd/ocgo/events"
	filecmder "github.com/papercomputeco/opencode-go/cmd/ocgo/file"
	findcmder "github.com/papercomputeco/opencode-go/cmd/ocgo/find"
	initcmder "github.com/papercomputeco/opencode-go/cmd/ocgo/init"
	servecmder "github.com/papercomputeco/opencode-go/cmd/ocgo/serve"
	sessioncmder "github.com/papercomputeco/opencode-go/cmd/ocgo/session"
	tuicmder "github.com/papercomputeco/opencode-go/cmd/ocgo/tui"
	versioncmder "github.com/papercomputeco/opencode-go/cmd/version"
)

const ocgoLongDesc string = `ocgo is a command line client for the opencode server API.

Point it at a running opencode server with --base-url, the client.base_url
config key, or the OPENCODE_BASE_URL environment variable. "ocgo serve"
runs an in-memory mock server for trying things out.

Get started:
  ocgo init                  Create a local .ocgo/ config directory
  ocgo serve                 Run a mock server on localhost:54321
  ocgo chat "hello"          Talk to the current session
  ocgo events                Follow the server event feed`

const ocgoShortDesc string = "ocgo - opencode API client"

func NewOcgoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ocgo",
		Short:        ocgoShortDesc,
		Long:         ocgoLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmdutil.AddPersistentFlags(cmd)

	// Add subcommands
	cmd.AddCommand(appcmder.NewAppCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(eventscmder.NewEventsCmd())
	cmd.AddCommand(filecmder.NewFileCmd())
	cmd.AddCommand(findcmder.NewFindCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(sessioncmder.NewSessionCmd())
	cmd.AddCommand(tuicmder.NewTuiCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
