// Package filecmder provides the file command for reading project files
// through the opencode server.
package filecmder

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/config"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

const fileLongDesc string = `Read project files through the opencode server.

Paths are relative to the project root the server is running in.

Examples:
  ocgo file list
  ocgo file list internal/
  ocgo file read README.md
  ocgo file read --raw assets/logo.png > logo.png
  ocgo file status`

const fileShortDesc string = "Read project files"

func NewFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: fileShortDesc,
		Long:  fileLongDesc,
	}

	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func newReadCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Print a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			content, err := env.Client.File().Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if content.Type == opencode.FileContentText {
				_, err := fmt.Fprint(out, content.Content)
				return err
			}

			data, err := decodeContent(content)
			if err != nil {
				return err
			}
			if raw {
				_, err := out.Write(data)
				return err
			}
			fmt.Fprintf(out, "%s %s, %d bytes (use --raw to print)\n",
				cliui.KeyStyle.Render("binary"),
				cliui.ValueStyle.Render(content.MimeType),
				len(data),
			)
			return nil
		},
	}
	config.AddClientFlags(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Write binary content as is")

	return cmd
}

// decodeContent returns the bytes of a binary file.
func decodeContent(content opencode.FileContent) ([]byte, error) {
	switch content.Encoding {
	case "", "base64":
		data, err := base64.StdEncoding.DecodeString(content.Content)
		if err != nil {
			return nil, fmt.Errorf("decoding file content: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported file encoding %q", content.Encoding)
	}
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [path]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			var path string
			if len(args) > 0 {
				path = args[0]
			}

			nodes, err := env.Client.File().List(cmd.Context(), path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, node := range nodes {
				name := node.Path
				if node.Type == opencode.FileNodeDirectory {
					name = cliui.KeyStyle.Render(strings.TrimSuffix(name, "/") + "/")
				}
				if node.Ignored {
					name = cliui.DimStyle.Render(name)
				}
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
	config.AddClientFlags(cmd)

	return cmd
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show changed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			infos, err := env.Client.File().Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, cliui.DimStyle.Render("No changes."))
				return nil
			}
			for _, info := range infos {
				fmt.Fprintf(out, "%-9s %s %s\n",
					string(info.Status),
					info.Path,
					cliui.DimStyle.Render(fmt.Sprintf("+%d -%d", info.Added, info.Removed)),
				)
			}
			return nil
		},
	}
	config.AddClientFlags(cmd)

	return cmd
}
