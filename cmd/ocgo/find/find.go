// Package findcmder provides the find command for searching the project the
// opencode server is running in.
package findcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/opencode-go/cmd/ocgo/cmdutil"
	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/config"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

const findLongDesc string = `Search the project through the opencode server.

Examples:
  ocgo find files client
  ocgo find symbols NewClient
  ocgo find text "func \w+Retry"`

const findShortDesc string = "Search project files, symbols and text"

// symbolKinds names the LSP SymbolKind values worth spelling out.
var symbolKinds = map[int64]string{
	2:  "module",
	5:  "class",
	6:  "method",
	8:  "field",
	11: "interface",
	12: "function",
	13: "variable",
	14: "constant",
	23: "struct",
}

func NewFindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: findShortDesc,
		Long:  findLongDesc,
	}

	cmd.AddCommand(newSearchCmd("files <query>", "Find files by path", runFiles))
	cmd.AddCommand(newSearchCmd("symbols <query>", "Find workspace symbols", runSymbols))
	cmd.AddCommand(newSearchCmd("text <pattern>", "Search file contents", runText))

	return cmd
}

type searchFunc func(cmd *cobra.Command, env *cmdutil.Env, query string) (int, error)

func newSearchCmd(use, short string, search searchFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			n, err := search(cmd, env, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cliui.DimStyle.Render("No matches."))
			}
			return nil
		},
	}
	config.AddClientFlags(cmd)
	return cmd
}

func runFiles(cmd *cobra.Command, env *cmdutil.Env, query string) (int, error) {
	paths, err := env.Client.Find().Files(cmd.Context(), query)
	if err != nil {
		return 0, err
	}

	for _, path := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return len(paths), nil
}

func runSymbols(cmd *cobra.Command, env *cmdutil.Env, query string) (int, error) {
	symbols, err := env.Client.Find().Symbols(cmd.Context(), query)
	if err != nil {
		return 0, err
	}

	for _, symbol := range symbols {
		kind, ok := symbolKinds[symbol.Kind]
		if !ok {
			kind = fmt.Sprintf("kind %d", symbol.Kind)
		}
		start := symbol.Location.Range.Start
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
			cliui.ValueStyle.Render(symbol.Name),
			cliui.DimStyle.Render(kind),
			fmt.Sprintf("%s:%d:%d", strings.TrimPrefix(symbol.Location.URI, "file://"), start.Line+1, start.Character+1),
		)
	}
	return len(symbols), nil
}

func runText(cmd *cobra.Command, env *cmdutil.Env, pattern string) (int, error) {
	matches, err := env.Client.Find().Text(cmd.Context(), pattern)
	if err != nil {
		return 0, err
	}

	for _, match := range matches {
		fmt.Fprintf(cmd.OutOrStdout(), "%s:%d: %s\n",
			cliui.KeyStyle.Render(match.Path.Text),
			match.LineNumber,
			highlight(match),
		)
	}
	return len(matches), nil
}

// highlight renders the matched line with every submatch emphasized.
func highlight(match opencode.TextMatch) string {
	line := strings.TrimRight(match.Lines.Text, "\r\n")

	var b strings.Builder
	last := 0
	for _, sub := range match.Submatches {
		start, end := int(sub.Start), int(sub.End)
		if start < last || end > len(line) || start > end {
			continue
		}
		b.WriteString(line[last:start])
		b.WriteString(cliui.EventStyle.Render(line[start:end]))
		last = end
	}
	b.WriteString(line[last:])
	return b.String()
}
