package cmdutil

import (
	"fmt"
	"io"

	"github.com/papercomputeco/opencode-go/pkg/cliui"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// WriteMessage prints a message header followed by its parts. Assistant
// text is rendered as markdown on terminals.
func WriteMessage(w io.Writer, msg opencode.MessageWithParts) error {
	header := msg.Info.Role
	if assistant, err := msg.Info.Assistant(); err == nil {
		header = fmt.Sprintf("%s (%s/%s)", header, assistant.ProviderID, assistant.ModelID)
		if assistant.Error != nil {
			header += " " + cliui.FailMark + " " + assistant.Error.Error()
		}
	}
	fmt.Fprintf(w, "%s %s\n", cliui.HeaderStyle.Render(header), cliui.DimStyle.Render(msg.Info.ID()))

	for _, part := range msg.Parts {
		if err := WritePart(w, msg.Info.Role, part); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	return nil
}

// WritePart prints one part. Step and snapshot bookkeeping parts are
// skipped.
func WritePart(w io.Writer, role string, part opencode.Part) error {
	switch part.Type {
	case opencode.PartTypeText:
		text, err := part.Text()
		if err != nil {
			return err
		}
		if role == opencode.RoleAssistant {
			return cliui.WriteMarkdown(w, text.Text)
		}
		_, err = fmt.Fprintln(w, text.Text)
		return err

	case opencode.PartTypeFile:
		file, err := part.File()
		if err != nil {
			return err
		}
		name := file.Filename
		if name == "" {
			name = file.URL
		}
		_, err = fmt.Fprintf(w, "%s %s\n", cliui.KeyStyle.Render("file"), cliui.ValueStyle.Render(name))
		return err

	case opencode.PartTypeTool:
		tool, err := part.Tool()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s %s %s\n",
			cliui.KeyStyle.Render("tool"),
			cliui.ValueStyle.Render(tool.Tool),
			cliui.DimStyle.Render(tool.State.Status),
		)
		return err

	case opencode.PartTypePatch:
		patch, err := part.Patch()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s %d files\n", cliui.KeyStyle.Render("patch"), len(patch.Files))
		return err

	default:
		return nil
	}
}
