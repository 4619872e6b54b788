package opencode

import "context"

type TuiAppendPromptParams struct {
	Text string `json:"text"`
}

// TuiService drives a connected terminal UI.
type TuiService struct {
	client *Client
}

// AppendPrompt appends text to the TUI prompt.
func (s *TuiService) AppendPrompt(ctx context.Context, text string, opts ...RequestOption) (bool, error) {
	return post[bool](ctx, s.client, "/tui/append-prompt", TuiAppendPromptParams{Text: text}, opts)
}

func (s *TuiService) OpenHelp(ctx context.Context, opts ...RequestOption) (bool, error) {
	return post[bool](ctx, s.client, "/tui/open-help", nil, opts)
}
