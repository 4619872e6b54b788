package opencode

import (
	"context"
	"net/url"
)

type Position struct {
	Character int64 `json:"character"`
	Line      int64 `json:"line"`
}

type Range struct {
	End   Position `json:"end"`
	Start Position `json:"start"`
}

type SymbolLocation struct {
	Range Range  `json:"range"`
	URI   string `json:"uri"`
}

// Symbol is a workspace symbol reported by the language server. Kind is the
// LSP SymbolKind number.
type Symbol struct {
	Kind     int64          `json:"kind"`
	Location SymbolLocation `json:"location"`
	Name     string         `json:"name"`
}

type MatchText struct {
	Text string `json:"text"`
}

type Submatch struct {
	End   int64     `json:"end"`
	Match MatchText `json:"match"`
	Start int64     `json:"start"`
}

// TextMatch is one ripgrep match.
type TextMatch struct {
	AbsoluteOffset int64      `json:"absolute_offset"`
	LineNumber     int64      `json:"line_number"`
	Lines          MatchText  `json:"lines"`
	Path           MatchText  `json:"path"`
	Submatches     []Submatch `json:"submatches"`
}

// FindService searches the project.
type FindService struct {
	client *Client
}

// Files returns project paths matching query.
func (s *FindService) Files(ctx context.Context, query string, opts ...RequestOption) ([]string, error) {
	return get[[]string](ctx, s.client, "/find/file", url.Values{"query": {query}}, opts)
}

func (s *FindService) Symbols(ctx context.Context, query string, opts ...RequestOption) ([]Symbol, error) {
	return get[[]Symbol](ctx, s.client, "/find/symbol", url.Values{"query": {query}}, opts)
}

// Text searches file contents for pattern.
func (s *FindService) Text(ctx context.Context, pattern string, opts ...RequestOption) ([]TextMatch, error) {
	return get[[]TextMatch](ctx, s.client, "/find", url.Values{"pattern": {pattern}}, opts)
}
