package mockserver

import (
	"encoding/base64"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

// LSP SymbolKind values reported by /find/symbol.
const (
	symbolKindMethod   = 6
	symbolKindFunction = 12
)

var funcDecl = regexp.MustCompile(`^func\s+(\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)`)

// handleReadFile returns a seeded file. Content that is not valid UTF-8 is
// returned base64 encoded with type "binary".
func (s *Server) handleReadFile(c *fiber.Ctx) error {
	p := c.Query("path")
	if p == "" {
		return fail(c, fiber.StatusBadRequest, "path is required")
	}

	content, ok := s.config.Files[cleanPath(p)]
	if !ok {
		return fail(c, fiber.StatusNotFound, "file not found: %s", p)
	}

	if utf8.ValidString(content) {
		return c.JSON(opencode.FileContent{Type: opencode.FileContentText, Content: content})
	}
	return c.JSON(opencode.FileContent{
		Type:     opencode.FileContentBinary,
		Content:  base64.StdEncoding.EncodeToString([]byte(content)),
		Encoding: "base64",
		MimeType: http.DetectContentType([]byte(content)),
	})
}

// handleListFiles returns the direct children of the "path" directory,
// directories first.
func (s *Server) handleListFiles(c *fiber.Ctx) error {
	dir := cleanPath(c.Query("path"))
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}

	children := map[string]opencode.FileNodeType{}
	for name := range s.config.Files {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || rest == "" {
			continue
		}
		if child, _, nested := strings.Cut(rest, "/"); nested {
			children[child] = opencode.FileNodeDirectory
		} else {
			children[child] = opencode.FileNodeFile
		}
	}

	nodes := make([]opencode.FileNode, 0, len(children))
	for name, typ := range children {
		rel := path.Join(dir, name)
		nodes = append(nodes, opencode.FileNode{
			Name:     name,
			Path:     rel,
			Absolute: filepath.Join(s.config.Root, filepath.FromSlash(rel)),
			Type:     typ,
		})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type == opencode.FileNodeDirectory
		}
		return nodes[i].Name < nodes[j].Name
	})

	return c.JSON(nodes)
}

// handleFileStatus reports every seeded file as added.
func (s *Server) handleFileStatus(c *fiber.Ctx) error {
	infos := make([]opencode.FileInfo, 0, len(s.config.Files))
	for _, name := range s.sortedPaths() {
		infos = append(infos, opencode.FileInfo{
			Added:  int64(lineCount(s.config.Files[name])),
			Path:   name,
			Status: opencode.FileAdded,
		})
	}
	return c.JSON(infos)
}

// handleFindFiles returns the paths containing query, ignoring case.
func (s *Server) handleFindFiles(c *fiber.Ctx) error {
	query := strings.ToLower(c.Query("query"))

	matches := []string{}
	for _, name := range s.sortedPaths() {
		if strings.Contains(strings.ToLower(name), query) {
			matches = append(matches, name)
		}
	}
	return c.JSON(matches)
}

// handleFindSymbols finds Go func declarations whose name contains query.
func (s *Server) handleFindSymbols(c *fiber.Ctx) error {
	query := strings.ToLower(c.Query("query"))

	symbols := []opencode.Symbol{}
	for _, name := range s.sortedPaths() {
		for i, line := range strings.Split(s.config.Files[name], "\n") {
			m := funcDecl.FindStringSubmatchIndex(line)
			if m == nil {
				continue
			}
			symbol := line[m[4]:m[5]]
			if !strings.Contains(strings.ToLower(symbol), query) {
				continue
			}

			kind := int64(symbolKindFunction)
			if m[2] >= 0 {
				kind = symbolKindMethod
			}
			symbols = append(symbols, opencode.Symbol{
				Kind: kind,
				Name: symbol,
				Location: opencode.SymbolLocation{
					URI: "file://" + path.Join(filepath.ToSlash(s.config.Root), name),
					Range: opencode.Range{
						Start: opencode.Position{Line: int64(i), Character: int64(m[4])},
						End:   opencode.Position{Line: int64(i), Character: int64(m[5])},
					},
				},
			})
		}
	}
	return c.JSON(symbols)
}

// handleFindText searches file contents line by line for the regular
// expression in "pattern".
func (s *Server) handleFindText(c *fiber.Ctx) error {
	pattern := c.Query("pattern")
	if pattern == "" {
		return fail(c, fiber.StatusBadRequest, "pattern is required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid pattern: %v", err)
	}

	matches := []opencode.TextMatch{}
	for _, name := range s.sortedPaths() {
		offset := 0
		for i, line := range strings.SplitAfter(s.config.Files[name], "\n") {
			locs := re.FindAllStringIndex(strings.TrimSuffix(line, "\n"), -1)
			if len(locs) > 0 {
				submatches := make([]opencode.Submatch, 0, len(locs))
				for _, loc := range locs {
					submatches = append(submatches, opencode.Submatch{
						Start: int64(loc[0]),
						End:   int64(loc[1]),
						Match: opencode.MatchText{Text: line[loc[0]:loc[1]]},
					})
				}
				matches = append(matches, opencode.TextMatch{
					AbsoluteOffset: int64(offset),
					LineNumber:     int64(i + 1),
					Lines:          opencode.MatchText{Text: line},
					Path:           opencode.MatchText{Text: name},
					Submatches:     submatches,
				})
			}
			offset += len(line)
		}
	}
	return c.JSON(matches)
}

func (s *Server) sortedPaths() []string {
	paths := make([]string, 0, len(s.config.Files))
	for name := range s.config.Files {
		paths = append(paths, name)
	}
	sort.Strings(paths)
	return paths
}

// cleanPath normalizes a request path to the slash-separated relative form
// used as Files keys.
func cleanPath(p string) string {
	p = path.Clean("/" + filepath.ToSlash(p))
	return strings.TrimPrefix(p, "/")
}

func lineCount(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(content, "\n"), "\n") + 1
}
