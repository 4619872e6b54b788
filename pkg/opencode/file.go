package opencode

import (
	"context"
	"net/url"
)

type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileDeleted  FileStatus = "deleted"
	FileModified FileStatus = "modified"
)

// FileInfo is one entry of the working tree status.
type FileInfo struct {
	Added   int64      `json:"added"`
	Path    string     `json:"path"`
	Removed int64      `json:"removed"`
	Status  FileStatus `json:"status"`
}

type FileNodeType string

const (
	FileNodeFile      FileNodeType = "file"
	FileNodeDirectory FileNodeType = "directory"
)

type FileNode struct {
	Name     string       `json:"name"`
	Path     string       `json:"path"`
	Absolute string       `json:"absolute"`
	Type     FileNodeType `json:"type"`
	Ignored  bool         `json:"ignored"`
}

type FileContentType string

const (
	FileContentText   FileContentType = "text"
	FileContentBinary FileContentType = "binary"
)

type FilePatchHunk struct {
	OldStart float64  `json:"oldStart"`
	OldLines float64  `json:"oldLines"`
	NewStart float64  `json:"newStart"`
	NewLines float64  `json:"newLines"`
	Lines    []string `json:"lines"`
}

type FilePatch struct {
	OldFileName string          `json:"oldFileName"`
	NewFileName string          `json:"newFileName"`
	OldHeader   string          `json:"oldHeader,omitempty"`
	NewHeader   string          `json:"newHeader,omitempty"`
	Hunks       []FilePatchHunk `json:"hunks"`
	Index       string          `json:"index,omitempty"`
}

// FileContent is a file read from the project. Binary content is encoded as
// named by Encoding.
type FileContent struct {
	Type     FileContentType `json:"type"`
	Content  string          `json:"content"`
	Diff     string          `json:"diff,omitempty"`
	Patch    *FilePatch      `json:"patch,omitempty"`
	Encoding string          `json:"encoding,omitempty"`
	MimeType string          `json:"mimeType,omitempty"`
}

// FileService reads project files.
type FileService struct {
	client *Client
}

func (s *FileService) Read(ctx context.Context, path string, opts ...RequestOption) (FileContent, error) {
	return get[FileContent](ctx, s.client, "/file/content", url.Values{"path": {path}}, opts)
}

// List returns the directory entries under path. An empty path lists the
// project root.
func (s *FileService) List(ctx context.Context, path string, opts ...RequestOption) ([]FileNode, error) {
	var query url.Values
	if path != "" {
		query = url.Values{"path": {path}}
	}
	return get[[]FileNode](ctx, s.client, "/file", query, opts)
}

func (s *FileService) Status(ctx context.Context, opts ...RequestOption) ([]FileInfo, error) {
	return get[[]FileInfo](ctx, s.client, "/file/status", nil, opts)
}
