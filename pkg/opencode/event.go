package opencode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEventType is returned by DecodeProperties for event types this
// package has no properties type for.
var ErrUnknownEventType = errors.New("unknown event type")

// Event is one item of the server event feed. Properties holds the raw
// payload; DecodeProperties returns it as the typed struct for Type.
type Event struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// Event types published on GET /event.
const (
	EventInstallationUpdated         = "installation.updated"
	EventInstallationUpdateAvailable = "installation.update-available"
	EventProjectUpdated              = "project.updated"
	EventServerInstanceDisposed      = "server.instance.disposed"
	EventServerConnected             = "server.connected"
	EventGlobalDisposed              = "global.disposed"
	EventLspClientDiagnostics        = "lsp.client.diagnostics"
	EventLspUpdated                  = "lsp.updated"
	EventFileEdited                  = "file.edited"
	EventFileWatcherUpdated          = "file.watcher.updated"
	EventMessageUpdated              = "message.updated"
	EventMessageRemoved              = "message.removed"
	EventMessagePartUpdated          = "message.part.updated"
	EventMessagePartDelta            = "message.part.delta"
	EventMessagePartRemoved          = "message.part.removed"
	EventPermissionAsked             = "permission.asked"
	EventPermissionReplied           = "permission.replied"
	EventSessionCreated              = "session.created"
	EventSessionUpdated              = "session.updated"
	EventSessionDeleted              = "session.deleted"
	EventSessionStatus               = "session.status"
	EventSessionIdle                 = "session.idle"
	EventSessionDiff                 = "session.diff"
	EventSessionCompacted            = "session.compacted"
	EventSessionError                = "session.error"
	EventQuestionAsked               = "question.asked"
	EventQuestionReplied             = "question.replied"
	EventQuestionRejected            = "question.rejected"
	EventTodoUpdated                 = "todo.updated"
	EventTuiPromptAppend             = "tui.prompt.append"
	EventTuiCommandExecute           = "tui.command.execute"
	EventTuiToastShow                = "tui.toast.show"
	EventTuiSessionSelect            = "tui.session.select"
	EventMcpToolsChanged             = "mcp.tools.changed"
	EventMcpBrowserOpenFailed        = "mcp.browser.open.failed"
	EventCommandExecuted             = "command.executed"
	EventVcsBranchUpdated            = "vcs.branch.updated"
	EventPtyCreated                  = "pty.created"
	EventPtyUpdated                  = "pty.updated"
	EventPtyExited                   = "pty.exited"
	EventPtyDeleted                  = "pty.deleted"
	EventWorktreeReady               = "worktree.ready"
	EventWorktreeFailed              = "worktree.failed"
)

type EmptyProps struct{}

type InstallationUpdatedProps struct {
	Version string `json:"version"`
}

type InstallationUpdateAvailableProps struct {
	Version string `json:"version"`
}

type ProjectUpdatedProps struct {
	Properties json.RawMessage `json:"properties"`
}

type ServerInstanceDisposedProps struct {
	Directory string `json:"directory"`
}

type LspClientDiagnosticsProps struct {
	Path     string `json:"path"`
	ServerID string `json:"serverID"`
}

type FileEditedProps struct {
	File string `json:"file"`
}

type FileWatcherUpdatedProps struct {
	// Event is "add", "change" or "unlink".
	Event string `json:"event"`
	File  string `json:"file"`
}

type MessageUpdatedProps struct {
	Info Message `json:"info"`
}

type MessageRemovedProps struct {
	MessageID string `json:"messageID"`
	SessionID string `json:"sessionID"`
}

type MessagePartUpdatedProps struct {
	Part Part `json:"part"`
}

// MessagePartDeltaProps carries an incremental append to one field of a part.
type MessagePartDeltaProps struct {
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	PartID    string `json:"partID"`
	Field     string `json:"field"`
	Delta     string `json:"delta"`
}

type MessagePartRemovedProps struct {
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	PartID    string `json:"partID"`
}

type PermissionRepliedProps struct {
	SessionID string `json:"sessionID"`
	RequestID string `json:"requestID"`
	// Reply is "once", "always" or "reject".
	Reply string `json:"reply"`
}

type SessionCreatedProps struct {
	Info Session `json:"info"`
}

type SessionUpdatedProps struct {
	Info Session `json:"info"`
}

type SessionDeletedProps struct {
	Info Session `json:"info"`
}

type SessionStatusProps struct {
	SessionID string          `json:"sessionID"`
	Status    json.RawMessage `json:"status"`
}

type SessionIdleProps struct {
	SessionID string `json:"sessionID"`
}

type SessionDiffProps struct {
	SessionID string     `json:"sessionID"`
	Diff      []FileDiff `json:"diff"`
}

type SessionCompactedProps struct {
	SessionID string `json:"sessionID"`
}

type SessionErrorProps struct {
	Error     *SessionError `json:"error,omitempty"`
	SessionID string        `json:"sessionID,omitempty"`
}

type QuestionRepliedProps struct {
	SessionID string     `json:"sessionID"`
	RequestID string     `json:"requestID"`
	Answers   [][]string `json:"answers"`
}

type QuestionRejectedProps struct {
	SessionID string `json:"sessionID"`
	RequestID string `json:"requestID"`
}

type Todo struct {
	Content  string `json:"content"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

type TodoUpdatedProps struct {
	SessionID string `json:"sessionID"`
	Todos     []Todo `json:"todos"`
}

type TuiPromptAppendProps struct {
	Text string `json:"text"`
}

type TuiCommandExecuteProps struct {
	Command string `json:"command"`
}

type TuiToastShowProps struct {
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
	// Variant is "info", "success", "warning" or "error".
	Variant  string   `json:"variant"`
	Duration *float64 `json:"duration,omitempty"`
}

type TuiSessionSelectProps struct {
	SessionID string `json:"sessionID"`
}

type McpToolsChangedProps struct {
	Server string `json:"server"`
}

type McpBrowserOpenFailedProps struct {
	McpName string `json:"mcpName"`
	URL     string `json:"url"`
}

type CommandExecutedProps struct {
	Name      string `json:"name"`
	SessionID string `json:"sessionID"`
	Arguments string `json:"arguments"`
	MessageID string `json:"messageID"`
}

type VcsBranchUpdatedProps struct {
	Branch *string `json:"branch"`
}

// Pty is a pseudo terminal managed by the server. Status is "running" or
// "exited".
type Pty struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Cwd     string   `json:"cwd"`
	Status  string   `json:"status"`
	Pid     float64  `json:"pid"`
}

type PtyCreatedProps struct {
	Info Pty `json:"info"`
}

type PtyUpdatedProps struct {
	Info Pty `json:"info"`
}

type PtyExitedProps struct {
	ID       string  `json:"id"`
	ExitCode float64 `json:"exitCode"`
}

type PtyDeletedProps struct {
	ID string `json:"id"`
}

type WorktreeReadyProps struct {
	Name   string `json:"name"`
	Branch string `json:"branch"`
}

type WorktreeFailedProps struct {
	Message string `json:"message"`
}

// eventProps maps each known event type to a constructor for its properties.
var eventProps = map[string]func() any{
	EventInstallationUpdated:         func() any { return new(InstallationUpdatedProps) },
	EventInstallationUpdateAvailable: func() any { return new(InstallationUpdateAvailableProps) },
	EventProjectUpdated:              func() any { return new(ProjectUpdatedProps) },
	EventServerInstanceDisposed:      func() any { return new(ServerInstanceDisposedProps) },
	EventServerConnected:             func() any { return new(EmptyProps) },
	EventGlobalDisposed:              func() any { return new(EmptyProps) },
	EventLspClientDiagnostics:        func() any { return new(LspClientDiagnosticsProps) },
	EventLspUpdated:                  func() any { return new(EmptyProps) },
	EventFileEdited:                  func() any { return new(FileEditedProps) },
	EventFileWatcherUpdated:          func() any { return new(FileWatcherUpdatedProps) },
	EventMessageUpdated:              func() any { return new(MessageUpdatedProps) },
	EventMessageRemoved:              func() any { return new(MessageRemovedProps) },
	EventMessagePartUpdated:          func() any { return new(MessagePartUpdatedProps) },
	EventMessagePartDelta:            func() any { return new(MessagePartDeltaProps) },
	EventMessagePartRemoved:          func() any { return new(MessagePartRemovedProps) },
	EventPermissionAsked:             func() any { return new(json.RawMessage) },
	EventPermissionReplied:           func() any { return new(PermissionRepliedProps) },
	EventSessionCreated:              func() any { return new(SessionCreatedProps) },
	EventSessionUpdated:              func() any { return new(SessionUpdatedProps) },
	EventSessionDeleted:              func() any { return new(SessionDeletedProps) },
	EventSessionStatus:               func() any { return new(SessionStatusProps) },
	EventSessionIdle:                 func() any { return new(SessionIdleProps) },
	EventSessionDiff:                 func() any { return new(SessionDiffProps) },
	EventSessionCompacted:            func() any { return new(SessionCompactedProps) },
	EventSessionError:                func() any { return new(SessionErrorProps) },
	EventQuestionAsked:               func() any { return new(json.RawMessage) },
	EventQuestionReplied:             func() any { return new(QuestionRepliedProps) },
	EventQuestionRejected:            func() any { return new(QuestionRejectedProps) },
	EventTodoUpdated:                 func() any { return new(TodoUpdatedProps) },
	EventTuiPromptAppend:             func() any { return new(TuiPromptAppendProps) },
	EventTuiCommandExecute:           func() any { return new(TuiCommandExecuteProps) },
	EventTuiToastShow:                func() any { return new(TuiToastShowProps) },
	EventTuiSessionSelect:            func() any { return new(TuiSessionSelectProps) },
	EventMcpToolsChanged:             func() any { return new(McpToolsChangedProps) },
	EventMcpBrowserOpenFailed:        func() any { return new(McpBrowserOpenFailedProps) },
	EventCommandExecuted:             func() any { return new(CommandExecutedProps) },
	EventVcsBranchUpdated:            func() any { return new(VcsBranchUpdatedProps) },
	EventPtyCreated:                  func() any { return new(PtyCreatedProps) },
	EventPtyUpdated:                  func() any { return new(PtyUpdatedProps) },
	EventPtyExited:                   func() any { return new(PtyExitedProps) },
	EventPtyDeleted:                  func() any { return new(PtyDeletedProps) },
	EventWorktreeReady:               func() any { return new(WorktreeReadyProps) },
	EventWorktreeFailed:              func() any { return new(WorktreeFailedProps) },
}

// KnownEventType reports whether DecodeProperties has a type for t.
func KnownEventType(t string) bool {
	_, ok := eventProps[t]
	return ok
}

// NewEvent builds an Event of type t with props encoded as its properties.
func NewEvent(t string, props any) (Event, error) {
	raw, err := json.Marshal(props)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, Properties: raw}, nil
}

// DecodeProperties decodes Properties into the struct for e.Type and returns
// a pointer to it, for example *SessionIdleProps for "session.idle". The
// open-ended permission.asked and question.asked payloads are returned as
// *json.RawMessage. Unknown types return an error wrapping
// ErrUnknownEventType.
func (e Event) DecodeProperties() (any, error) {
	newProps, ok := eventProps[e.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}

	props := newProps()
	raw := e.Properties
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, props); err != nil {
		return nil, fmt.Errorf("decoding %s properties: %w", e.Type, err)
	}

	return props, nil
}

// SessionID returns the session the event belongs to, or "" when the
// properties carry none. It looks at sessionID, info.sessionID, info.id for
// session lifecycle events, and part.sessionID.
func (e Event) SessionID() string {
	var probe struct {
		SessionID string `json:"sessionID"`
		Info      *ids   `json:"info"`
		Part      *ids   `json:"part"`
	}
	if len(e.Properties) == 0 || json.Unmarshal(e.Properties, &probe) != nil {
		return ""
	}

	switch {
	case probe.SessionID != "":
		return probe.SessionID
	case probe.Part != nil && probe.Part.SessionID != "":
		return probe.Part.SessionID
	case probe.Info != nil && probe.Info.SessionID != "":
		return probe.Info.SessionID
	case probe.Info != nil && isSessionLifecycle(e.Type):
		return probe.Info.ID
	default:
		return ""
	}
}

func isSessionLifecycle(t string) bool {
	return t == EventSessionCreated || t == EventSessionUpdated || t == EventSessionDeleted
}

// EventService subscribes to the server event feed.
type EventService struct {
	client *Client
}

// List opens the event feed. The returned Stream must be closed by the
// caller; cancelling ctx also ends it.
func (s *EventService) List(ctx context.Context, opts ...RequestOption) (*Stream[Event], error) {
	return getStream[Event](ctx, s.client, "/event", opts)
}
