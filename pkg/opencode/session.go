package opencode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Session is a conversation with the agent.
type Session struct {
	ID       string         `json:"id"`
	Time     SessionTime    `json:"time"`
	Title    string         `json:"title"`
	Version  string         `json:"version"`
	ParentID string         `json:"parentID,omitempty"`
	Revert   *SessionRevert `json:"revert,omitempty"`
	Share    *SessionShare  `json:"share,omitempty"`
}

type SessionTime struct {
	Created float64 `json:"created"`
	Updated float64 `json:"updated"`
}

type SessionRevert struct {
	MessageID string `json:"messageID"`
	Diff      string `json:"diff,omitempty"`
	PartID    string `json:"partID,omitempty"`
	Snapshot  string `json:"snapshot,omitempty"`
}

type SessionShare struct {
	URL string `json:"url"`
}

// FileDiff summarizes the changes a session made to one file.
type FileDiff struct {
	File      string `json:"file"`
	Before    string `json:"before"`
	After     string `json:"after"`
	Additions int64  `json:"additions"`
	Deletions int64  `json:"deletions"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type UserMessage struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionID"`
	Time      UserMessageTime `json:"time"`
}

type UserMessageTime struct {
	Created float64 `json:"created"`
}

// AssistantMessage is a reply from the model. Error is set when generation
// failed.
type AssistantMessage struct {
	ID         string                 `json:"id"`
	Cost       float64                `json:"cost"`
	Mode       string                 `json:"mode"`
	ModelID    string                 `json:"modelID"`
	Path       AssistantMessagePath   `json:"path"`
	ProviderID string                 `json:"providerID"`
	SessionID  string                 `json:"sessionID"`
	System     []string               `json:"system"`
	Time       AssistantMessageTime   `json:"time"`
	Tokens     AssistantMessageTokens `json:"tokens"`
	Error      *SessionError          `json:"error,omitempty"`
	Summary    *bool                  `json:"summary,omitempty"`
}

type AssistantMessagePath struct {
	Cwd  string `json:"cwd"`
	Root string `json:"root"`
}

type AssistantMessageTime struct {
	Created   float64  `json:"created"`
	Completed *float64 `json:"completed,omitempty"`
}

type AssistantMessageTokens struct {
	Cache     TokenCache `json:"cache"`
	Input     uint64     `json:"input"`
	Output    uint64     `json:"output"`
	Reasoning uint64     `json:"reasoning"`
}

type TokenCache struct {
	Read  uint64 `json:"read"`
	Write uint64 `json:"write"`
}

// Message is a user or assistant message, discriminated by Role. Use User or
// Assistant to decode the variant.
type Message struct {
	Role string
	raw  json.RawMessage
}

// NewUserMessage wraps m as a Message with role "user".
func NewUserMessage(m UserMessage) (Message, error) {
	raw, err := encodeTagged(m, "role", RoleUser)
	return Message{Role: RoleUser, raw: raw}, err
}

// NewAssistantMessage wraps m as a Message with role "assistant".
func NewAssistantMessage(m AssistantMessage) (Message, error) {
	raw, err := encodeTagged(m, "role", RoleAssistant)
	return Message{Role: RoleAssistant, raw: raw}, err
}

func (m *Message) UnmarshalJSON(data []byte) error {
	role, raw, err := decodeTagged(data, "role")
	if err != nil {
		return err
	}
	m.Role, m.raw = role, raw
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	return rawOrNull(m.raw), nil
}

func (m Message) User() (*UserMessage, error) {
	return variant[UserMessage](m.raw, m.Role, RoleUser, "message role")
}

func (m Message) Assistant() (*AssistantMessage, error) {
	return variant[AssistantMessage](m.raw, m.Role, RoleAssistant, "message role")
}

// ID returns the message id regardless of role.
func (m Message) ID() string {
	return commonIDs(m.raw).ID
}

// SessionID returns the owning session id regardless of role.
func (m Message) SessionID() string {
	return commonIDs(m.raw).SessionID
}

type ids struct {
	ID        string `json:"id"`
	MessageID string `json:"messageID"`
	SessionID string `json:"sessionID"`
}

func commonIDs(raw json.RawMessage) ids {
	var out ids
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

// Part types.
const (
	PartTypeText       = "text"
	PartTypeFile       = "file"
	PartTypeTool       = "tool"
	PartTypeStepStart  = "step-start"
	PartTypeStepFinish = "step-finish"
	PartTypeSnapshot   = "snapshot"
	PartTypePatch      = "patch"
)

type TextPart struct {
	ID        string        `json:"id"`
	MessageID string        `json:"messageID"`
	SessionID string        `json:"sessionID"`
	Text      string        `json:"text"`
	Synthetic *bool         `json:"synthetic,omitempty"`
	Time      *TextPartTime `json:"time,omitempty"`
}

type TextPartTime struct {
	Start float64  `json:"start"`
	End   *float64 `json:"end,omitempty"`
}

type FilePart struct {
	ID        string          `json:"id"`
	MessageID string          `json:"messageID"`
	Mime      string          `json:"mime"`
	SessionID string          `json:"sessionID"`
	URL       string          `json:"url"`
	Filename  string          `json:"filename,omitempty"`
	Source    *FilePartSource `json:"source,omitempty"`
}

type ToolPart struct {
	ID        string    `json:"id"`
	CallID    string    `json:"callID"`
	MessageID string    `json:"messageID"`
	SessionID string    `json:"sessionID"`
	State     ToolState `json:"state"`
	Tool      string    `json:"tool"`
}

type StepStartPart struct {
	ID        string `json:"id"`
	MessageID string `json:"messageID"`
	SessionID string `json:"sessionID"`
}

type StepFinishPart struct {
	ID        string                 `json:"id"`
	Cost      float64                `json:"cost"`
	MessageID string                 `json:"messageID"`
	SessionID string                 `json:"sessionID"`
	Tokens    AssistantMessageTokens `json:"tokens"`
}

type SnapshotPart struct {
	ID        string `json:"id"`
	MessageID string `json:"messageID"`
	SessionID string `json:"sessionID"`
	Snapshot  string `json:"snapshot"`
}

type PatchPart struct {
	ID        string   `json:"id"`
	Files     []string `json:"files"`
	Hash      string   `json:"hash"`
	MessageID string   `json:"messageID"`
	SessionID string   `json:"sessionID"`
}

// Part is one piece of a message, discriminated by Type. Parts of types this
// package does not know are kept verbatim.
type Part struct {
	Type string
	raw  json.RawMessage
}

// NewPart encodes v as a Part with the given type discriminator.
func NewPart(partType string, v any) (Part, error) {
	raw, err := encodeTagged(v, "type", partType)
	return Part{Type: partType, raw: raw}, err
}

// NewTextPart wraps p as a Part of type "text".
func NewTextPart(p TextPart) (Part, error) {
	return NewPart(PartTypeText, p)
}

func (p *Part) UnmarshalJSON(data []byte) error {
	typ, raw, err := decodeTagged(data, "type")
	if err != nil {
		return err
	}
	p.Type, p.raw = typ, raw
	return nil
}

func (p Part) MarshalJSON() ([]byte, error) {
	return rawOrNull(p.raw), nil
}

// Raw returns the part's JSON encoding.
func (p Part) Raw() json.RawMessage {
	return p.raw
}

func (p Part) ID() string {
	return commonIDs(p.raw).ID
}

func (p Part) MessageID() string {
	return commonIDs(p.raw).MessageID
}

func (p Part) SessionID() string {
	return commonIDs(p.raw).SessionID
}

func (p Part) Text() (*TextPart, error) {
	return variant[TextPart](p.raw, p.Type, PartTypeText, "part type")
}

func (p Part) File() (*FilePart, error) {
	return variant[FilePart](p.raw, p.Type, PartTypeFile, "part type")
}

func (p Part) Tool() (*ToolPart, error) {
	return variant[ToolPart](p.raw, p.Type, PartTypeTool, "part type")
}

func (p Part) StepStart() (*StepStartPart, error) {
	return variant[StepStartPart](p.raw, p.Type, PartTypeStepStart, "part type")
}

func (p Part) StepFinish() (*StepFinishPart, error) {
	return variant[StepFinishPart](p.raw, p.Type, PartTypeStepFinish, "part type")
}

func (p Part) Snapshot() (*SnapshotPart, error) {
	return variant[SnapshotPart](p.raw, p.Type, PartTypeSnapshot, "part type")
}

func (p Part) Patch() (*PatchPart, error) {
	return variant[PatchPart](p.raw, p.Type, PartTypePatch, "part type")
}

// Tool statuses.
const (
	ToolStatusPending   = "pending"
	ToolStatusRunning   = "running"
	ToolStatusCompleted = "completed"
	ToolStatusError     = "error"
)

type ToolStatePending struct{}

type ToolStateRunning struct {
	Time     ToolStateRunningTime `json:"time"`
	Input    json.RawMessage      `json:"input,omitempty"`
	Metadata json.RawMessage      `json:"metadata,omitempty"`
	Title    string               `json:"title,omitempty"`
}

type ToolStateRunningTime struct {
	Start float64 `json:"start"`
}

type ToolStateCompleted struct {
	Input    json.RawMessage `json:"input"`
	Metadata json.RawMessage `json:"metadata"`
	Output   string          `json:"output"`
	Time     ToolStateSpan   `json:"time"`
	Title    string          `json:"title"`
}

type ToolStateError struct {
	Error string          `json:"error"`
	Input json.RawMessage `json:"input"`
	Time  ToolStateSpan   `json:"time"`
}

type ToolStateSpan struct {
	End   float64 `json:"end"`
	Start float64 `json:"start"`
}

// ToolState is the lifecycle state of a tool call, discriminated by Status.
type ToolState struct {
	Status string
	raw    json.RawMessage
}

func (s *ToolState) UnmarshalJSON(data []byte) error {
	status, raw, err := decodeTagged(data, "status")
	if err != nil {
		return err
	}
	s.Status, s.raw = status, raw
	return nil
}

func (s ToolState) MarshalJSON() ([]byte, error) {
	return rawOrNull(s.raw), nil
}

func (s ToolState) Pending() (*ToolStatePending, error) {
	return variant[ToolStatePending](s.raw, s.Status, ToolStatusPending, "tool status")
}

func (s ToolState) Running() (*ToolStateRunning, error) {
	return variant[ToolStateRunning](s.raw, s.Status, ToolStatusRunning, "tool status")
}

func (s ToolState) Completed() (*ToolStateCompleted, error) {
	return variant[ToolStateCompleted](s.raw, s.Status, ToolStatusCompleted, "tool status")
}

func (s ToolState) Failed() (*ToolStateError, error) {
	return variant[ToolStateError](s.raw, s.Status, ToolStatusError, "tool status")
}

type FilePartSourceText struct {
	End   uint64 `json:"end"`
	Start uint64 `json:"start"`
	Value string `json:"value"`
}

type FileSource struct {
	Path string             `json:"path"`
	Text FilePartSourceText `json:"text"`
}

type SymbolSource struct {
	Kind  uint64             `json:"kind"`
	Name  string             `json:"name"`
	Path  string             `json:"path"`
	Range Range              `json:"range"`
	Text  FilePartSourceText `json:"text"`
}

// FilePartSource says where an attached file came from: a whole file or a
// symbol within one.
type FilePartSource struct {
	Type string
	raw  json.RawMessage
}

func (s *FilePartSource) UnmarshalJSON(data []byte) error {
	typ, raw, err := decodeTagged(data, "type")
	if err != nil {
		return err
	}
	s.Type, s.raw = typ, raw
	return nil
}

func (s FilePartSource) MarshalJSON() ([]byte, error) {
	return rawOrNull(s.raw), nil
}

func (s FilePartSource) File() (*FileSource, error) {
	return variant[FileSource](s.raw, s.Type, "file", "file source type")
}

func (s FilePartSource) Symbol() (*SymbolSource, error) {
	return variant[SymbolSource](s.raw, s.Type, "symbol", "file source type")
}

type TextPartInput struct {
	Text      string        `json:"text"`
	ID        string        `json:"id,omitempty"`
	Synthetic *bool         `json:"synthetic,omitempty"`
	Time      *TextPartTime `json:"time,omitempty"`
}

type FilePartInput struct {
	Mime     string          `json:"mime"`
	URL      string          `json:"url"`
	ID       string          `json:"id,omitempty"`
	Filename string          `json:"filename,omitempty"`
	Source   *FilePartSource `json:"source,omitempty"`
}

// PartInput is a part sent with a chat message. Exactly one of Text and File
// is set, matching Type.
type PartInput struct {
	Type string
	Text *TextPartInput
	File *FilePartInput
}

// TextInput returns a text part input.
func TextInput(text string) PartInput {
	return PartInput{Type: PartTypeText, Text: &TextPartInput{Text: text}}
}

// FileInput returns a file part input referencing fileURL.
func FileInput(mime, fileURL string) PartInput {
	return PartInput{Type: PartTypeFile, File: &FilePartInput{Mime: mime, URL: fileURL}}
}

func (p PartInput) MarshalJSON() ([]byte, error) {
	switch {
	case p.Type == PartTypeText && p.Text != nil:
		return encodeTagged(p.Text, "type", PartTypeText)
	case p.Type == PartTypeFile && p.File != nil:
		return encodeTagged(p.File, "type", PartTypeFile)
	default:
		return nil, fmt.Errorf("part input of type %q has no matching body", p.Type)
	}
}

func (p *PartInput) UnmarshalJSON(data []byte) error {
	typ, raw, err := decodeTagged(data, "type")
	if err != nil {
		return err
	}

	switch typ {
	case PartTypeText:
		in := new(TextPartInput)
		if err := json.Unmarshal(raw, in); err != nil {
			return err
		}
		*p = PartInput{Type: typ, Text: in}
	case PartTypeFile:
		in := new(FilePartInput)
		if err := json.Unmarshal(raw, in); err != nil {
			return err
		}
		*p = PartInput{Type: typ, File: in}
	default:
		return fmt.Errorf("unknown part input type %q", typ)
	}

	return nil
}

// MessageWithParts is a message and its parts as listed by Messages.
type MessageWithParts struct {
	Info  Message `json:"info"`
	Parts []Part  `json:"parts"`
}

type ChatParams struct {
	ModelID    string          `json:"modelID"`
	Parts      []PartInput     `json:"parts"`
	ProviderID string          `json:"providerID"`
	MessageID  string          `json:"messageID,omitempty"`
	Mode       string          `json:"mode,omitempty"`
	System     string          `json:"system,omitempty"`
	Tools      map[string]bool `json:"tools,omitempty"`
}

type InitParams struct {
	MessageID  string `json:"messageID"`
	ModelID    string `json:"modelID"`
	ProviderID string `json:"providerID"`
}

type RevertParams struct {
	MessageID string `json:"messageID"`
	PartID    string `json:"partID,omitempty"`
}

type SummarizeParams struct {
	ModelID    string `json:"modelID"`
	ProviderID string `json:"providerID"`
}

// SessionService manages sessions and their messages.
type SessionService struct {
	client *Client
}

func sessionPath(id string, suffix string) string {
	return "/session/" + url.PathEscape(id) + suffix
}

func (s *SessionService) Create(ctx context.Context, opts ...RequestOption) (Session, error) {
	return post[Session](ctx, s.client, "/session", nil, opts)
}

func (s *SessionService) List(ctx context.Context, opts ...RequestOption) ([]Session, error) {
	return get[[]Session](ctx, s.client, "/session", nil, opts)
}

// Delete removes a session and all of its data.
func (s *SessionService) Delete(ctx context.Context, id string, opts ...RequestOption) (bool, error) {
	return del[bool](ctx, s.client, sessionPath(id, ""), opts)
}

// Abort stops the generation in progress for a session.
func (s *SessionService) Abort(ctx context.Context, id string, opts ...RequestOption) (bool, error) {
	return post[bool](ctx, s.client, sessionPath(id, "/abort"), nil, opts)
}

// Chat sends a message and returns the assistant's reply.
func (s *SessionService) Chat(ctx context.Context, id string, params ChatParams, opts ...RequestOption) (AssistantMessage, error) {
	return post[AssistantMessage](ctx, s.client, sessionPath(id, "/message"), params, opts)
}

// Init analyzes the project and writes an AGENTS.md file.
func (s *SessionService) Init(ctx context.Context, id string, params InitParams, opts ...RequestOption) (bool, error) {
	return post[bool](ctx, s.client, sessionPath(id, "/init"), params, opts)
}

func (s *SessionService) Messages(ctx context.Context, id string, opts ...RequestOption) ([]MessageWithParts, error) {
	return get[[]MessageWithParts](ctx, s.client, sessionPath(id, "/message"), nil, opts)
}

// Revert undoes a message and the changes it made.
func (s *SessionService) Revert(ctx context.Context, id string, params RevertParams, opts ...RequestOption) (Session, error) {
	return post[Session](ctx, s.client, sessionPath(id, "/revert"), params, opts)
}

func (s *SessionService) Share(ctx context.Context, id string, opts ...RequestOption) (Session, error) {
	return post[Session](ctx, s.client, sessionPath(id, "/share"), nil, opts)
}

// Summarize compacts the session history with the given model.
func (s *SessionService) Summarize(ctx context.Context, id string, params SummarizeParams, opts ...RequestOption) (bool, error) {
	return post[bool](ctx, s.client, sessionPath(id, "/summarize"), params, opts)
}

// Unrevert restores all reverted messages.
func (s *SessionService) Unrevert(ctx context.Context, id string, opts ...RequestOption) (Session, error) {
	return post[Session](ctx, s.client, sessionPath(id, "/unrevert"), nil, opts)
}

func (s *SessionService) Unshare(ctx context.Context, id string, opts ...RequestOption) (Session, error) {
	return del[Session](ctx, s.client, sessionPath(id, "/share"), opts)
}
