package opencode

import (
	"context"
	"encoding/json"
)

// App describes the running opencode instance.
type App struct {
	Git      bool    `json:"git"`
	Hostname string  `json:"hostname"`
	Path     AppPath `json:"path"`
	Time     AppTime `json:"time"`
}

type AppPath struct {
	Config string `json:"config"`
	Cwd    string `json:"cwd"`
	Data   string `json:"data"`
	Root   string `json:"root"`
	State  string `json:"state"`
}

type AppTime struct {
	Initialized *float64 `json:"initialized,omitempty"`
}

// Mode is an agent mode with its tool switches and optional model pin.
type Mode struct {
	Name        string          `json:"name"`
	Tools       map[string]bool `json:"tools"`
	Model       *ModeModel      `json:"model,omitempty"`
	Prompt      string          `json:"prompt,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type ModeModel struct {
	ModelID    string `json:"modelID"`
	ProviderID string `json:"providerID"`
}

type Model struct {
	ID          string                     `json:"id"`
	Attachment  bool                       `json:"attachment"`
	Cost        ModelCost                  `json:"cost"`
	Limit       ModelLimit                 `json:"limit"`
	Name        string                     `json:"name"`
	Options     map[string]json.RawMessage `json:"options"`
	Reasoning   bool                       `json:"reasoning"`
	ReleaseDate string                     `json:"release_date"`
	Temperature bool                       `json:"temperature"`
	ToolCall    bool                       `json:"tool_call"`
}

type ModelCost struct {
	Input      float64  `json:"input"`
	Output     float64  `json:"output"`
	CacheRead  *float64 `json:"cache_read,omitempty"`
	CacheWrite *float64 `json:"cache_write,omitempty"`
}

type ModelLimit struct {
	Context uint64 `json:"context"`
	Output  uint64 `json:"output"`
}

type Provider struct {
	ID     string           `json:"id"`
	Env    []string         `json:"env"`
	Models map[string]Model `json:"models"`
	Name   string           `json:"name"`
	API    string           `json:"api,omitempty"`
	Npm    string           `json:"npm,omitempty"`
}

// AppProvidersResponse lists configured providers and the default model id
// per provider.
type AppProvidersResponse struct {
	Default   map[string]string `json:"default"`
	Providers []Provider        `json:"providers"`
}

// LogLevel is the severity of an AppLogParams entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// AppLogParams is a log entry written to the server log.
type AppLogParams struct {
	Level   LogLevel                   `json:"level"`
	Message string                     `json:"message"`
	Service string                     `json:"service"`
	Extra   map[string]json.RawMessage `json:"extra,omitempty"`
}

// AppService groups the /app, /log, /mode and /config/providers endpoints.
type AppService struct {
	client *Client
}

func (s *AppService) Get(ctx context.Context, opts ...RequestOption) (App, error) {
	return get[App](ctx, s.client, "/app", nil, opts)
}

// Init initializes the app, analyzing the project on first use.
func (s *AppService) Init(ctx context.Context, opts ...RequestOption) (bool, error) {
	return post[bool](ctx, s.client, "/app/init", nil, opts)
}

// Log writes an entry to the server log.
func (s *AppService) Log(ctx context.Context, params AppLogParams, opts ...RequestOption) (bool, error) {
	return post[bool](ctx, s.client, "/log", params, opts)
}

func (s *AppService) Modes(ctx context.Context, opts ...RequestOption) ([]Mode, error) {
	return get[[]Mode](ctx, s.client, "/mode", nil, opts)
}

func (s *AppService) Providers(ctx context.Context, opts ...RequestOption) (AppProvidersResponse, error) {
	return get[AppProvidersResponse](ctx, s.client, "/config/providers", nil, opts)
}
