package opencode

import (
	"context"
	"encoding/json"
)

// Config is the server's resolved opencode configuration.
type Config struct {
	Schema            string                    `json:"$schema,omitempty"`
	Agent             map[string]AgentConfig    `json:"agent,omitempty"`
	Autoshare         *bool                     `json:"autoshare,omitempty"`
	Autoupdate        json.RawMessage           `json:"autoupdate,omitempty"`
	DisabledProviders []string                  `json:"disabled_providers,omitempty"`
	Experimental      *Experimental             `json:"experimental,omitempty"`
	Instructions      []string                  `json:"instructions,omitempty"`
	Keybinds          map[string]string         `json:"keybinds,omitempty"`
	Layout            Layout                    `json:"layout,omitempty"`
	MCP               map[string]MCPConfig      `json:"mcp,omitempty"`
	Mode              map[string]ModeConfig     `json:"mode,omitempty"`
	Model             string                    `json:"model,omitempty"`
	Provider          map[string]ProviderConfig `json:"provider,omitempty"`
	Share             ShareMode                 `json:"share,omitempty"`
	SmallModel        string                    `json:"small_model,omitempty"`
	Theme             string                    `json:"theme,omitempty"`
	Username          string                    `json:"username,omitempty"`
}

type ModeConfig struct {
	Disable     *bool           `json:"disable,omitempty"`
	Model       string          `json:"model,omitempty"`
	Prompt      string          `json:"prompt,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Tools       map[string]bool `json:"tools,omitempty"`
}

// AgentConfig is a mode config with a description. The mode fields are
// inlined in JSON.
type AgentConfig struct {
	Description string `json:"description"`
	ModeConfig
}

type HookCommand struct {
	Command     []string          `json:"command"`
	Environment map[string]string `json:"environment,omitempty"`
}

type Hook struct {
	FileEdited       map[string][]HookCommand `json:"file_edited,omitempty"`
	SessionCompleted []HookCommand            `json:"session_completed,omitempty"`
}

type Experimental struct {
	Hook *Hook `json:"hook,omitempty"`
}

// MCPConfig is an MCP server entry. Type is "local" (Command, Environment)
// or "remote" (URL, Headers).
type MCPConfig struct {
	Type        string            `json:"type"`
	Enabled     *bool             `json:"enabled,omitempty"`
	Command     []string          `json:"command,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	URL         string            `json:"url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

const (
	MCPTypeLocal  = "local"
	MCPTypeRemote = "remote"
)

type ProviderModelConfig struct {
	ID          string                     `json:"id,omitempty"`
	Attachment  *bool                      `json:"attachment,omitempty"`
	Cost        *ModelCost                 `json:"cost,omitempty"`
	Limit       *ModelLimit                `json:"limit,omitempty"`
	Name        string                     `json:"name,omitempty"`
	Options     map[string]json.RawMessage `json:"options,omitempty"`
	Reasoning   *bool                      `json:"reasoning,omitempty"`
	ReleaseDate string                     `json:"release_date,omitempty"`
	Temperature *bool                      `json:"temperature,omitempty"`
	ToolCall    *bool                      `json:"tool_call,omitempty"`
}

type ProviderConfig struct {
	Models  map[string]ProviderModelConfig `json:"models"`
	ID      string                         `json:"id,omitempty"`
	API     string                         `json:"api,omitempty"`
	Env     []string                       `json:"env,omitempty"`
	Name    string                         `json:"name,omitempty"`
	Npm     string                         `json:"npm,omitempty"`
	Options map[string]json.RawMessage     `json:"options,omitempty"`
}

// APIKey returns the "apiKey" provider option, if it is a string.
func (p ProviderConfig) APIKey() string {
	var key string
	if raw, ok := p.Options["apiKey"]; ok {
		_ = json.Unmarshal(raw, &key)
	}
	return key
}

type ShareMode string

const (
	ShareManual   ShareMode = "manual"
	ShareAuto     ShareMode = "auto"
	ShareDisabled ShareMode = "disabled"
)

type Layout string

const (
	LayoutAuto    Layout = "auto"
	LayoutStretch Layout = "stretch"
)

// ConfigService reads the server configuration.
type ConfigService struct {
	client *Client
}

func (s *ConfigService) Get(ctx context.Context, opts ...RequestOption) (Config, error) {
	return get[Config](ctx, s.client, "/config", nil, opts)
}
