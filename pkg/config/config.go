// Package config provides the layered configuration of the service.
//
// Configuration is loaded in order:
//  1. Built-in defaults
//  2. A TOML, YAML or JSON file, chosen by extension
//  3. MURASAME_* environment variable overrides
//  4. File reference resolution (api_key_file)
//  5. Validation
//
// A Store holds the current snapshot and can reload it when the file changes,
// so credentials and models can be rotated without a restart. Listen address,
// timeouts and the engine handle are read once at startup.
package config

import "time"

// Config holds all configuration of the service.
type Config struct {
	Server     ServerConfig     `toml:"server" yaml:"server"`
	Hosted     HostedConfig     `toml:"hosted" yaml:"hosted"`
	Daemon     DaemonConfig     `toml:"daemon" yaml:"daemon"`
	Engine     EngineConfig     `toml:"engine" yaml:"engine"`
	Endpoints  EndpointsConfig  `toml:"endpoints" yaml:"endpoints"`
	Transcript TranscriptConfig `toml:"transcript" yaml:"transcript"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen string `toml:"listen" yaml:"listen"` // default: ":28565"
	Debug  bool   `toml:"debug" yaml:"debug"`
}

// HostedConfig holds the hosted API (OpenRouter) settings. An empty APIKey
// disables the hosted API for routing.
type HostedConfig struct {
	APIKey      string        `toml:"api_key" yaml:"api_key"`
	APIKeyFile  string        `toml:"api_key_file" yaml:"api_key_file"` // _file variant for api_key
	BaseURL     string        `toml:"base_url" yaml:"base_url"`         // default: OpenRouter
	Referer     string        `toml:"referer" yaml:"referer"`
	Title       string        `toml:"title" yaml:"title"`
	Temperature float64       `toml:"temperature" yaml:"temperature"` // default: 0.7
	Timeout     time.Duration `toml:"timeout" yaml:"timeout"`         // default: 2m
}

// DaemonConfig holds the self-hosted daemon (Ollama) settings.
type DaemonConfig struct {
	URL     string        `toml:"url" yaml:"url"`         // default: http://localhost:11434
	Timeout time.Duration `toml:"timeout" yaml:"timeout"` // default: 5m
}

// EngineConfig holds the local engine handle settings. An empty URL leaves
// the local engine unregistered, and /chat then answers with a configuration
// error envelope.
type EngineConfig struct {
	URL     string        `toml:"url" yaml:"url"`
	Model   string        `toml:"model" yaml:"model"` // default: "Murasame"
	Mode    string        `toml:"mode" yaml:"mode"`   // "chat" or "completion", default: "chat"
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`
}

// EndpointConfig holds the per-endpoint model names and sampling settings.
type EndpointConfig struct {
	// Models maps adapter names ("local", "ollama", "openrouter") to
	// provider-side model names.
	Models map[string]string `toml:"models" yaml:"models"`

	MaxTokens int `toml:"max_tokens" yaml:"max_tokens"`

	// Temperature is nil when unset; an explicit 0 selects greedy decoding.
	Temperature *float64 `toml:"temperature" yaml:"temperature"`
	TopP        float64  `toml:"top_p" yaml:"top_p"`
	TopK        int      `toml:"top_k" yaml:"top_k"`
}

// EndpointsConfig holds the settings of each public endpoint.
type EndpointsConfig struct {
	Chat   EndpointConfig `toml:"chat" yaml:"chat"`
	QA     EndpointConfig `toml:"qa" yaml:"qa"`
	Vision EndpointConfig `toml:"vision" yaml:"vision"`
}

// Get returns the settings of the named endpoint, or the zero value for an
// unknown name.
func (e EndpointsConfig) Get(name string) EndpointConfig {
	switch name {
	case "chat":
		return e.Chat
	case "qa":
		return e.QA
	case "vision":
		return e.Vision
	default:
		return EndpointConfig{}
	}
}

// TranscriptConfig holds the optional conversation transcript settings.
type TranscriptConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Backend string `toml:"backend" yaml:"backend"` // "memory" or "sqlite", default: "memory"
	Path    string `toml:"path" yaml:"path"`       // sqlite database file
}
