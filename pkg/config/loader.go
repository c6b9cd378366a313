package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from defaults, the file at path (optional), and
// the process environment, then validates it.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load reading overrides from environ instead of the process
// environment when environ is non-nil.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg, environ); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	cfg.Hosted.APIKey = strings.TrimSpace(cfg.Hosted.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// loadFile decodes path into cfg by extension. Keys absent from the file keep
// their current (default) values; unknown keys are rejected.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
		return nil
	case ".yaml", ".yml", ".json":
		// JSON documents are valid YAML.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// envOverrides are the MURASAME_* variables. Unset variables leave the
// loaded values untouched.
type envOverrides struct {
	Listen         string `env:"MURASAME_LISTEN"`
	Debug          *bool  `env:"MURASAME_DEBUG"`
	HostedAPIKey   string `env:"MURASAME_OPENROUTER_API_KEY"`
	HostedKeyFile  string `env:"MURASAME_OPENROUTER_API_KEY_FILE"`
	HostedBaseURL  string `env:"MURASAME_OPENROUTER_BASE_URL"`
	DaemonURL      string `env:"MURASAME_OLLAMA_URL"`
	EngineURL      string `env:"MURASAME_ENGINE_URL"`
	EngineModel    string `env:"MURASAME_ENGINE_MODEL"`
	TranscriptPath string `env:"MURASAME_TRANSCRIPT_PATH"`
}

func applyEnvOverrides(cfg *Config, environ map[string]string) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return err
	}

	if o.Listen != "" {
		cfg.Server.Listen = o.Listen
	}
	if o.Debug != nil {
		cfg.Server.Debug = *o.Debug
	}
	if o.HostedAPIKey != "" {
		cfg.Hosted.APIKey = o.HostedAPIKey
	}
	if o.HostedKeyFile != "" {
		cfg.Hosted.APIKeyFile = o.HostedKeyFile
	}
	if o.HostedBaseURL != "" {
		cfg.Hosted.BaseURL = o.HostedBaseURL
	}
	if o.DaemonURL != "" {
		cfg.Daemon.URL = o.DaemonURL
	}
	if o.EngineURL != "" {
		cfg.Engine.URL = o.EngineURL
	}
	if o.EngineModel != "" {
		cfg.Engine.Model = o.EngineModel
	}
	if o.TranscriptPath != "" {
		cfg.Transcript.Path = o.TranscriptPath
	}
	return nil
}

// resolveFileReferences populates hosted.api_key from hosted.api_key_file
// when the key itself is empty.
func resolveFileReferences(cfg *Config) error {
	if cfg.Hosted.APIKeyFile != "" && cfg.Hosted.APIKey == "" {
		data, err := os.ReadFile(cfg.Hosted.APIKeyFile)
		if err != nil {
			return fmt.Errorf("hosted.api_key_file: %w", err)
		}
		cfg.Hosted.APIKey = strings.TrimSpace(string(data))
	}
	return nil
}
