package config

import (
	"time"

	"github.com/papercomputeco/murasame/pkg/llm"
	"github.com/papercomputeco/murasame/pkg/provider"
)

// DefaultListen is the default HTTP listen address.
const DefaultListen = ":28565"

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Listen: DefaultListen,
		},
		Hosted: HostedConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Title:       "Murasame",
			Temperature: 0.7,
			Timeout:     2 * time.Minute,
		},
		Daemon: DaemonConfig{
			URL:     "http://localhost:11434",
			Timeout: 5 * time.Minute,
		},
		Engine: EngineConfig{
			URL:     "http://localhost:11434",
			Model:   "Murasame",
			Mode:    "chat",
			Timeout: 5 * time.Minute,
		},
		Endpoints: EndpointsConfig{
			Chat: EndpointConfig{
				Models:      map[string]string{},
				MaxTokens:   2048,
				Temperature: llm.Ptr(0.9),
				TopP:        0.95,
				TopK:        20,
			},
			QA: EndpointConfig{
				Models: map[string]string{
					provider.HostedAPI:        "qwen/qwen3-235b-a22b",
					provider.SelfHostedDaemon: "qwen3:14b",
				},
				MaxTokens: 4096,
			},
			Vision: EndpointConfig{
				Models: map[string]string{
					provider.HostedAPI:        "qwen/qwen-2.5-vl-7b-instruct",
					provider.SelfHostedDaemon: "qwen2.5vl:7b",
				},
				MaxTokens: 2048,
			},
		},
		Transcript: TranscriptConfig{
			Backend: "memory",
			Path:    "murasame.db",
		},
	}
}
