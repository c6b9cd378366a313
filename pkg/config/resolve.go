package config

import "github.com/papercomputeco/murasame/pkg/provider"

// ProviderConfig resolves the settings adapter uses for endpoint from this
// snapshot. Endpoint sampling settings win over adapter-wide defaults.
func (c *Config) ProviderConfig(endpoint, adapter string) provider.Config {
	ep := c.Endpoints.Get(endpoint)
	out := provider.Config{
		Model:       ep.Models[adapter],
		MaxTokens:   ep.MaxTokens,
		Temperature: ep.Temperature,
		TopP:        ep.TopP,
		TopK:        ep.TopK,
	}

	switch adapter {
	case provider.HostedAPI:
		out.Credential = c.Hosted.APIKey
		out.RemoteURL = c.Hosted.BaseURL
		if out.Temperature == nil {
			t := c.Hosted.Temperature
			out.Temperature = &t
		}
	case provider.SelfHostedDaemon:
		out.RemoteURL = c.Daemon.URL
	case provider.LocalEngine:
		out.RemoteURL = c.Engine.URL
		if out.Model == "" {
			out.Model = c.Engine.Model
		}
	}
	return out
}
