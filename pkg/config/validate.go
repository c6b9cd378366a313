package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/papercomputeco/murasame/pkg/provider"
	"github.com/papercomputeco/murasame/pkg/provider/local"
)

// Validate checks the configuration for required fields and valid values.
// Every problem is reported, each with its field path.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.Listen == "" {
		result = multierror.Append(result, fmt.Errorf("server.listen is required"))
	}

	// daemon.url is the last resort of qa and vision.
	if c.Daemon.URL == "" {
		result = multierror.Append(result, fmt.Errorf("daemon.url is required"))
	}

	for _, t := range []struct {
		field string
		value time.Duration
	}{
		{"hosted.timeout", c.Hosted.Timeout},
		{"daemon.timeout", c.Daemon.Timeout},
		{"engine.timeout", c.Engine.Timeout},
	} {
		if t.value <= 0 {
			result = multierror.Append(result, fmt.Errorf("%s must be > 0, got %v", t.field, t.value))
		}
	}

	if c.Hosted.Temperature < 0 || c.Hosted.Temperature > 2 {
		result = multierror.Append(result, fmt.Errorf("hosted.temperature must be within [0, 2], got %v", c.Hosted.Temperature))
	}

	if _, err := local.ParseMode(c.Engine.Mode); err != nil {
		result = multierror.Append(result, fmt.Errorf("engine.mode: %w", err))
	}
	if c.Engine.URL != "" && c.Engine.Model == "" {
		result = multierror.Append(result, fmt.Errorf("engine.model is required when engine.url is set"))
	}

	result = multierror.Append(result, c.Endpoints.Chat.validate("endpoints.chat")...)
	result = multierror.Append(result, c.Endpoints.QA.validate("endpoints.qa")...)
	result = multierror.Append(result, c.Endpoints.Vision.validate("endpoints.vision")...)

	for _, name := range []string{"qa", "vision"} {
		ep := c.Endpoints.Get(name)
		if ep.Models[provider.SelfHostedDaemon] == "" {
			result = multierror.Append(result, fmt.Errorf("endpoints.%s.models.%s is required", name, provider.SelfHostedDaemon))
		}
		if c.Hosted.APIKey != "" && ep.Models[provider.HostedAPI] == "" {
			result = multierror.Append(result, fmt.Errorf("endpoints.%s.models.%s is required when hosted.api_key is set", name, provider.HostedAPI))
		}
	}

	if c.Transcript.Enabled {
		switch c.Transcript.Backend {
		case "memory":
		case "sqlite":
			if c.Transcript.Path == "" {
				result = multierror.Append(result, fmt.Errorf("transcript.path is required when transcript.backend is \"sqlite\""))
			}
		default:
			result = multierror.Append(result, fmt.Errorf("transcript.backend must be \"memory\" or \"sqlite\", got %q", c.Transcript.Backend))
		}
	}

	return result.ErrorOrNil()
}

func (e EndpointConfig) validate(path string) []error {
	var errs []error
	for adapter := range e.Models {
		switch adapter {
		case provider.LocalEngine, provider.SelfHostedDaemon, provider.HostedAPI:
		default:
			errs = append(errs, fmt.Errorf("%s.models: unknown adapter %q", path, adapter))
		}
	}
	if e.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("%s.max_tokens must be >= 0, got %d", path, e.MaxTokens))
	}
	if t := e.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("%s.temperature must be within [0, 2], got %v", path, *t))
	}
	if e.TopP < 0 || e.TopP > 1 {
		errs = append(errs, fmt.Errorf("%s.top_p must be within [0, 1], got %v", path, e.TopP))
	}
	if e.TopK < 0 {
		errs = append(errs, fmt.Errorf("%s.top_k must be >= 0, got %d", path, e.TopK))
	}
	return errs
}
