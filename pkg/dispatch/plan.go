package dispatch

import (
	"fmt"

	"github.com/papercomputeco/murasame/pkg/provider"
)

// Endpoint names a public operation with its own routing policy.
type Endpoint string

const (
	Chat   Endpoint = "chat"
	QA     Endpoint = "qa"
	Vision Endpoint = "vision"
)

// Settings resolves per-adapter provider settings for an endpoint from one
// configuration snapshot.
type Settings interface {
	ProviderConfig(endpoint, adapter string) provider.Config
}

// Plan returns the ordered adapter names to try for endpoint:
//
//	chat   -> local
//	qa     -> openrouter, ollama   (ollama alone without a hosted credential)
//	vision -> openrouter           (ollama without a hosted credential)
//
// Vision deliberately has no fallback once the hosted API is selected.
func Plan(endpoint Endpoint, settings Settings) ([]string, error) {
	hosted := settings.ProviderConfig(string(endpoint), provider.HostedAPI).HasCredential()

	switch endpoint {
	case Chat:
		return []string{provider.LocalEngine}, nil
	case QA:
		if hosted {
			return []string{provider.HostedAPI, provider.SelfHostedDaemon}, nil
		}
		return []string{provider.SelfHostedDaemon}, nil
	case Vision:
		if hosted {
			return []string{provider.HostedAPI}, nil
		}
		return []string{provider.SelfHostedDaemon}, nil
	default:
		return nil, &provider.ConfigurationError{
			Field:  "endpoint",
			Reason: fmt.Sprintf("unknown endpoint %q", endpoint),
		}
	}
}
