// Package provider defines the capability interface every inference backend
// adapter implements, the per-request provider settings, and the error
// taxonomy adapters report to the dispatcher.
package provider

import (
	"context"

	"github.com/papercomputeco/murasame/pkg/conversation"
)

// Registered adapter names.
const (
	LocalEngine      = "local"
	SelfHostedDaemon = "ollama"
	HostedAPI        = "openrouter"
)

// Adapter turns a canonical conversation into one provider-specific call and
// the provider's answer back into a canonical Reply.
//
// Implementations must be safe for concurrent use by multiple goroutines and
// must not modify the history they are given.
type Adapter interface {
	// Name returns the registry name of the adapter (e.g. "ollama").
	Name() string

	// Capabilities returns what this adapter can render.
	Capabilities() Capabilities

	// Generate produces the assistant reply for history, which ends with
	// the eliciting turn. Upstream failures are reported as *AdapterError.
	Generate(ctx context.Context, history conversation.History, cfg Config) (Reply, error)
}

// Capabilities declares what an adapter supports. The dispatcher uses it to
// reject incompatible routes before any call is made.
type Capabilities struct {
	// SupportsImages indicates the adapter can send image parts upstream.
	SupportsImages bool
}

// Reply is the canonical result every adapter must produce.
type Reply struct {
	Text string `json:"text"`

	// Model is the model that answered, as reported by the provider when
	// available and otherwise the configured one.
	Model string `json:"model,omitempty"`
}
