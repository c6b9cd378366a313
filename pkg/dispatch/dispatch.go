// Package dispatch selects which inference adapters serve a request, calls
// them in order and falls back on upstream failures.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/metrics"
	"github.com/papercomputeco/murasame/pkg/provider"
)

// Request is one dispatch.
type Request struct {
	Endpoint Endpoint
	History  conversation.History

	// MaxTokens overrides the configured token limit when positive.
	MaxTokens int
}

// Result reports which adapter produced the reply and every adapter that
// was attempted, in order.
type Result struct {
	Reply    provider.Reply
	Adapter  string
	Attempts []string
}

// Dispatcher routes requests to adapters in a Registry.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
}

// New creates a Dispatcher.
func New(registry *Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
	}
}

// Dispatch produces a reply for req using the adapters planned for its
// endpoint. Structural problems (a history without a user turn, a missing
// adapter, images on a text-only route) are reported before any call is
// made. Only *provider.AdapterError moves on to the next candidate; any other
// adapter error ends the dispatch. When every candidate failed the error is
// an *ExhaustedError.
func (d *Dispatcher) Dispatch(ctx context.Context, settings Settings, req Request) (Result, error) {
	if req.History.LastUserIndex() < 0 {
		return Result{}, fmt.Errorf("%w: no user turn to answer", conversation.ErrInvalidHistory)
	}

	names, err := Plan(req.Endpoint, settings)
	if err != nil {
		return Result{}, err
	}
	candidates, err := d.candidates(req.Endpoint, names, req.History.HasImages())
	if err != nil {
		return Result{}, err
	}

	endpoint := string(req.Endpoint)
	attempts := make([]string, 0, len(candidates))
	var last error
	for i, adapter := range candidates {
		name := adapter.Name()
		cfg := settings.ProviderConfig(endpoint, name)
		if req.MaxTokens > 0 {
			cfg.MaxTokens = req.MaxTokens
		}
		attempts = append(attempts, name)

		start := time.Now()
		reply, err := adapter.Generate(ctx, req.History, cfg)
		metrics.AdapterLatency.WithLabelValues(name, endpoint).Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.AdapterRequestsTotal.WithLabelValues(name, endpoint, metrics.OutcomeOK).Inc()
			d.logger.Debug("adapter replied",
				zap.String("endpoint", endpoint),
				zap.String("adapter", name),
				zap.String("model", reply.Model),
				zap.Duration("duration", time.Since(start)),
			)
			return Result{Reply: reply, Adapter: name, Attempts: attempts}, nil
		}
		metrics.AdapterRequestsTotal.WithLabelValues(name, endpoint, metrics.OutcomeError).Inc()

		var adapterErr *provider.AdapterError
		if !errors.As(err, &adapterErr) {
			d.logger.Error("adapter rejected request",
				zap.String("endpoint", endpoint),
				zap.String("adapter", name),
				zap.Error(err),
			)
			return Result{Attempts: attempts}, err
		}

		last = err
		d.logger.Warn("adapter failed",
			zap.String("endpoint", endpoint),
			zap.String("adapter", name),
			zap.Int("status", adapterErr.Status),
			zap.Bool("timeout", adapterErr.Timeout()),
			zap.Error(err),
		)
		if i < len(candidates)-1 {
			metrics.FallbacksTotal.WithLabelValues(endpoint, name).Inc()
			d.logger.Info("falling back",
				zap.String("endpoint", endpoint),
				zap.String("from", name),
				zap.String("to", candidates[i+1].Name()),
			)
		}
	}

	return Result{Attempts: attempts}, &ExhaustedError{
		Endpoint: req.Endpoint,
		Attempts: attempts,
		Last:     last,
	}
}

// candidates resolves planned names against the registry and drops adapters
// that cannot render images when the history carries any.
func (d *Dispatcher) candidates(endpoint Endpoint, names []string, images bool) ([]provider.Adapter, error) {
	out := make([]provider.Adapter, 0, len(names))
	for _, name := range names {
		adapter, ok := d.registry.Get(name)
		if !ok {
			return nil, &provider.ConfigurationError{
				Field:  name,
				Reason: fmt.Sprintf("adapter required by %s is not configured", endpoint),
			}
		}
		if images && !adapter.Capabilities().SupportsImages {
			d.logger.Debug("skipping text-only adapter for image content",
				zap.String("endpoint", string(endpoint)),
				zap.String("adapter", name),
			)
			continue
		}
		out = append(out, adapter)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no adapter planned for %s accepts images (planned %s)",
			provider.ErrUnsupportedModality, endpoint, strings.Join(names, ", "))
	}
	return out, nil
}
