// Package local implements the local engine adapter: it renders the
// conversation with the model's chat template and completes it on an Engine
// handle created at startup.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/provider"
)

// Adapter is the local engine adapter. It is text only.
type Adapter struct {
	engine   Engine
	template *Template
	mode     Mode
	logger   *zap.Logger
}

// New creates an Adapter around engine.
func New(engine Engine, mode Mode, logger *zap.Logger) (*Adapter, error) {
	tmpl, err := NewTemplate()
	if err != nil {
		return nil, err
	}
	return &Adapter{
		engine:   engine,
		template: tmpl,
		mode:     mode,
		logger:   logger,
	}, nil
}

func (a *Adapter) Name() string {
	return provider.LocalEngine
}

func (a *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsImages: false}
}

// Generate renders history and completes it. Image content is rejected with
// provider.ErrUnsupportedModality before anything reaches the engine.
func (a *Adapter) Generate(ctx context.Context, history conversation.History, cfg provider.Config) (provider.Reply, error) {
	if history.HasImages() {
		return provider.Reply{}, fmt.Errorf("%w: the local engine accepts text only", provider.ErrUnsupportedModality)
	}

	prompt, err := a.template.Render(history, a.mode)
	if err != nil {
		return provider.Reply{}, err
	}

	params := ParamsFrom(cfg)
	params.Stop = StopSequences(a.mode)

	out, err := a.engine.Generate(ctx, prompt, params)
	if err != nil {
		var adapterErr *provider.AdapterError
		if errors.As(err, &adapterErr) {
			return provider.Reply{}, err
		}
		return provider.Reply{}, &provider.AdapterError{Adapter: provider.LocalEngine, Cause: err}
	}

	text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(out), EndOfTurn))
	if text == "" {
		return provider.Reply{}, &provider.AdapterError{
			Adapter: provider.LocalEngine,
			Cause:   errors.New("engine produced an empty reply"),
		}
	}

	a.logger.Debug("local reply ready",
		zap.Int("reply_size", len(text)),
	)
	return provider.Reply{Text: text, Model: cfg.Model}, nil
}
