package server

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/config"
	"github.com/papercomputeco/murasame/pkg/dispatch"
	"github.com/papercomputeco/murasame/pkg/provider"
	"github.com/papercomputeco/murasame/pkg/provider/local"
	"github.com/papercomputeco/murasame/pkg/provider/ollama"
	"github.com/papercomputeco/murasame/pkg/provider/openrouter"
	"github.com/papercomputeco/murasame/pkg/transcript"
)

// NewRegistry builds the adapters described by cfg. The daemon and hosted
// adapters are always registered, since their use is decided per request;
// the local adapter needs an engine URL.
func NewRegistry(cfg *config.Config, logger *zap.Logger) (*dispatch.Registry, error) {
	adapters := []provider.Adapter{
		ollama.New(cfg.Daemon.Timeout, logger.Named("ollama")),
		openrouter.New(openrouter.Options{
			Referer: cfg.Hosted.Referer,
			Title:   cfg.Hosted.Title,
			Timeout: cfg.Hosted.Timeout,
		}, logger.Named("openrouter")),
	}

	if cfg.Engine.URL != "" {
		mode, err := local.ParseMode(cfg.Engine.Mode)
		if err != nil {
			return nil, err
		}
		engine := local.NewRawEngine(cfg.Engine.URL, cfg.Engine.Model, cfg.Engine.Timeout, logger.Named("engine"))
		adapter, err := local.New(engine, mode, logger.Named("local"))
		if err != nil {
			return nil, fmt.Errorf("could not create local adapter: %w", err)
		}
		adapters = append(adapters, adapter)
	} else {
		logger.Warn("no engine url configured, /chat is unavailable")
	}

	return dispatch.NewRegistry(adapters...), nil
}

// NewRecorder opens the transcript store described by cfg, or returns nil
// when recording is disabled.
func NewRecorder(cfg *config.Config, logger *zap.Logger) (*transcript.Recorder, error) {
	if !cfg.Transcript.Enabled {
		return nil, nil
	}
	storer, err := transcript.Open(cfg.Transcript.Backend, cfg.Transcript.Path)
	if err != nil {
		return nil, fmt.Errorf("could not open transcript store: %w", err)
	}
	logger.Info("recording transcripts",
		zap.String("backend", cfg.Transcript.Backend),
		zap.String("path", cfg.Transcript.Path),
	)
	return transcript.NewRecorder(storer, logger.Named("transcript")), nil
}
