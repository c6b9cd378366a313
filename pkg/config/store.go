package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/metrics"
)

// Store holds the current configuration snapshot. Readers take one snapshot
// per request with Current and use it throughout; reloads swap the pointer
// and never mutate a published Config.
type Store struct {
	path    string
	environ map[string]string
	current atomic.Pointer[Config]
	logger  *zap.Logger
}

// NewStore loads the configuration at path (empty for defaults and
// environment only) and returns a Store holding it.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	return NewStoreWithEnv(path, nil, logger)
}

// NewStoreWithEnv is NewStore reading overrides from environ when non-nil.
func NewStoreWithEnv(path string, environ map[string]string, logger *zap.Logger) (*Store, error) {
	cfg, err := LoadWithEnv(path, environ)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, environ: environ, logger: logger}
	s.current.Store(cfg)
	return s, nil
}

// StaticStore returns a Store that always holds cfg and cannot reload.
func StaticStore(cfg *Config) *Store {
	s := &Store{logger: zap.NewNop()}
	s.current.Store(cfg)
	return s
}

// Current returns the current snapshot. Callers must not modify it.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Path returns the watched configuration file, empty when there is none.
func (s *Store) Path() string {
	return s.path
}

// Reload loads the file again and publishes the result. On failure the
// previous snapshot stays current.
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("no configuration file to reload")
	}

	cfg, err := LoadWithEnv(s.path, s.environ)
	if err != nil {
		metrics.ConfigReloadsTotal.WithLabelValues("error").Inc()
		return err
	}
	s.current.Store(cfg)
	metrics.ConfigReloadsTotal.WithLabelValues("ok").Inc()

	s.logger.Info("configuration reloaded",
		zap.String("path", s.path),
		zap.Bool("hosted_credential", cfg.Hosted.APIKey != ""),
	)
	return nil
}

// Watch reloads the configuration whenever its file is written or replaced,
// until ctx is done. The parent directory is watched so editors that save
// by renaming a temporary file are seen too.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	target, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	s.logger.Info("watching configuration", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Error("configuration reload failed, keeping previous",
					zap.String("path", target),
					zap.Error(err),
				)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
