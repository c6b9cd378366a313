package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/murasame/pkg/config"
	"github.com/papercomputeco/murasame/pkg/dispatch"
	"github.com/papercomputeco/murasame/pkg/logger"
	"github.com/papercomputeco/murasame/server"
)

const serveLongDesc string = `Serve the assistant backend over HTTP.

Routes /chat to the local engine, /qa to the hosted API with the
self-hosted daemon as fallback, and /vision to the hosted API or the
daemon. The configuration file is watched and reloaded on change, so
credentials and models can be rotated without a restart.

Examples:
  murasame serve
  murasame serve --config murasame.toml --listen :8080 --debug`

const serveShortDesc string = "Serve the assistant backend"

const shutdownTimeout = 30 * time.Second

type serveCommander struct {
	configPath string
	listen     string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        serveShortDesc,
		Long:         serveLongDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML, YAML or JSON configuration file")
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides server.listen)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}

	log := logger.NewLogger(c.debug || cfg.Server.Debug)
	defer func() { _ = log.Sync() }()

	store, err := config.NewStore(c.configPath, log.Named("config"))
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	cfg = store.Current()

	registry, err := server.NewRegistry(cfg, log)
	if err != nil {
		return err
	}
	recorder, err := server.NewRecorder(cfg, log)
	if err != nil {
		return err
	}

	srv := server.New(store, server.Options{
		Listen:     c.listen,
		Dispatcher: dispatch.New(registry, log.Named("dispatch")),
		Recorder:   recorder,
	}, log.Named("server"))
	defer srv.Close()

	log.Info("murasame starting",
		zap.Strings("adapters", registry.Names()),
		zap.String("daemon", cfg.Daemon.URL),
		zap.String("engine", cfg.Engine.URL),
		zap.Bool("hosted_credential", cfg.Hosted.APIKey != ""),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := srv.Run(); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return store.Watch(ctx)
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
