// Package server exposes the conversational endpoints over HTTP. Every
// conversational request is answered with an envelope; transport errors are
// reserved for bodies that are not JSON at all.
package server

import (
	"context"
	"net"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/config"
	"github.com/papercomputeco/murasame/pkg/dispatch"
	"github.com/papercomputeco/murasame/pkg/envelope"
	"github.com/papercomputeco/murasame/pkg/metrics"
	"github.com/papercomputeco/murasame/pkg/transcript"
)

// bodyLimit leaves room for data-URI images in /vision requests.
const bodyLimit = 32 << 20

// Options are the collaborators of a Server.
type Options struct {
	// Listen overrides server.listen from the configuration when set.
	Listen string

	Dispatcher *dispatch.Dispatcher

	// Recorder stores successful conversations; nil disables the transcript
	// and its inspection endpoints.
	Recorder *transcript.Recorder

	// Clock stamps envelopes; nil means time.Now.
	Clock func() time.Time
}

// Server is the HTTP front of the assistant backend. It holds no
// conversation state: clients send the full history with every request.
type Server struct {
	store      *config.Store
	listen     string
	dispatcher *dispatch.Dispatcher
	recorder   *transcript.Recorder
	envelopes  *envelope.Builder
	logger     *zap.Logger
	app        *fiber.App
}

// New creates a Server reading per-request settings from store.
func New(store *config.Store, opts Options, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
	})

	listen := opts.Listen
	if listen == "" {
		listen = store.Current().Server.Listen
	}

	s := &Server{
		store:      store,
		listen:     listen,
		dispatcher: opts.Dispatcher,
		recorder:   opts.Recorder,
		envelopes:  envelope.NewBuilder(opts.Clock),
		logger:     logger,
		app:        app,
	}

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(metrics.Middleware())

	// Conversational endpoints; /qwen3 and /qwenvl are legacy names.
	app.Post("/chat", s.handleChat)
	app.Post("/qa", s.handleQA)
	app.Post("/qwen3", s.handleQA)
	app.Post("/vision", s.handleVision)
	app.Post("/qwenvl", s.handleVision)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if s.recorder != nil {
		app.Get("/dag/stats", s.handleDAGStats)
		app.Get("/dag/node/:hash", s.handleGetNode)
		app.Get("/dag/history", s.handleListHistories)
		app.Get("/dag/history/:hash", s.handleGetHistory)
		app.Post("/dag/nodes", s.handlePutNodes)
	}

	return s
}

// Run serves on the configured listen address until Shutdown.
func (s *Server) Run() error {
	s.logger.Info("starting server",
		zap.String("listen", s.listen),
		zap.Bool("transcript", s.recorder != nil),
	)
	return s.app.Listen(s.listen)
}

// RunWithListener serves on ln until Shutdown.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting server",
		zap.String("listen", ln.Addr().String()),
		zap.Bool("transcript", s.recorder != nil),
	)
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Close releases the transcript store.
func (s *Server) Close() error {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Close()
}
