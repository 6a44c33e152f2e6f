// Command ingestion starts the document ingestion HTTP service.
//
// The service accepts resume uploads via POST /ingest, stores them on the
// shared volume, and schedules a job message to RabbitMQ after the response
// is sent. Liveness and readiness probes are served at GET /health and
// GET /ready.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/docuflow/ai-doc-ingestion/internal/ingestion/dispatcher"
	"github.com/docuflow/ai-doc-ingestion/internal/ingestion/handler"
	"github.com/docuflow/ai-doc-ingestion/internal/ingestion/storage"
	"github.com/docuflow/ai-doc-ingestion/pkg/config"
	"github.com/docuflow/ai-doc-ingestion/pkg/health"
	"github.com/docuflow/ai-doc-ingestion/pkg/logger"
	"github.com/docuflow/ai-doc-ingestion/pkg/metrics"
	"github.com/docuflow/ai-doc-ingestion/pkg/middleware"
	"github.com/docuflow/ai-doc-ingestion/pkg/rabbitmq"
)

// main loads configuration, prepares the shared storage root and publisher,
// starts the dispatcher, and runs the HTTP and metrics servers until a
// shutdown signal arrives.
func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	placer, err := storage.NewPlacer(cfg.Storage.SharedRoot)
	if err != nil {
		slog.Error("failed to prepare shared storage", "error", err)
		os.Exit(1)
	}
	slog.Info("shared storage ready", "root", placer.Root())

	m := metrics.New()
	publisher := rabbitmq.New(cfg.Broker)

	deadLetterDir := cfg.Storage.DeadLetterDir
	if deadLetterDir != "" && !filepath.IsAbs(deadLetterDir) {
		deadLetterDir = filepath.Join(cfg.Storage.SharedRoot, deadLetterDir)
	}
	disp := dispatcher.New(publisher, dispatcher.Options{
		Workers:       cfg.Storage.Workers,
		QueueSize:     cfg.Storage.QueueSize,
		DeadLetterDir: deadLetterDir,
	}, m)
	disp.Start()

	checker := health.NewChecker()
	checker.Register("storage", func(ctx context.Context) health.ComponentHealth {
		if err := placer.Writable(); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("broker", func(ctx context.Context) health.ComponentHealth {
		if err := publisher.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(placer, disp, m, cfg.Server.MaxUploadBytes)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ingest", h.Ingest)
	mux.HandleFunc("GET /health", checker.LiveHandler())
	mux.HandleFunc("GET /ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("ingestion service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
		// Drain deferred publishes last so jobs accepted during shutdown
		// still reach the broker.
		if err := disp.Stop(shutdownCtx); err != nil {
			slog.Error("dispatcher drain timed out", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
