package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webreel/webreel/internal/api"
	"github.com/webreel/webreel/internal/clock/system"
	"github.com/webreel/webreel/internal/dispatcher"
	"github.com/webreel/webreel/internal/progress"
	"github.com/webreel/webreel/internal/progress/sinks"
	queuememory "github.com/webreel/webreel/internal/queue/memory"
	storememory "github.com/webreel/webreel/internal/store/memory"
)

// newServeCmd creates the 'serve' subcommand, which accepts batches over
// HTTP and runs them one at a time through the recording pipeline.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the batch recording HTTP service",
		Long: `Starts an HTTP server that accepts recording batches, queues them,
and runs them serially through the capture pipeline. Progress is exported
as Prometheus metrics on /metrics.`,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}

	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("events")), promSink)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Close(closeCtx)
	}()

	hooks, cleanup, err := buildArchiveHooks(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	queue := queuememory.NewQueue(cfg.Server.QueueDepth)
	batches := storememory.New()

	d := dispatcher.New(queue, batches, buildRecorder(), buildProber(), hub, hooks,
		system.New(), dispatcher.Config{
			OutputDir: cfg.Record.OutputDir,
			Options:   captureOptions(),
		}, logger.Named("dispatcher"))
	go d.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(batches, d, registry, logger.Named("api")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	queue.Close()
	logger.Info("server stopped")
	return nil
}
