// Package cmd defines and implements the CLI commands for the webreel executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webreel/webreel/internal/archive"
	"github.com/webreel/webreel/internal/archive/gcs"
	"github.com/webreel/webreel/internal/batch"
	"github.com/webreel/webreel/internal/clock/system"
	"github.com/webreel/webreel/internal/config"
	"github.com/webreel/webreel/internal/logging"
	collyprobe "github.com/webreel/webreel/internal/probe/colly"
	pubsubpublisher "github.com/webreel/webreel/internal/publisher/pubsub"
	"github.com/webreel/webreel/internal/recorder"
	"github.com/webreel/webreel/internal/recorder/capture"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webreel",
		Short: "Batch website-to-video recorder.",
		Long: `webreel drives a list of URLs through a screen-capture pipeline,
producing one mp4 per URL. Batches run sequentially or through a bounded
worker pool with per-worker display and audio-sink isolation.`,
		SilenceUsage: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err = logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default uses built-in defaults plus WEBREEL_* env vars)")

	cmd.AddCommand(newRecordCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "webreel: %v\n", err)
		os.Exit(1)
	}
}

// captureOptions translates config into the per-job capture settings.
func captureOptions() recorder.CaptureOptions {
	return recorder.CaptureOptions{
		Duration:  cfg.CaptureDuration(),
		Width:     cfg.Record.Width,
		Height:    cfg.Record.Height,
		Framerate: cfg.Record.Framerate,
		UserAgent: cfg.Record.UserAgent,
	}
}

// buildRecorder constructs the chromedp/ffmpeg capture recorder.
func buildRecorder() recorder.Recorder {
	return capture.New(capture.Config{
		Display:    cfg.Record.Display,
		FFmpegPath: cfg.Record.FFmpegPath,
	}, logger.Named("capture"))
}

// buildProber returns the preflight prober, or nil when disabled.
func buildProber() recorder.Prober {
	if !cfg.Probe.Enabled {
		return nil
	}
	return collyprobe.New(collyprobe.Config{
		UserAgent: cfg.Record.UserAgent,
		Timeout:   cfg.ProbeTimeout(),
	})
}

// buildArchiveHooks wires the GCS archiver and optional Pub/Sub notifier.
// Returns nil hooks when no bucket is configured. The returned cleanup
// closes the underlying clients and is safe to call when hooks are nil.
func buildArchiveHooks(ctx context.Context) ([]batch.Hook, func(), error) {
	noop := func() {}
	if cfg.Storage.GCSBucket == "" {
		return nil, noop, nil
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, noop, fmt.Errorf("init storage client: %w", err)
	}
	blobs, err := gcs.New(storageClient, gcs.Config{Bucket: cfg.Storage.GCSBucket})
	if err != nil {
		_ = storageClient.Close()
		return nil, noop, fmt.Errorf("init blob store: %w", err)
	}

	var notifier archive.Publisher
	var pubsubClient *pubsub.Client
	if cfg.PubSub.TopicName != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			_ = storageClient.Close()
			return nil, noop, fmt.Errorf("init pubsub client: %w", err)
		}
		notifier = pubsubpublisher.New(pubsubClient.Publisher(cfg.PubSub.TopicName))
	}

	archiver := archive.New(blobs, notifier, system.New(), archive.Config{
		Prefix: cfg.Storage.Prefix,
		Topic:  cfg.PubSub.TopicName,
	}, logger.Named("archive"))

	cleanup := func() {
		if pubsubClient != nil {
			_ = pubsubClient.Close()
		}
		_ = storageClient.Close()
	}
	return []batch.Hook{archiver}, cleanup, nil
}
