package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webreel/webreel/internal/batch"
	"github.com/webreel/webreel/internal/progress"
	"github.com/webreel/webreel/internal/progress/sinks"
	"github.com/webreel/webreel/internal/recorder"
	"github.com/webreel/webreel/internal/store"
	"github.com/webreel/webreel/internal/store/postgres"
)

// newRecordCmd creates the 'record' subcommand, which records every URL in
// the given list file and prints a per-URL summary when the batch finishes.
func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <url-file>",
		Short: "Record each URL in a list file to an mp4",
		Long: `Reads a URL list file (one URL per line, blank lines and #-comments
skipped) and records each page. With --parallel the batch runs through a
bounded worker pool; results keep the input order either way.`,
		Args: cobra.ExactArgs(1),
		RunE: runRecordCommand,
	}

	cmd.Flags().Bool("parallel", false, "run the batch through the worker pool")
	cmd.Flags().Int("concurrency", 0, "worker pool size (defaults to record.concurrency)")
	cmd.Flags().String("output-dir", "", "directory for recordings (defaults to record.output_dir)")

	return cmd
}

func runRecordCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	parallel, _ := cmd.Flags().GetBool("parallel")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	if !cmd.Flags().Changed("parallel") {
		parallel = cfg.Record.Parallel
	}
	if concurrency <= 0 {
		concurrency = cfg.Record.Concurrency
	}
	if outputDir == "" {
		outputDir = cfg.Record.OutputDir
	}

	urls, err := recorder.LoadURLFile(args[0])
	if err != nil {
		return err
	}
	logger.Info("url list loaded", zap.String("file", args[0]), zap.Int("urls", len(urls)))

	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("events")))
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

	runner := batch.NewRunner(buildRecorder(), buildProber(), hub, hooks, batch.Config{
		OutputDir: outputDir,
		Options:   captureOptions(),
	}, logger.Named("batch"))

	submitted := time.Now().UTC()
	var results recorder.BatchResult
	if parallel {
		results, err = runner.RunParallel(ctx, urls, concurrency)
	} else {
		results, err = runner.RunSequential(ctx, urls)
	}
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}

	batch.WriteSummary(os.Stdout, results)

	if cfg.DB.DSN != "" {
		if err := persistBatch(ctx, runner.BatchID(), outputDir, urls, concurrency, parallel, submitted, results); err != nil {
			logger.Error("persist batch failed", zap.Error(err))
		}
	}
	return nil
}

// persistBatch saves the finished batch to Postgres for later lookup.
func persistBatch(
	ctx context.Context,
	batchID uuid.UUID,
	outputDir string,
	urls []string,
	concurrency int,
	parallel bool,
	submitted time.Time,
	results recorder.BatchResult,
) error {
	batches, err := postgres.NewBatchStore(ctx, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("init batch store: %w", err)
	}
	defer batches.Close()

	if !parallel {
		concurrency = 1
	}
	finished := time.Now().UTC()
	rec := store.Batch{
		ID:          batchID,
		Status:      store.BatchStatusCompleted,
		Submitted:   submitted,
		Started:     &submitted,
		Finished:    &finished,
		URLs:        urls,
		Concurrency: concurrency,
		OutputDir:   outputDir,
		Results:     results,
	}
	if err := batches.SaveBatch(ctx, rec); err != nil {
		return fmt.Errorf("save batch: %w", err)
	}
	return nil
}
