// Package archive uploads finished recordings to a blob store and publishes
// completion events.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webreel/webreel/internal/recorder"
)

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, objectPath string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Config controls archiving behavior.
type Config struct {
	// Prefix is prepended to object paths in the blob store.
	Prefix string
	// Topic receives completion events; empty disables publishing.
	Topic string
}

// Archiver is a batch Hook: after each successful job it uploads the mp4
// and optionally publishes a completion event. Archive failures are logged
// and never alter the job's recorded outcome.
type Archiver struct {
	blobs     BlobStore
	publisher Publisher
	clock     recorder.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Archiver. publisher may be nil.
func New(blobs BlobStore, publisher Publisher, clock recorder.Clock, cfg Config, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		blobs:     blobs,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// AfterJob implements batch.Hook.
func (a *Archiver) AfterJob(ctx context.Context, result recorder.JobResult) {
	if !result.Success {
		return
	}
	uri, err := a.upload(ctx, result)
	if err != nil {
		a.logger.Warn("archive upload failed",
			zap.String("url", result.URL),
			zap.String("output", result.OutputPath),
			zap.Error(err),
		)
		return
	}
	a.logger.Info("recording archived", zap.String("url", result.URL), zap.String("blob_uri", uri))

	if err := a.publish(ctx, result, uri); err != nil {
		a.logger.Warn("completion publish failed", zap.String("url", result.URL), zap.Error(err))
	}
}

func (a *Archiver) upload(ctx context.Context, result recorder.JobResult) (string, error) {
	f, err := os.Open(result.OutputPath)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	uri, err := a.blobs.PutObject(ctx, a.objectPath(result), "video/mp4", f)
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return uri, nil
}

func (a *Archiver) objectPath(result recorder.JobResult) string {
	name := filepath.Base(result.OutputPath)
	prefix := strings.Trim(a.cfg.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func (a *Archiver) publish(ctx context.Context, result recorder.JobResult, uri string) error {
	if a.publisher == nil || a.cfg.Topic == "" {
		return nil
	}
	payload := map[string]any{
		"url":         result.URL,
		"index":       result.Index,
		"blob_uri":    uri,
		"duration_ms": result.Duration.Milliseconds(),
		"timestamp":   a.clock.Now().Format(time.RFC3339),
	}
	if _, err := a.publisher.Publish(ctx, a.cfg.Topic, payload); err != nil {
		return fmt.Errorf("publish payload: %w", err)
	}
	return nil
}
