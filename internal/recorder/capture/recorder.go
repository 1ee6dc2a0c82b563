// Package capture implements the Recorder interface by driving a Chrome
// instance on an X display with chromedp while ffmpeg grabs the display and
// the job's pulse sink into an mp4.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/webreel/webreel/internal/recorder"
)

// Config controls the capture pipeline.
type Config struct {
	// Display is the X display used in sequential mode; pool jobs use the
	// display carried in their worker resources instead.
	Display int
	// FFmpegPath overrides the ffmpeg binary (default "ffmpeg").
	FFmpegPath string
	// NavTimeout bounds page load before the grab starts.
	NavTimeout time.Duration
}

const (
	defaultDisplay    = 99
	defaultNavTimeout = 30 * time.Second
)

// Recorder records web pages to mp4 files.
type Recorder struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a Recorder.
func New(cfg Config, logger *zap.Logger) *Recorder {
	if cfg.Display <= 0 {
		cfg.Display = defaultDisplay
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = defaultNavTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{cfg: cfg, logger: logger}
}

// Record opens the page on the job's display, waits for it to become ready,
// then grabs the display and audio sink for the configured duration.
func (r *Recorder) Record(ctx context.Context, job recorder.JobContext) error {
	display := r.cfg.Display
	audioSource := "default"
	if job.Worker != nil {
		display = job.Worker.DisplayStart
		audioSource = job.Worker.SinkName + ".monitor"
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", false),
		chromedp.Flag("kiosk", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
		chromedp.WindowSize(job.Options.Width, job.Options.Height),
		chromedp.Env(fmt.Sprintf("DISPLAY=:%d", display)),
	)
	if job.Options.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(job.Options.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	navCtx, cancelNav := context.WithTimeout(tabCtx, r.cfg.NavTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDeviceMetricsOverride(
				int64(job.Options.Width), int64(job.Options.Height), 1, false,
			).Do(ctx)
		}),
		chromedp.Navigate(job.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("open page: %w", err)
	}

	r.logger.Debug("page ready, starting grab",
		zap.String("label", job.Label),
		zap.Int("display", display),
		zap.String("audio_source", audioSource),
	)
	if err := r.grab(ctx, job, display, audioSource); err != nil {
		return err
	}
	return nil
}

func (r *Recorder) grab(ctx context.Context, job recorder.JobContext, display int, audioSource string) error {
	args := []string{
		"-y",
		"-f", "x11grab",
		"-video_size", fmt.Sprintf("%dx%d", job.Options.Width, job.Options.Height),
		"-framerate", strconv.Itoa(job.Options.Framerate),
		"-i", fmt.Sprintf(":%d", display),
		"-f", "pulse",
		"-i", audioSource,
		"-t", strconv.FormatFloat(job.Options.Duration.Seconds(), 'f', -1, 64),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		job.OutputPath,
	}

	cmd := exec.CommandContext(ctx, r.cfg.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg grab: %w: %s", err, lastLine(&stderr))
	}
	return nil
}

// lastLine extracts the final non-empty stderr line, which is where ffmpeg
// puts its actual complaint.
func lastLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
