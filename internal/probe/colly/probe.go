// Package collyprobe implements the preflight Prober using gocolly.
package collyprobe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config controls probe behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

const defaultTimeout = 15 * time.Second

// Prober issues one GET per URL before the expensive capture starts, so a
// dead target fails fast instead of burning a recording slot.
type Prober struct {
	cfg Config
}

// New builds a Prober.
func New(cfg Config) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Prober{cfg: cfg}
}

// Probe fetches the URL once and reports whether it is worth recording. Any
// transport error or a status >= 400 fails the probe.
func (p *Prober) Probe(_ context.Context, rawURL string) error {
	c := colly.NewCollector(colly.IgnoreRobotsTxt())
	c.SetRequestTimeout(p.cfg.Timeout)
	if p.cfg.UserAgent != "" {
		c.UserAgent = p.cfg.UserAgent
	}

	var status int
	c.OnResponse(func(resp *colly.Response) {
		status = resp.StatusCode
	})

	if err := c.Visit(rawURL); err != nil {
		return fmt.Errorf("probe %s: %w", rawURL, err)
	}
	c.Wait()

	if status >= http.StatusBadRequest {
		return fmt.Errorf("probe %s: status %d", rawURL, status)
	}
	return nil
}
