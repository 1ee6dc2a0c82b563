package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/webreel/webreel/internal/progress"
)

// PrometheusSink exports batch and recording metrics. It owns all collectors
// for batches, job completions, and capture latency.
type PrometheusSink struct {
	batchesStarted prometheus.Counter
	jobsStarted    prometheus.Counter
	jobsCompleted  *prometheus.CounterVec
	jobsRunning    prometheus.Gauge
	jobDuration    *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		batchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webreel_batches_started_total",
			Help: "Total recording batches started.",
		}),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webreel_jobs_started_total",
			Help: "Total recording jobs started.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webreel_jobs_completed_total",
			Help: "Total recording jobs completed partitioned by result.",
		}, []string{"result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webreel_jobs_running",
			Help: "Recording jobs currently in flight.",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webreel_job_duration_seconds",
			Help:    "Wall time per recording job.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"result"}),
	}
	for _, collector := range []prometheus.Collector{
		s.batchesStarted,
		s.jobsStarted,
		s.jobsCompleted,
		s.jobsRunning,
		s.jobDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch. Safe for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageBatchStart:
		s.batchesStarted.Inc()
	case progress.StageJobStart:
		s.jobsStarted.Inc()
		s.jobsRunning.Inc()
	case progress.StageJobDone:
		s.jobsRunning.Dec()
		s.jobsCompleted.WithLabelValues("success").Inc()
		s.observe(evt, "success")
	case progress.StageJobError:
		s.jobsRunning.Dec()
		s.jobsCompleted.WithLabelValues("error").Inc()
		s.observe(evt, "error")
	}
}

func (s *PrometheusSink) observe(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.jobDuration.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
