// Package metrics counts dictation turns, command actions and backend latency
// for one owner process. Each process is short-lived, so collected series are
// pushed to a Prometheus Pushgateway when the turn ends.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rbright/murmur/internal/config"
)

const namespace = "murmur"

// Recorder owns a private registry. All methods are safe on a nil Recorder.
type Recorder struct {
	registry *prometheus.Registry

	turns        *prometheus.CounterVec
	turnDuration prometheus.Histogram
	actions      *prometheus.CounterVec
	backend      *prometheus.HistogramVec

	pushURL string
	job     string
	logger  *slog.Logger
}

// New registers the murmur collectors. Pushing only happens when cfg.Enable
// is set and a Pushgateway URL is configured.
func New(cfg config.MetricsConfig, logger *slog.Logger) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Dictation turns by outcome.",
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time from key press to turn completion.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Executed command actions by kind and result.",
		}, []string{"kind", "result"}),
		backend: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_seconds",
			Help:      "Latency of STT, LLM, NER and TTS requests.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"backend", "result"}),
		job:    strings.TrimSpace(cfg.Job),
		logger: logger,
	}
	if cfg.Enable {
		r.pushURL = strings.TrimSpace(cfg.PushgatewayURL)
	}
	if r.job == "" {
		r.job = namespace
	}

	r.registry.MustRegister(r.turns, r.turnDuration, r.actions, r.backend)
	return r
}

// Registry exposes the private registry for tests and ad-hoc gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveTurn records one finished dictation turn.
func (r *Recorder) ObserveTurn(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.turns.WithLabelValues(outcome).Inc()
	r.turnDuration.Observe(elapsed.Seconds())
}

// ObserveAction records one executed command action.
func (r *Recorder) ObserveAction(kind string, ok bool) {
	if r == nil {
		return
	}
	r.actions.WithLabelValues(kind, resultLabel(ok)).Inc()
}

// ObserveBackend records one request to an external service.
func (r *Recorder) ObserveBackend(backend string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.backend.WithLabelValues(backend, resultLabel(err == nil)).Observe(elapsed.Seconds())
}

// Push sends the collected series to the Pushgateway. It is a no-op when
// pushing is not configured.
func (r *Recorder) Push(ctx context.Context) error {
	if r == nil || r.pushURL == "" {
		return nil
	}
	err := push.New(r.pushURL, r.job).
		Gatherer(r.registry).
		AddContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", r.pushURL, err)
	}
	if r.logger != nil {
		r.logger.Debug("metrics pushed", "url", r.pushURL, "job", r.job)
	}
	return nil
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
