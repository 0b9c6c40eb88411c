// Package metrics records run counters and writes them for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Notification results.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Recorder holds the collectors of a single run. A nil Recorder discards observations.
type Recorder struct {
	registry *prometheus.Registry

	eventsFetched  *prometheus.CounterVec
	eventsNew      prometheus.Counter
	eventsUnkeyed  prometheus.Counter
	notifications  *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	lastSuccessful prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		eventsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connpass_notify_events_fetched_total",
				Help: "Events extracted from the upstream response, labeled by source.",
			},
			[]string{"source"},
		),
		eventsNew: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "connpass_notify_events_new_total",
				Help: "Events not yet present in the notified-ID store.",
			},
		),
		eventsUnkeyed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "connpass_notify_events_unkeyed_total",
				Help: "Events skipped because neither an ID nor a URL was available.",
			},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connpass_notify_notifications_total",
				Help: "Notification attempts, labeled by result.",
			},
			[]string{"result"},
		),
		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "connpass_notify_fetch_duration_seconds",
				Help:    "Duration of the upstream fetch including the courtesy delay.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30},
			},
		),
		lastSuccessful: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "connpass_notify_last_success_timestamp_seconds",
				Help: "Unix time of the last run that completed without error.",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Fetched records n events extracted by source.
func (r *Recorder) Fetched(source string, n int) {
	if r == nil {
		return
	}
	r.eventsFetched.WithLabelValues(source).Add(float64(n))
}

// Delta records the outcome of the new-vs-notified comparison.
func (r *Recorder) Delta(newEvents, unkeyed int) {
	if r == nil {
		return
	}
	r.eventsNew.Add(float64(newEvents))
	r.eventsUnkeyed.Add(float64(unkeyed))
}

// Notification records one delivery attempt.
func (r *Recorder) Notification(err error) {
	if r == nil {
		return
	}
	result := ResultSent
	if err != nil {
		result = ResultFailed
	}
	r.notifications.WithLabelValues(result).Inc()
}

// ObserveFetch records the fetch duration.
func (r *Recorder) ObserveFetch(d time.Duration) {
	if r == nil {
		return
	}
	r.fetchDuration.Observe(d.Seconds())
}

// Succeeded marks the run as completed at t.
func (r *Recorder) Succeeded(t time.Time) {
	if r == nil {
		return
	}
	r.lastSuccessful.Set(float64(t.Unix()))
}

// WriteTextfile writes every collector to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
