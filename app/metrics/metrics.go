// Package metrics records the outcome of one epgfetch run in a private
// Prometheus registry. A batch job has nothing to scrape, so the registry is
// pushed to a Pushgateway once the run finishes.
//
// Metrics:
//
//	epgfetch_feed_requests_total{result}      feed lookups: fetched, cached, failed, skipped
//	epgfetch_programmes_stored_total{channel} rows written per channel
//	epgfetch_programmes_dropped_total         records rejected by the parser
//	epgfetch_channels_total{outcome}          channels by outcome: synced, failed, untouched
//	epgfetch_run_duration_seconds             wall time of the last run
//	epgfetch_last_success_timestamp_seconds   unix time of the last successful run
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	ResultFetched = "fetched"
	ResultCached  = "cached"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"

	OutcomeSynced    = "synced"
	OutcomeFailed    = "failed"
	OutcomeUntouched = "untouched"

	DefaultJob = "epgfetch"
)

type Recorder struct {
	registry *prometheus.Registry

	feedRequests      *prometheus.CounterVec
	programmesStored  *prometheus.CounterVec
	programmesDropped prometheus.Counter
	channels          *prometheus.CounterVec
	runDuration       prometheus.Gauge
	lastSuccess       prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		feedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epgfetch_feed_requests_total",
			Help: "Feed lookups by result.",
		}, []string{"result"}),
		programmesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epgfetch_programmes_stored_total",
			Help: "Programme rows written to the store.",
		}, []string{"channel"}),
		programmesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epgfetch_programmes_dropped_total",
			Help: "Programme records dropped for an empty title or a non-positive duration.",
		}),
		channels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epgfetch_channels_total",
			Help: "Channels processed by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "epgfetch_run_duration_seconds",
			Help: "Duration of the last run in seconds.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "epgfetch_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful run.",
		}),
	}

	r.registry.MustRegister(
		r.feedRequests,
		r.programmesStored,
		r.programmesDropped,
		r.channels,
		r.runDuration,
		r.lastSuccess,
	)

	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) FeedRequest(result string) {
	r.feedRequests.WithLabelValues(result).Inc()
}

func (r *Recorder) ProgrammesStored(channel string, n int) {
	r.programmesStored.WithLabelValues(channel).Add(float64(n))
}

func (r *Recorder) ProgrammesDropped(n int) {
	r.programmesDropped.Add(float64(n))
}

func (r *Recorder) Channel(outcome string) {
	r.channels.WithLabelValues(outcome).Inc()
}

// RunFinished records the run duration and, on success, the completion time.
func (r *Recorder) RunFinished(duration time.Duration, success bool) {
	r.runDuration.Set(duration.Seconds())
	if success {
		r.lastSuccess.SetToCurrentTime()
	}
}

// Push sends every metric of the registry to the Pushgateway at url, replacing
// the previous push of the same job and instance.
func (r *Recorder) Push(ctx context.Context, url, job, instance string) error {
	if job == "" {
		job = DefaultJob
	}

	pusher := push.New(url, job).Gatherer(r.registry)
	if instance != "" {
		pusher = pusher.Grouping("instance", instance)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}

	return nil
}
