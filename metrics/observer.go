// Package metrics exports event deliveries as Prometheus series.
//
// Observer implements both watchable.Observer and prometheus.Collector,
// so one value is registered on both sides:
//
//	obs := metrics.NewObserver()
//	prometheus.MustRegister(obs)
//	sensor.Emitter().Register(obs)
//
// Every delivery increments watchable_events_observed_total and records
// the delay between event creation and delivery in
// watchable_event_age_seconds, labelled by event identifier.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/watchable"
)

// Observer counts and times event deliveries. It is safe for concurrent
// use and may be registered on any number of emitters at once.
type Observer struct {
	buckets []float64

	observed *prometheus.CounterVec
	age      *prometheus.HistogramVec
}

// Option configures an Observer.
type Option func(*Observer)

// WithAgeBuckets overrides the histogram buckets for event age, in
// seconds. The default spans one microsecond to ten seconds.
func WithAgeBuckets(buckets []float64) Option {
	return func(o *Observer) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

// NewObserver creates an Observer with no recorded series. Series appear
// as events with their identifiers are delivered.
func NewObserver(opts ...Option) *Observer {
	o := &Observer{
		buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.observed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchable_events_observed_total",
			Help: "Total number of events delivered to the metrics observer.",
		},
		[]string{"event"},
	)
	o.age = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchable_event_age_seconds",
			Help:    "Delay between event creation and observer delivery.",
			Buckets: o.buckets,
		},
		[]string{"event"},
	)
	return o
}

// OnChange implements watchable.Observer.
func (o *Observer) OnChange(ev watchable.AnyEvent) {
	id := string(ev.EventID())
	o.observed.WithLabelValues(id).Inc()
	o.age.WithLabelValues(id).Observe(time.Since(ev.Meta().Timestamp).Seconds())
}

// Describe implements prometheus.Collector.
func (o *Observer) Describe(ch chan<- *prometheus.Desc) {
	o.observed.Describe(ch)
	o.age.Describe(ch)
}

// Collect implements prometheus.Collector.
func (o *Observer) Collect(ch chan<- prometheus.Metric) {
	o.observed.Collect(ch)
	o.age.Collect(ch)
}
