package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder keeps per-process counters in a private registry so they can be
// dumped for node_exporter's textfile collector after a run.
type Recorder struct {
	registry   *prometheus.Registry
	fetches    *prometheus.CounterVec
	fetched    *prometheus.CounterVec
	subscribes *prometheus.CounterVec
	exports    *prometheus.CounterVec
	lastRun    prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "subsync",
			Name:      "fetches_total",
			Help:      "Fetch operations by listing and result.",
		}, []string{"listing", "result"}),
		fetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "subsync",
			Name:      "fetched_subreddits_total",
			Help:      "Subreddit names retrieved by listing.",
		}, []string{"listing"}),
		subscribes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "subsync",
			Name:      "subscribe_attempts_total",
			Help:      "Subscribe calls by result.",
		}, []string{"result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "subsync",
			Name:      "exports_total",
			Help:      "Export attempts by format and result.",
		}, []string{"format", "result"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "subsync",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
	}
	r.registry.MustRegister(r.fetches, r.fetched, r.subscribes, r.exports, r.lastRun)
	return r
}

func (r *Recorder) Fetch(listing string, count int, ok bool) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(listing, result(ok)).Inc()
	if ok {
		r.fetched.WithLabelValues(listing).Add(float64(count))
	}
}

func (r *Recorder) Subscribe(ok bool) {
	if r == nil {
		return
	}
	r.subscribes.WithLabelValues(result(ok)).Inc()
}

func (r *Recorder) Export(format string, ok bool) {
	if r == nil {
		return
	}
	r.exports.WithLabelValues(format, result(ok)).Inc()
}

func (r *Recorder) RunCompleted() {
	if r == nil {
		return
	}
	r.lastRun.SetToCurrentTime()
}

// WriteTextfile writes the current values in the text exposition format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
