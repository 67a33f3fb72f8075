package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "ai_news_bot"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	runs         *prom.CounterVec
	feedFetches  *prom.CounterVec
	entries      prom.Gauge
	runDuration  prom.Histogram
	lastDispatch prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal outcome",
		}, []string{"outcome"}),
		feedFetches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_total",
			Help:      "Feed fetches by source and result",
		}, []string{"source", "result"}),
		entries: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "entries_collected",
			Help:      "Entries handed to the composer in the last run",
		}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a pipeline run",
			Buckets:   prom.DefBuckets,
		}),
		lastDispatch: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_dispatch_timestamp_seconds",
			Help:      "Unix time of the last successful dispatch",
		}),
	}
	reg.MustRegister(pr.runs, pr.feedFetches, pr.entries, pr.runDuration, pr.lastDispatch)
	return pr
}

func (p *PrometheusRecorder) IncRun(outcome string) {
	if p == nil {
		return
	}
	p.runs.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncFeedFetch(source string, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.feedFetches.WithLabelValues(source, res).Inc()
}

func (p *PrometheusRecorder) SetEntriesCollected(n int) {
	if p == nil {
		return
	}
	p.entries.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetLastDispatch(t time.Time) {
	if p == nil {
		return
	}
	p.lastDispatch.Set(float64(t.Unix()))
}

// WriteTextfile writes everything in g to path in the text exposition format.
func WriteTextfile(path string, g prom.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics dir: %w", err)
	}
	if err := prom.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
