package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/trackside/testday/internal/merge"
)

// Passes counts live sync passes and what they added to the dataset.
type Passes struct {
	total    prometheus.Counter
	failed   prometheus.Counter
	added    *prometheus.CounterVec
	skipped  prometheus.Counter
	duration prometheus.Histogram
}

// NewPasses registers the live sync collectors on reg.
func NewPasses(reg prometheus.Registerer) (*Passes, error) {
	p := &Passes{
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "testday_livesync_passes_total",
			Help: "Number of live sync passes run.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "testday_livesync_failed_passes_total",
			Help: "Number of live sync passes that returned an error.",
		}),
		added: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "testday_livesync_records_added_total",
			Help: "Number of records added to the dataset by live sync, by record kind.",
		}, []string{"kind"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "testday_livesync_skipped_files_total",
			Help: "Number of files skipped with a diagnostic during live sync.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "testday_livesync_pass_duration_seconds",
			Help:    "Duration of live sync passes.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"passes":        p.total,
		"failed passes": p.failed,
		"records added": p.added,
		"skipped files": p.skipped,
		"pass duration": p.duration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register %s metric: %v", name, err)
		}
	}

	// Expose every kind from the start, even before the first addition.
	for _, kind := range []string{"testday", "run", "setup"} {
		p.added.WithLabelValues(kind)
	}
	return p, nil
}

// Observe records one pass. Stats and skipped are ignored for failed passes.
func (p *Passes) Observe(d time.Duration, stats merge.Stats, skipped int, err error) {
	p.total.Inc()
	p.duration.Observe(d.Seconds())
	if err != nil {
		p.failed.Inc()
		return
	}

	p.added.WithLabelValues("testday").Add(float64(stats.TestDaysAdded))
	p.added.WithLabelValues("run").Add(float64(stats.RunsAdded))
	p.added.WithLabelValues("setup").Add(float64(stats.SetupsAdded))
	p.skipped.Add(float64(skipped))
}
