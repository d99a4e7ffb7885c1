/*
metrics.go - Prometheus instrumentation for the pricing surface

PURPOSE:
  Counts and times price runs wherever they happen (the price endpoint
  and the reprice scheduler both record through the same helper) so
  dashboards see one consistent series. Exposed at GET /metrics.

METRICS:
  quote_price_runs_total              counter, labeled by trigger
  quote_run_lines_total               counter, labeled by cost method
  quote_price_run_duration_seconds    histogram

SEE ALSO:
  - handlers.go: PriceProject endpoint
  - scheduler.go: background reprice sweep
*/
package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/warp/quote-engine/quote"
)

// Run triggers, for the price-runs counter label.
const (
	triggerAPI       = "api"
	triggerScheduler = "scheduler"
	triggerScenario  = "scenario"
)

var (
	priceRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_price_runs_total",
		Help: "Completed price runs, by what triggered them.",
	}, []string{"trigger"})

	runLinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_run_lines_total",
		Help: "Priced run lines, by cost resolution method.",
	}, []string{"method"})

	priceRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quote_price_run_duration_seconds",
		Help:    "Wall time of one project price run, including persistence.",
		Buckets: prometheus.DefBuckets,
	})
)

// recordRun records one completed price run.
func recordRun(trigger string, lines []quote.PriceRunLine, elapsed time.Duration) {
	priceRunsTotal.WithLabelValues(trigger).Inc()
	priceRunDuration.Observe(elapsed.Seconds())
	for _, line := range lines {
		runLinesTotal.WithLabelValues(line.Method).Inc()
	}
}
