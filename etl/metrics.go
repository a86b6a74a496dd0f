package etl

import "github.com/prometheus/client_golang/prometheus"

var (
	recordsCounter *prometheus.CounterVec
	runDuration    prometheus.Histogram
)

func init() {
	recordsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_records_total",
			Help: "Conflict records processed by the ETL pipeline, by stage.",
		},
		[]string{"stage"},
	)
	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "etl_run_duration_seconds",
			Help:    "Duration of complete ETL runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	prometheus.MustRegister(recordsCounter, runDuration)
}

const (
	stageScraped    = "scraped"
	stageCleaned    = "cleaned"
	stageSkipped    = "skipped"
	stageDuplicates = "duplicate"
	stageLoaded     = "loaded"
)
