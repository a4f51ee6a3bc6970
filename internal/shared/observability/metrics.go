package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	FilesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astcensus_files_processed_total",
		Help: "Files processed by the batch aggregator, by language and outcome.",
	}, []string{"language", "status"})

	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astcensus_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	NodesCounted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astcensus_nodes_counted_total",
		Help: "Non-comment syntax nodes counted, by spec.",
	}, []string{"spec"})

	SourceLinesCounted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astcensus_source_lines_total",
		Help: "Source lines carrying code, by spec.",
	}, []string{"spec"})

	SpecFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astcensus_spec_failures_total",
		Help: "Specs that finished with at least one error, by spec.",
	}, []string{"spec"})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "astcensus_batch_seconds",
		Help:    "Wall time of a complete batch run.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astcensus_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
