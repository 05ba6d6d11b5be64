package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyrefactor_pass_seconds",
		Help:    "Time spent in each analysis pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"pass"})

	FilesAnalyzedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyrefactor_files_analyzed_total",
		Help: "Total number of files analyzed, by outcome.",
	}, []string{"outcome"})

	ReferencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyrefactor_references_total",
		Help: "Total number of references registered, by resolution status.",
	}, []string{"status"})

	SymbolsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyrefactor_symbols",
		Help: "Number of symbols in the latest bundle.",
	})

	AnalysisComplete = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyrefactor_analysis_complete",
		Help: "1 when the latest bundle parsed every file, 0 otherwise.",
	})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyrefactor_cache_lookups_total",
		Help: "Pass 1 cache lookups, by result.",
	}, []string{"result"})

	RenameEditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyrefactor_rename_edits_total",
		Help: "Total number of edits produced by rename requests.",
	})

	RenameRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyrefactor_rename_requests_total",
		Help: "Rename and impact requests, by error code or ok.",
	}, []string{"operation", "result"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyrefactor_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyrefactor_rebuilds_total",
		Help: "Total number of bundles rebuilt in watch mode.",
	})
)
