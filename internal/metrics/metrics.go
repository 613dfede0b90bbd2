// Package metrics defines the Prometheus collectors for index builds and
// queries. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

type Metrics struct {
	FilesIndexedTotal  prometheus.Counter
	WordsIndexedTotal  prometheus.Counter
	ChunksReadTotal    prometheus.Counter
	BuildDuration      prometheus.Histogram
	BuildFailuresTotal prometheus.Counter
	QueriesTotal       *prometheus.CounterVec
	QueryDuration      *prometheus.HistogramVec
	QueryResults       *prometheus.HistogramVec
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesIndexedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phrasedex_files_indexed_total",
			Help: "Total files fully read during index builds.",
		}),
		WordsIndexedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phrasedex_words_indexed_total",
			Help: "Total word occurrences inserted into the index.",
		}),
		ChunksReadTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phrasedex_chunks_read_total",
			Help: "Total non-final line chunks read from files.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "phrasedex_build_duration_seconds",
			Help:    "Index build latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		BuildFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phrasedex_build_failures_total",
			Help: "Total index builds that returned an error.",
		}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "phrasedex_queries_total",
			Help: "Total queries by mode (word, phrase, exact).",
		}, []string{"mode"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phrasedex_query_duration_seconds",
			Help:    "Query latency in seconds by mode.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"mode"}),
		QueryResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phrasedex_query_results",
			Help:    "Number of files returned per query by mode.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
		}, []string{"mode"}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phrasedex_cache_hits_total",
			Help: "Total query cache hits.",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phrasedex_cache_misses_total",
			Help: "Total query cache misses.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.FilesIndexedTotal,
			m.WordsIndexedTotal,
			m.ChunksReadTotal,
			m.BuildDuration,
			m.BuildFailuresTotal,
			m.QueriesTotal,
			m.QueryDuration,
			m.QueryResults,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
		)
	}
	return m
}

func (m *Metrics) FileIndexed() {
	if m == nil {
		return
	}
	m.FilesIndexedTotal.Inc()
}

func (m *Metrics) ChunkRead() {
	if m == nil {
		return
	}
	m.ChunksReadTotal.Inc()
}

func (m *Metrics) WordsIndexed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.WordsIndexedTotal.Add(float64(n))
}

func (m *Metrics) BuildFinished(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.BuildFailuresTotal.Inc()
		return
	}
	m.BuildDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) QueryFinished(mode string, elapsed time.Duration, results int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(mode).Inc()
	m.QueryDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.QueryResults.WithLabelValues(mode).Observe(float64(results))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// WriteText writes every family gathered from g in the Prometheus text
// exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
