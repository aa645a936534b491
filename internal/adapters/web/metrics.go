package web

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/corey/dropcache/internal/adapters/socket"
)

var (
	entriesDesc = prometheus.NewDesc(
		"dropcache_entries",
		"Number of monster records held in the cache",
		nil, nil,
	)
	keywordsDesc = prometheus.NewDesc(
		"dropcache_keywords",
		"Number of distinct keywords in the search index",
		nil, nil,
	)
	searchesDesc = prometheus.NewDesc(
		"dropcache_searches_total",
		"Total searches by outcome",
		[]string{"outcome"}, nil,
	)
	removalsDesc = prometheus.NewDesc(
		"dropcache_removals_total",
		"Total entries dropped by the cache itself, by reason",
		[]string{"reason"}, nil,
	)
	hitRateDesc = prometheus.NewDesc(
		"dropcache_hit_rate",
		"Fraction of searches answered from the cache",
		nil, nil,
	)
	lastRefreshDesc = prometheus.NewDesc(
		"dropcache_last_refresh_timestamp_seconds",
		"Unix time of the most recent cache write",
		nil, nil,
	)
)

// StatsCollector is a custom Prometheus collector that reads cache stats
// from the daemon on each scrape.
type StatsCollector struct {
	queries socket.AppQueries
}

// Describe sends the metric descriptors to the channel.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- entriesDesc
	ch <- keywordsDesc
	ch <- searchesDesc
	ch <- removalsDesc
	ch <- hitRateDesc
	ch <- lastRefreshDesc
}

// Collect emits the current cache stats.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.queries == nil {
		return
	}
	st := c.queries.Stats()

	ch <- prometheus.MustNewConstMetric(entriesDesc, prometheus.GaugeValue, float64(st.TotalEntries))
	ch <- prometheus.MustNewConstMetric(keywordsDesc, prometheus.GaugeValue, float64(st.KeywordCount))
	ch <- prometheus.MustNewConstMetric(searchesDesc, prometheus.CounterValue, float64(st.CacheHits), "hit")
	ch <- prometheus.MustNewConstMetric(searchesDesc, prometheus.CounterValue, float64(st.CacheMisses), "miss")
	ch <- prometheus.MustNewConstMetric(removalsDesc, prometheus.CounterValue, float64(st.Evictions), "evicted")
	ch <- prometheus.MustNewConstMetric(removalsDesc, prometheus.CounterValue, float64(st.Expirations), "expired")
	ch <- prometheus.MustNewConstMetric(hitRateDesc, prometheus.GaugeValue, st.CacheHitRate)

	var refreshed float64
	if !st.LastRefresh.IsZero() {
		refreshed = float64(st.LastRefresh.UnixNano()) / 1e9
	}
	ch <- prometheus.MustNewConstMetric(lastRefreshDesc, prometheus.GaugeValue, refreshed)
}

// Metrics owns the registry served on /metrics. It is per-server rather
// than the process default so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry
	latency  *prometheus.HistogramVec
	ingested *prometheus.CounterVec
}

// NewMetrics registers the stats collector, search latency histogram,
// ingestion counter and the Go runtime collectors.
func NewMetrics(queries socket.AppQueries) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dropcache_search_duration_seconds",
			Help:    "Search latency by outcome",
			Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
		}, []string{"outcome"}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dropcache_ingested_titles_total",
			Help: "Titles processed by ingestion runs, by result",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		&StatsCollector{queries: queries},
		m.latency,
		m.ingested,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSearch records one search's latency.
func (m *Metrics) ObserveSearch(hit bool, elapsed time.Duration) {
	m.latency.WithLabelValues(outcome(hit)).Observe(elapsed.Seconds())
}

// ObserveIngest adds one run's totals to the ingestion counter.
func (m *Metrics) ObserveIngest(r socket.IngestResult) {
	m.ingested.WithLabelValues("stored").Add(float64(r.Stored))
	m.ingested.WithLabelValues("skipped").Add(float64(r.Skipped))
	m.ingested.WithLabelValues("failed").Add(float64(len(r.Failed)))
}

func outcome(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
