// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exposes a [Collector] as a [prometheus.Collector].
// Values are read from a fresh snapshot on every scrape.
type PrometheusCollector struct {
	source *Collector

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	loads       *prometheus.Desc
	errors      *prometheus.Desc
	hitRate     *prometheus.Desc
	loadTime    *prometheus.Desc
	errorRate   *prometheus.Desc
	coverage    *prometheus.Desc
	localeUsage *prometheus.Desc
	localeCover *prometheus.Desc
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector returns a Prometheus view of c with metric names under namespace.
func NewPrometheusCollector(c *Collector, namespace string) *PrometheusCollector {
	const subsystem = "i18n_cache"

	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}

	return &PrometheusCollector{
		source:      c,
		hits:        desc("hits_total", "Lookups served from the cache."),
		misses:      desc("misses_total", "Lookups that required a load."),
		loads:       desc("loads_total", "Successful message loads."),
		errors:      desc("errors_total", "Failed message loads."),
		hitRate:     desc("hit_ratio", "Cache hits divided by lookups."),
		loadTime:    desc("load_time_milliseconds", "Mean duration of recent loads."),
		errorRate:   desc("error_ratio", "Failed loads divided by attempted loads."),
		coverage:    desc("translation_coverage_ratio", "Mean translation coverage across locales."),
		localeUsage: desc("locale_requests_total", "Message requests per locale.", "locale"),
		localeCover: desc("locale_translation_coverage_ratio", "Latest translation coverage per locale.", "locale"),
	}
}

// Describe implements [prometheus.Collector].
func (p *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		p.hits, p.misses, p.loads, p.errors,
		p.hitRate, p.loadTime, p.errorRate, p.coverage,
		p.localeUsage, p.localeCover,
	} {
		ch <- d
	}
}

// Collect implements [prometheus.Collector].
func (p *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	stats := p.source.DetailedStats()
	m := stats.Snapshot

	ch <- prometheus.MustNewConstMetric(p.hits, prometheus.CounterValue, float64(m.CacheHits))
	ch <- prometheus.MustNewConstMetric(p.misses, prometheus.CounterValue, float64(m.CacheMisses))
	ch <- prometheus.MustNewConstMetric(p.loads, prometheus.CounterValue, float64(m.TotalLoads))
	ch <- prometheus.MustNewConstMetric(p.errors, prometheus.CounterValue, float64(m.TotalErrors))
	ch <- prometheus.MustNewConstMetric(p.hitRate, prometheus.GaugeValue, m.CacheHitRate)
	ch <- prometheus.MustNewConstMetric(p.loadTime, prometheus.GaugeValue, m.LoadTime)
	ch <- prometheus.MustNewConstMetric(p.errorRate, prometheus.GaugeValue, m.ErrorRate)
	ch <- prometheus.MustNewConstMetric(p.coverage, prometheus.GaugeValue, m.TranslationCoverage)

	for locale, count := range m.LocaleUsage {
		ch <- prometheus.MustNewConstMetric(p.localeUsage, prometheus.CounterValue, float64(count), locale)
	}

	for locale, ratio := range stats.Coverage {
		ch <- prometheus.MustNewConstMetric(p.localeCover, prometheus.GaugeValue, ratio, locale)
	}
}
