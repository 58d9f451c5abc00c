// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package metrics

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Report thresholds.
const (
	goodHitRate      = 0.8
	fairHitRate      = 0.5
	slowLoadMillis   = 500
	highErrorRate    = 0.1
	lowCoverageRatio = 0.8
	topLocaleCount   = 5
)

// Grades assigned by [Collector.PerformanceReport].
const (
	GradeGood = "good"
	GradeFair = "fair"
	GradePoor = "poor"
)

// LocaleCount pairs a locale with its access count.
type LocaleCount struct {
	Locale string `json:"locale"`
	Count  int64  `json:"count"`
}

// PerformanceReport is a human-oriented summary of the collected metrics.
type PerformanceReport struct {
	GeneratedAt     time.Time     `json:"generatedAt"`
	Period          time.Duration `json:"period"`
	Summary         string        `json:"summary"`
	Grade           string        `json:"grade"`
	Metrics         Snapshot      `json:"metrics"`
	TopLocales      []LocaleCount `json:"topLocales"`
	RecentErrors    []ErrorRecord `json:"recentErrors"`
	Recommendations []string      `json:"recommendations"`
}

// PerformanceReport grades the current metrics and suggests improvements.
func (c *Collector) PerformanceReport() PerformanceReport {
	stats := c.DetailedStats()
	m := stats.Snapshot

	report := PerformanceReport{
		GeneratedAt:     c.now(),
		Metrics:         m,
		TopLocales:      topLocales(m.LocaleUsage, topLocaleCount),
		Recommendations: []string{},
	}
	report.Period = report.GeneratedAt.Sub(stats.Since)

	recent := stats.RecentErrors
	if len(recent) > topLocaleCount {
		recent = recent[len(recent)-topLocaleCount:]
	}

	report.RecentErrors = recent

	problems := 0

	if m.TotalLookups > 0 && m.CacheHitRate < goodHitRate {
		problems++
		report.Recommendations = append(report.Recommendations,
			"Cache hit rate is below 80%: preload frequently used locales or raise the cache size")
	}

	if m.LoadTime > slowLoadMillis {
		problems++
		report.Recommendations = append(report.Recommendations,
			"Average load time exceeds 500ms: split catalogues into critical and deferred parts")
	}

	if m.ErrorRate > highErrorRate {
		problems++
		report.Recommendations = append(report.Recommendations,
			"More than 10% of loads fail: check the message source")
	}

	if len(stats.Coverage) > 0 && m.TranslationCoverage < lowCoverageRatio {
		problems++
		report.Recommendations = append(report.Recommendations,
			"Translation coverage is below 80%: fill in missing messages")
	}

	switch {
	case problems == 0 && (m.TotalLookups == 0 || m.CacheHitRate >= goodHitRate):
		report.Grade = GradeGood
	case problems <= 1 && (m.TotalLookups == 0 || m.CacheHitRate >= fairHitRate):
		report.Grade = GradeFair
	default:
		report.Grade = GradePoor
	}

	report.Summary = fmt.Sprintf(
		"%d lookups, hit rate %.1f%%, mean load %.1fms, error rate %.1f%%, coverage %.1f%%",
		m.TotalLookups, m.CacheHitRate*100, m.LoadTime, m.ErrorRate*100, m.TranslationCoverage*100,
	)

	return report
}

func topLocales(usage map[string]int64, n int) []LocaleCount {
	out := make([]LocaleCount, 0, len(usage))
	for locale, count := range usage {
		out = append(out, LocaleCount{Locale: locale, Count: count})
	}

	slices.SortFunc(out, func(a, b LocaleCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Locale, b.Locale)
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}
