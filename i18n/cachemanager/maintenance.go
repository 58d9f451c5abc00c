// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cachemanager

import (
	"context"
	"slices"
	"time"
)

// Health thresholds.
const (
	minHealthyHitRate    = 0.5
	maxHealthyErrorRate  = 0.1
	nearFullUtilization  = 90.0
	minHealthyCoverage   = 0.8
	optimizeBelowHitRate = 0.8
)

// Health check issues and recommendations.
const (
	IssueLowHitRate    = "命中率过低"
	IssueHighErrorRate = "错误率过高"
	IssueNearlyFull    = "缓存接近满载"
	IssueLowCoverage   = "翻译覆盖率不足"
	AdviseTunePreload  = "增加缓存大小或调整预加载策略"
	AdviseCheckSources = "检查翻译文件加载源"
	AdviseGrowCache    = "考虑增加缓存大小"
	AdviseFillMissing  = "补充缺失的翻译"
)

// HealthCheckResult is the verdict of [Manager.PerformHealthCheck].
type HealthCheckResult struct {
	IsHealthy       bool     `json:"isHealthy"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// PerformHealthCheck evaluates the current metrics and store utilisation.
// Hit rate is only judged once at least one lookup happened, and coverage
// once at least one catalogue was loaded.
func (m *Manager) PerformHealthCheck() HealthCheckResult {
	stats := m.collector.DetailedStats()
	cache := m.cache.DetailedStats()

	report := HealthCheckResult{Issues: []string{}, Recommendations: []string{}}

	flag := func(issue, advice string) {
		report.Issues = append(report.Issues, issue)
		if !slices.Contains(report.Recommendations, advice) {
			report.Recommendations = append(report.Recommendations, advice)
		}
	}

	if stats.TotalLookups > 0 && stats.CacheHitRate < minHealthyHitRate {
		flag(IssueLowHitRate, AdviseTunePreload)
	}

	if stats.ErrorRate > maxHealthyErrorRate {
		flag(IssueHighErrorRate, AdviseCheckSources)
	}

	if cache.UtilizationRate >= nearFullUtilization {
		flag(IssueNearlyFull, AdviseGrowCache)
	}

	if len(stats.Coverage) > 0 && stats.TranslationCoverage < minHealthyCoverage {
		flag(IssueLowCoverage, AdviseFillMissing)
	}

	report.IsHealthy = len(report.Issues) == 0

	if !report.IsHealthy {
		m.logger.Warn().Strs("issues", report.Issues).Msg("Message cache health check failed")
	}

	return report
}

// OptimizeResult summarises a [Manager.OptimizeCache] run.
type OptimizeResult struct {
	Removed   int           `json:"removed"`
	Preloaded []string      `json:"preloaded"`
	Failed    []LocaleError `json:"failed"`
}

// OptimizeCache drops expired entries. When the hit rate is below 0.8 it
// also preloads locales that are not cached or that are requested less than
// the average locale.
func (m *Manager) OptimizeCache(ctx context.Context) OptimizeResult {
	res := OptimizeResult{Removed: m.cache.Cleanup()}

	snap := m.collector.Metrics()
	if snap.CacheHitRate >= optimizeBelowHitRate {
		m.logOptimize(res)

		return res
	}

	candidates := m.underusedLocales(localeUsage(snap, m.PreloadConfig().Locales))
	if len(candidates) > 0 {
		pre := m.preloadLocales(ctx, candidates, nil, nil)
		res.Preloaded = pre.Loaded
		res.Failed = pre.Failed
	}

	m.logOptimize(res)

	return res
}

func (m *Manager) underusedLocales(usage map[string]int64) []string {
	if len(usage) == 0 {
		return nil
	}

	var total int64
	for _, n := range usage {
		total += n
	}

	avg := float64(total) / float64(len(usage))

	var out []string

	for locale, n := range usage {
		if !m.cache.Has(locale) || float64(n) < avg {
			out = append(out, locale)
		}
	}

	slices.Sort(out)

	return out
}

func (m *Manager) logOptimize(res OptimizeResult) {
	m.logger.Debug().
		Int("removed", res.Removed).
		Strs("preloaded", res.Preloaded).
		Int("failed", len(res.Failed)).
		Msg("Optimized message cache")
}

// scheduleOptimize replaces the periodic optimisation task.
func (m *Manager) scheduleOptimize(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.optimizeTask != nil {
		m.optimizeTask.Stop()
		m.optimizeTask = nil
	}

	if interval <= 0 {
		return
	}

	m.optimizeTask = m.sched.Every("optimize", interval, func(ctx context.Context) {
		m.OptimizeCache(ctx)
	})
}
