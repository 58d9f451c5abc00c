// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cachemanager

import (
	"codeberg.org/b2bsite/i18ncache/core/lrucache"
	"codeberg.org/b2bsite/i18ncache/i18n/metrics"
)

// DetailedStats combines store, metrics and configuration state.
type DetailedStats struct {
	Cache         lrucache.DetailedStats `json:"cache"`
	Metrics       metrics.DetailedStats  `json:"metrics"`
	Config        Config                 `json:"config"`
	PreloadConfig PreloadConfig          `json:"preloadConfig"`
}

// DebugInfo is a troubleshooting view of the manager.
type DebugInfo struct {
	Keys            []string               `json:"keys"`
	Locales         []string               `json:"locales"`
	Cache           lrucache.DetailedStats `json:"cache"`
	MemoryUsage     int64                  `json:"memoryUsage"`
	Metrics         metrics.Snapshot       `json:"metrics"`
	Config          Config                 `json:"config"`
	PreloadConfig   PreloadConfig          `json:"preloadConfig"`
	InFlight        int64                  `json:"inFlight"`
	Preloading      bool                   `json:"preloading"`
	PreloadProgress float64                `json:"preloadProgress"`
}

// CacheStats returns the store summary.
func (m *Manager) CacheStats() lrucache.Stats {
	return m.cache.Stats()
}

// DetailedStats returns store statistics, detailed metrics and the
// current configuration.
func (m *Manager) DetailedStats() DetailedStats {
	return DetailedStats{
		Cache:         m.cache.DetailedStats(),
		Metrics:       m.collector.DetailedStats(),
		Config:        m.Config(),
		PreloadConfig: m.PreloadConfig(),
	}
}

// DebugInfo returns the cached keys, the estimated memory usage and the
// number of loads in flight along with the current state.
func (m *Manager) DebugInfo() DebugInfo {
	cache := m.cache.DetailedStats()

	return DebugInfo{
		Keys:            m.cache.Keys(),
		Locales:         m.CachedLocales(),
		Cache:           cache,
		MemoryUsage:     cache.MemoryUsage,
		Metrics:         m.collector.Metrics(),
		Config:          m.Config(),
		PreloadConfig:   m.PreloadConfig(),
		InFlight:        m.inFlight.Load(),
		Preloading:      m.IsPreloading(),
		PreloadProgress: m.PreloadProgress(),
	}
}

// Metrics returns a snapshot of the aggregate metrics.
func (m *Manager) Metrics() metrics.Snapshot {
	return m.collector.Metrics()
}

// PerformanceReport returns the collector's performance report.
func (m *Manager) PerformanceReport() metrics.PerformanceReport {
	return m.collector.PerformanceReport()
}

// AddEventListener subscribes fn to collector events of the given type, or to
// every event with [metrics.AllEvents].
func (m *Manager) AddEventListener(eventType string, fn metrics.Handler) metrics.ListenerID {
	return m.collector.AddEventListener(eventType, fn)
}

// RemoveEventListener unsubscribes a listener.
func (m *Manager) RemoveEventListener(eventType string, id metrics.ListenerID) bool {
	return m.collector.RemoveEventListener(eventType, id)
}

// ResetMetrics clears the collected metrics. Listeners stay subscribed.
func (m *Manager) ResetMetrics() {
	m.collector.Reset()
}
