// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package metrics accumulates counters and timings for the locale message cache.

A [Collector] never performs I/O and never fails: it is fed by the cache
manager, answers snapshot queries, and fans recorded activity out to
registered event listeners. [NewPrometheusCollector] exposes the same
numbers to a Prometheus registry.
*/
package metrics

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Default retention windows.
const (
	DefaultErrorHistory = 50
	DefaultEventHistory = 100
	DefaultLoadSamples  = 100
)

// ErrorContext describes where a recorded error happened.
type ErrorContext struct {
	Locale    string `json:"locale,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// ErrorRecord is one entry of the recent error history.
type ErrorRecord struct {
	ErrorContext

	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a point-in-time copy of the aggregate metrics.
type Snapshot struct {
	// CacheHitRate is hits/(hits+misses), or 0 before the first lookup.
	CacheHitRate float64 `json:"cacheHitRate"`
	// LoadTime is the mean of the retained load durations in milliseconds.
	LoadTime float64 `json:"loadTime"`
	// ErrorRate is failed loads divided by attempted loads.
	ErrorRate float64 `json:"errorRate"`
	// TranslationCoverage is the mean of the latest coverage ratio of every locale.
	TranslationCoverage float64          `json:"translationCoverage"`
	LocaleUsage         map[string]int64 `json:"localeUsage"`

	CacheHits    int64 `json:"cacheHits"`
	CacheMisses  int64 `json:"cacheMisses"`
	TotalLookups int64 `json:"totalLookups"`
	TotalLoads   int64 `json:"totalLoads"`
	TotalErrors  int64 `json:"totalErrors"`
}

// DetailedStats expands [Snapshot] with per-locale data and the bounded histories.
type DetailedStats struct {
	Snapshot

	Coverage     map[string]float64 `json:"coverage"`
	LoadStarts   int64              `json:"loadStarts"`
	MinLoadTime  float64            `json:"minLoadTime"`
	MaxLoadTime  float64            `json:"maxLoadTime"`
	RecentErrors []ErrorRecord      `json:"recentErrors"`
	Events       []Event            `json:"events"`
	Listeners    int                `json:"listeners"`
	Since        time.Time          `json:"since"`
}

// Option configures a [Collector].
type Option func(*Collector)

// WithClock replaces time.Now as the collector's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used to report misbehaving listeners.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Collector) {
		c.logger = logger
	}
}

// WithHistoryLimits overrides the retention of errors, events and load samples.
// Non-positive values keep the defaults.
func WithHistoryLimits(errs, events, samples int) Option {
	return func(c *Collector) {
		if errs > 0 {
			c.errorLimit = errs
		}

		if events > 0 {
			c.eventLimit = events
		}

		if samples > 0 {
			c.sampleLimit = samples
		}
	}
}

// Collector accumulates cache metrics. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	now    func() time.Time
	logger zerolog.Logger

	errorLimit  int
	eventLimit  int
	sampleLimit int

	since       time.Time
	hits        int64
	misses      int64
	loadStarts  int64
	loads       int64
	errors      int64
	loadSamples []time.Duration
	localeUsage map[string]int64
	coverage    map[string]float64
	errorLog    []ErrorRecord
	events      []Event

	listeners      map[string][]listener
	nextListenerID ListenerID
}

// NewCollector returns an empty collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		now:         time.Now,
		logger:      zerolog.Nop(),
		errorLimit:  DefaultErrorHistory,
		eventLimit:  DefaultEventHistory,
		sampleLimit: DefaultLoadSamples,
		listeners:   make(map[string][]listener),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.resetLocked()

	return c
}

// RecordLocaleUsage counts one access of locale.
func (c *Collector) RecordLocaleUsage(locale string) {
	c.mu.Lock()
	c.localeUsage[locale]++
	count := c.localeUsage[locale]
	ev := c.eventLocked(EventLocaleUsage, locale, map[string]any{"count": count})
	c.mu.Unlock()

	c.dispatch(ev)
}

// RecordCacheHit counts a lookup served from the cache.
func (c *Collector) RecordCacheHit(locale string) {
	c.mu.Lock()
	c.hits++
	ev := c.eventLocked(EventCacheHit, locale, nil)
	c.mu.Unlock()

	c.dispatch(ev)
}

// RecordCacheMiss counts a lookup that had to be loaded.
func (c *Collector) RecordCacheMiss(locale string) {
	c.mu.Lock()
	c.misses++
	ev := c.eventLocked(EventCacheMiss, locale, nil)
	c.mu.Unlock()

	c.dispatch(ev)
}

// RecordLoadStart notes that a load began and returns its start time.
func (c *Collector) RecordLoadStart(locale string) time.Time {
	c.mu.Lock()
	c.loadStarts++
	start := c.now()
	ev := c.eventLocked(EventLoadStart, locale, nil)
	c.mu.Unlock()

	c.dispatch(ev)

	return start
}

// RecordLoadTime records a successful load of locale that took d.
func (c *Collector) RecordLoadTime(locale string, d time.Duration) {
	if d < 0 {
		d = 0
	}

	c.mu.Lock()
	c.loads++
	c.loadSamples = appendBounded(c.loadSamples, d, c.sampleLimit)
	ev := c.eventLocked(EventLoadComplete, locale, map[string]any{"duration": durationMillis(d)})
	c.mu.Unlock()

	c.dispatch(ev)
}

// RecordError counts a failed operation and keeps it in the recent error history.
func (c *Collector) RecordError(err error, ec ErrorContext) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	c.mu.Lock()
	c.errors++
	c.errorLog = appendBounded(c.errorLog, ErrorRecord{
		ErrorContext: ec,
		Message:      msg,
		Timestamp:    c.now(),
	}, c.errorLimit)
	ev := c.eventLocked(EventError, ec.Locale, map[string]any{
		"error":     msg,
		"namespace": ec.Namespace,
		"operation": ec.Operation,
	})
	c.mu.Unlock()

	c.dispatch(ev)
}

// RecordTranslationCoverage stores the latest coverage ratio of locale,
// clamped to [0, 1]. NaN is recorded as 0.
func (c *Collector) RecordTranslationCoverage(locale string, ratio float64) {
	ratio = clampRatio(ratio)

	c.mu.Lock()
	c.coverage[locale] = ratio
	ev := c.eventLocked(EventCoverage, locale, map[string]any{"coverage": ratio})
	c.mu.Unlock()

	c.dispatch(ev)
}

// Metrics returns a copy of the aggregate metrics.
func (c *Collector) Metrics() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

// DetailedStats returns the aggregate metrics with per-locale coverage and
// copies of the bounded error and event histories.
func (c *Collector) DetailedStats() DetailedStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := DetailedStats{
		Snapshot:     c.snapshotLocked(),
		Coverage:     make(map[string]float64, len(c.coverage)),
		LoadStarts:   c.loadStarts,
		RecentErrors: slices.Clone(c.errorLog),
		Events:       make([]Event, len(c.events)),
		Since:        c.since,
	}

	for k, v := range c.coverage {
		stats.Coverage[k] = v
	}

	for i, ev := range c.events {
		stats.Events[i] = ev.clone()
	}

	for _, ls := range c.listeners {
		stats.Listeners += len(ls)
	}

	if len(c.loadSamples) > 0 {
		stats.MinLoadTime = durationMillis(slices.Min(c.loadSamples))
		stats.MaxLoadTime = durationMillis(slices.Max(c.loadSamples))
	}

	return stats
}

// Reset zeroes every counter and clears the histories. Listeners stay registered.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
}

func (c *Collector) resetLocked() {
	c.since = c.now()
	c.hits, c.misses = 0, 0
	c.loadStarts, c.loads, c.errors = 0, 0, 0
	c.loadSamples = nil
	c.localeUsage = make(map[string]int64)
	c.coverage = make(map[string]float64)
	c.errorLog = nil
	c.events = nil
}

func (c *Collector) snapshotLocked() Snapshot {
	s := Snapshot{
		LocaleUsage:  make(map[string]int64, len(c.localeUsage)),
		CacheHits:    c.hits,
		CacheMisses:  c.misses,
		TotalLookups: c.hits + c.misses,
		TotalLoads:   c.loads,
		TotalErrors:  c.errors,
	}

	for k, v := range c.localeUsage {
		s.LocaleUsage[k] = v
	}

	if s.TotalLookups > 0 {
		s.CacheHitRate = float64(c.hits) / float64(s.TotalLookups)
	}

	if attempts := c.loads + c.errors; attempts > 0 {
		s.ErrorRate = float64(c.errors) / float64(attempts)
	}

	if len(c.loadSamples) > 0 {
		var total time.Duration
		for _, d := range c.loadSamples {
			total += d
		}

		s.LoadTime = durationMillis(total / time.Duration(len(c.loadSamples)))
	}

	if len(c.coverage) > 0 {
		var total float64
		for _, v := range c.coverage {
			total += v
		}

		s.TranslationCoverage = total / float64(len(c.coverage))
	}

	return s
}

// eventLocked builds an event and appends it to the bounded log.
func (c *Collector) eventLocked(typ, locale string, payload map[string]any) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Locale:    locale,
		Timestamp: c.now(),
		Payload:   payload,
	}

	c.events = appendBounded(c.events, ev, c.eventLimit)

	return ev
}

func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if over := len(s) - limit; over > 0 {
		s = slices.Delete(s, 0, over)
	}

	return s
}

func clampRatio(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
