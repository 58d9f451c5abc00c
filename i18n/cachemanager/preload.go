// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cachemanager

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// PreloadConfig controls bulk and background preloading.
type PreloadConfig struct {
	// Enabled schedules a warmup when the service starts.
	Enabled bool
	// Locales are the catalogues loaded by a bulk preload.
	Locales []string
	// Concurrency caps parallel loads during a preload.
	Concurrency int
	// Rate caps loads started per second. Zero disables pacing.
	Rate float64
	// WarmupDelay postpones the warmup preload.
	WarmupDelay time.Duration
	// OptimizeInterval runs [Manager.OptimizeCache] periodically. Zero disables it.
	OptimizeInterval time.Duration
}

type preloadConfigJSON struct {
	Enabled          bool     `json:"enabled"`
	Locales          []string `json:"locales"`
	Concurrency      int      `json:"concurrency"`
	Rate             float64  `json:"rate"`
	WarmupDelay      int64    `json:"warmupDelay"`
	OptimizeInterval int64    `json:"optimizeInterval"`
}

// MarshalJSON encodes durations in milliseconds.
func (pc PreloadConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(preloadConfigJSON{
		Enabled:          pc.Enabled,
		Locales:          pc.Locales,
		Concurrency:      pc.Concurrency,
		Rate:             pc.Rate,
		WarmupDelay:      pc.WarmupDelay.Milliseconds(),
		OptimizeInterval: pc.OptimizeInterval.Milliseconds(),
	})
}

// DefaultPreloadConfig returns the preload settings used when none are given.
func DefaultPreloadConfig() PreloadConfig {
	return PreloadConfig{
		Enabled:     true,
		Locales:     []string{"en", "zh"},
		Concurrency: 2,
		WarmupDelay: time.Second,
	}
}

func (pc PreloadConfig) withDefaults() PreloadConfig {
	def := DefaultPreloadConfig()

	if len(pc.Locales) == 0 {
		pc.Locales = def.Locales
	}

	if pc.Concurrency <= 0 {
		pc.Concurrency = def.Concurrency
	}

	pc.Locales = slices.Clone(pc.Locales)

	return pc
}

// LocaleError names a locale that failed to load.
type LocaleError struct {
	Locale string `json:"locale"`
	Error  string `json:"error"`
}

// PreloadResult summarises a bulk preload.
type PreloadResult struct {
	Loaded  []string      `json:"loaded"`
	Failed  []LocaleError `json:"failed"`
	Stopped bool          `json:"stopped"`
}

// PreloadConfig returns the current preload settings.
func (m *Manager) PreloadConfig() PreloadConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pc := m.preloadCfg
	pc.Locales = slices.Clone(pc.Locales)

	return pc
}

// PreloadAllMessages preloads every configured locale.
// See [Manager.PreloadMultipleLocales].
func (m *Manager) PreloadAllMessages(ctx context.Context) (PreloadResult, error) {
	return m.PreloadMultipleLocales(ctx, m.PreloadConfig().Locales)
}

// PreloadMultipleLocales loads the full catalogue of every locale. Failures
// are recorded and reported in the result without stopping the others.
//
// Only one bulk preload runs at a time; a second call returns
// [ErrPreloadInProgress]. [Manager.StopPreloading] stops issuing new loads
// and lets those already started finish.
func (m *Manager) PreloadMultipleLocales(ctx context.Context, locales []string) (PreloadResult, error) {
	if !m.preloading.CompareAndSwap(false, true) {
		return PreloadResult{}, ErrPreloadInProgress
	}
	defer func() {
		m.stopPreload.Store(false)
		m.preloading.Store(false)
	}()

	m.stopPreload.Store(false)
	m.setProgress(0)

	locales = uniq(locales)
	total := len(locales)

	if total == 0 {
		m.setProgress(100)

		return PreloadResult{}, nil
	}

	m.logger.Info().Strs("locales", locales).Msg("Preloading messages")

	var (
		mu   sync.Mutex
		done int
	)

	res := m.preloadLocales(ctx, locales, m.stopPreload.Load, func() {
		mu.Lock()
		done++
		m.setProgress(float64(done) / float64(total) * 100)
		mu.Unlock()
	})

	m.logger.Info().
		Int("loaded", len(res.Loaded)).
		Int("failed", len(res.Failed)).
		Bool("stopped", res.Stopped).
		Msg("Preload finished")

	return res, ctx.Err()
}

// preloadLocales runs the loads of a preload with the configured concurrency
// and pacing. No new load starts once stop reports true; a nil stop never
// stops. onDone is called after each locale, whatever the outcome.
func (m *Manager) preloadLocales(ctx context.Context, locales []string, stop func() bool, onDone func()) PreloadResult {
	pc := m.PreloadConfig()

	var limiter *rate.Limiter
	if pc.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(pc.Rate), 1)
	}

	var (
		mu  sync.Mutex
		res PreloadResult
	)

	g := new(errgroup.Group)
	g.SetLimit(max(pc.Concurrency, 1))

	for _, locale := range locales {
		if (stop != nil && stop()) || ctx.Err() != nil {
			res.Stopped = true

			break
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				res.Stopped = true

				break
			}
		}

		g.Go(func() error {
			_, err := m.PreloadMessages(ctx, locale)

			mu.Lock()
			if err != nil {
				res.Failed = append(res.Failed, LocaleError{Locale: locale, Error: err.Error()})
			} else {
				res.Loaded = append(res.Loaded, locale)
			}
			mu.Unlock()

			if onDone != nil {
				onDone()
			}

			return nil
		})
	}

	_ = g.Wait()

	slices.Sort(res.Loaded)
	slices.SortFunc(res.Failed, func(a, b LocaleError) int {
		return strings.Compare(a.Locale, b.Locale)
	})

	return res
}

// WarmupCache preloads the configured locales in the background after the
// configured delay. It returns immediately.
func (m *Manager) WarmupCache() {
	delay := m.PreloadConfig().WarmupDelay

	m.sched.After("warmup", delay, func(ctx context.Context) {
		if _, err := m.PreloadAllMessages(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn().Err(err).Msg("Warmup preload did not complete")
		}
	})
}

// IsPreloading reports whether a bulk preload is running.
func (m *Manager) IsPreloading() bool {
	return m.preloading.Load()
}

// PreloadProgress returns the percentage of locales handled by the current or
// last bulk preload.
func (m *Manager) PreloadProgress() float64 {
	m.progressMu.Lock()
	defer m.progressMu.Unlock()

	return m.progress
}

// StopPreloading asks a running bulk preload to stop issuing new loads.
func (m *Manager) StopPreloading() {
	if m.preloading.Load() {
		m.stopPreload.Store(true)
		m.logger.Info().Msg("Stopping preload")
	}
}

func (m *Manager) setProgress(p float64) {
	m.progressMu.Lock()
	m.progress = p
	m.progressMu.Unlock()
}

// uniq drops empty and repeated locales, keeping the first occurrence.
func uniq(locales []string) []string {
	seen := make(map[string]struct{}, len(locales))
	out := make([]string, 0, len(locales))

	for _, l := range locales {
		if _, dup := seen[l]; dup || l == "" {
			continue
		}

		seen[l] = struct{}{}
		out = append(out, l)
	}

	return out
}
