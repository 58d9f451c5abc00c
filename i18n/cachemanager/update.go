// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cachemanager

import (
	"fmt"
	"slices"
	"time"
)

// ConfigUpdate lists the cache settings to change. Nil fields are kept.
type ConfigUpdate struct {
	MaxSize           *int
	TTL               *time.Duration
	EnablePersistence *bool
	StorageKey        *string
}

// PreloadUpdate lists the preload settings to change. Nil fields are kept.
type PreloadUpdate struct {
	Enabled          *bool
	Locales          []string
	Concurrency      *int
	Rate             *float64
	WarmupDelay      *time.Duration
	OptimizeInterval *time.Duration
}

// UpdateConfig applies u atomically: every field is validated before any is
// applied. Shrinking MaxSize evicts the least recently used entries at once.
// A new TTL applies to entries stored afterwards.
func (m *Manager) UpdateConfig(u ConfigUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cfg

	if u.MaxSize != nil {
		next.MaxSize = *u.MaxSize
	}

	if u.TTL != nil {
		next.TTL = *u.TTL
	}

	if u.EnablePersistence != nil {
		next.EnablePersistence = *u.EnablePersistence
	}

	if u.StorageKey != nil {
		if *u.StorageKey == "" {
			return fmt.Errorf("%w: storageKey must not be empty", ErrInvalidConfig)
		}

		next.StorageKey = *u.StorageKey
	}

	if err := next.validate(); err != nil {
		return err
	}

	if next.MaxSize != m.cfg.MaxSize {
		evicted, err := m.cache.SetMaxSize(next.MaxSize)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		if evicted > 0 {
			m.logger.Info().Int("evicted", evicted).Int("max_size", next.MaxSize).Msg("Shrunk message cache")
		}
	}

	if next.TTL != m.cfg.TTL {
		if err := m.cache.SetTTL(next.TTL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	m.cfg = next

	m.logger.Info().
		Int("max_size", next.MaxSize).
		Dur("ttl", next.TTL).
		Bool("persistence", next.EnablePersistence).
		Msg("Updated message cache configuration")

	return nil
}

// UpdatePreloadConfig applies u. Negative values are rejected. A changed
// OptimizeInterval reschedules the periodic optimisation.
func (m *Manager) UpdatePreloadConfig(u PreloadUpdate) error {
	m.mu.Lock()

	next := m.preloadCfg

	if u.Enabled != nil {
		next.Enabled = *u.Enabled
	}

	if u.Locales != nil {
		next.Locales = uniq(u.Locales)
	}

	if u.Concurrency != nil {
		if *u.Concurrency <= 0 {
			m.mu.Unlock()

			return fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidConfig, *u.Concurrency)
		}

		next.Concurrency = *u.Concurrency
	}

	if u.Rate != nil {
		if *u.Rate < 0 {
			m.mu.Unlock()

			return fmt.Errorf("%w: rate must not be negative", ErrInvalidConfig)
		}

		next.Rate = *u.Rate
	}

	if u.WarmupDelay != nil {
		if *u.WarmupDelay < 0 {
			m.mu.Unlock()

			return fmt.Errorf("%w: warmupDelay must not be negative", ErrInvalidConfig)
		}

		next.WarmupDelay = *u.WarmupDelay
	}

	if u.OptimizeInterval != nil {
		if *u.OptimizeInterval < 0 {
			m.mu.Unlock()

			return fmt.Errorf("%w: optimizeInterval must not be negative", ErrInvalidConfig)
		}

		next.OptimizeInterval = *u.OptimizeInterval
	}

	reschedule := next.OptimizeInterval != m.preloadCfg.OptimizeInterval
	next.Locales = slices.Clone(next.Locales)
	m.preloadCfg = next

	m.mu.Unlock()

	if reschedule {
		m.scheduleOptimize(next.OptimizeInterval)
	}

	m.logger.Info().
		Strs("locales", next.Locales).
		Int("concurrency", next.Concurrency).
		Msg("Updated preload configuration")

	return nil
}
