// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package cachemanager keeps locale message catalogues in memory.

A [Manager] combines a bounded LRU store with per-entry expiry, a metrics
collector and a [loader.Loader]. Concurrent requests for the same catalogue
share one load, bulk preloads tolerate individual failures, and the cache
contents can be exported, persisted and imported again so a restarted
process starts warm.

Catalogues returned by a Manager are shared between callers and must not be
modified; use [messages.Clone] to obtain a private copy.
*/
package cachemanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"codeberg.org/b2bsite/i18ncache/core/audit"
	"codeberg.org/b2bsite/i18ncache/core/lrucache"
	"codeberg.org/b2bsite/i18ncache/core/scheduler"
	"codeberg.org/b2bsite/i18ncache/i18n/loader"
	"codeberg.org/b2bsite/i18ncache/i18n/messages"
	"codeberg.org/b2bsite/i18ncache/i18n/metrics"
	"codeberg.org/b2bsite/i18ncache/i18n/persist"
)

// DefaultStorageKey is used when a [Config] leaves StorageKey empty.
const DefaultStorageKey = "i18n-cache"

var (
	// ErrInvalidConfig is returned for a non-positive cache size or TTL.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrPreloadInProgress is returned when a bulk preload is already running.
	ErrPreloadInProgress = errors.New("preload already in progress")
)

// Config controls the cache store.
type Config struct {
	// MaxSize is the maximum number of cached catalogues.
	MaxSize int
	// TTL is the lifespan of a cached catalogue.
	TTL time.Duration
	// EnablePersistence saves the cache to the configured store on Close
	// and restores it in New.
	EnablePersistence bool
	// StorageKey names the persisted snapshot.
	StorageKey string
}

type configJSON struct {
	MaxSize           int    `json:"maxSize"`
	TTL               int64  `json:"ttl"`
	EnablePersistence bool   `json:"enablePersistence"`
	StorageKey        string `json:"storageKey"`
}

// MarshalJSON encodes the TTL in milliseconds.
func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(configJSON{
		MaxSize:           c.MaxSize,
		TTL:               c.TTL.Milliseconds(),
		EnablePersistence: c.EnablePersistence,
		StorageKey:        c.StorageKey,
	})
}

func (c Config) validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("%w: maxSize must be positive, got %d", ErrInvalidConfig, c.MaxSize)
	}

	if c.TTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidConfig, c.TTL)
	}

	return nil
}

// Option configures a [Manager].
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithCollector shares an existing metrics collector instead of creating one.
func WithCollector(c *metrics.Collector) Option {
	return func(m *Manager) {
		m.collector = c
	}
}

// WithStorage sets the store used when persistence is enabled.
// The manager does not close the store.
func WithStorage(s persist.Store) Option {
	return func(m *Manager) {
		m.storage = s
	}
}

// WithClock replaces time.Now for the store, the collector and load timing.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithPreloadConfig sets the preload settings. Zero fields take the defaults.
func WithPreloadConfig(pc PreloadConfig) Option {
	return func(m *Manager) {
		m.preloadCfg = pc.withDefaults()
	}
}

// Manager caches message catalogues per locale and namespace.
// It is safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	cfg        Config
	preloadCfg PreloadConfig

	cache     *lrucache.LRUCache[messages.Tree]
	collector *metrics.Collector
	loader    loader.Loader
	storage   persist.Store
	logger    zerolog.Logger
	now       func() time.Time

	loads    singleflight.Group
	inFlight atomic.Int64

	sched        *scheduler.Scheduler
	optimizeTask *scheduler.Task

	preloading  atomic.Bool
	stopPreload atomic.Bool
	progressMu  sync.Mutex
	progress    float64

	closeOnce sync.Once
	closeErr  error
}

// New creates a manager loading catalogues with l.
//
// When persistence is enabled and a store was supplied with [WithStorage],
// the previously saved snapshot is imported before New returns. A missing or
// unreadable snapshot is logged and otherwise ignored.
func New(cfg Config, l loader.Loader, opts ...Option) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}

	m := &Manager{
		cfg:        cfg,
		preloadCfg: DefaultPreloadConfig(),
		loader:     l,
		logger:     audit.Logger("cachemanager"),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.collector == nil {
		m.collector = metrics.NewCollector(metrics.WithClock(m.now), metrics.WithLogger(m.logger))
	}

	cache, err := lrucache.New(cfg.MaxSize, cfg.TTL,
		lrucache.WithClock[messages.Tree](m.now),
		lrucache.WithSizer(messages.Size),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	m.cache = cache
	m.sched = scheduler.New(m.logger)

	if cfg.EnablePersistence && m.storage != nil {
		if err := m.LoadFromStorage(context.Background()); err != nil {
			m.logger.Warn().Err(err).Str("key", cfg.StorageKey).Msg("Failed to restore persisted message cache")
		}
	}

	m.scheduleOptimize(m.preloadCfg.OptimizeInterval)

	m.logger.Info().
		Int("max_size", cfg.MaxSize).
		Dur("ttl", cfg.TTL).
		Bool("persistence", cfg.EnablePersistence).
		Msg("Message cache ready")

	return m, nil
}

// CacheKey returns the cache key of a catalogue: the locale, or
// "locale:namespace" when a namespace is given.
func CacheKey(locale, namespace string) string {
	if namespace == "" {
		return locale
	}

	return locale + ":" + namespace
}

// GetCacheKey is [CacheKey] exposed on the manager.
func (m *Manager) GetCacheKey(locale, namespace string) string {
	return CacheKey(locale, namespace)
}

// Config returns the current cache configuration.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.cfg
}

// Collector returns the manager's metrics collector.
func (m *Manager) Collector() *metrics.Collector {
	return m.collector
}

// Close stops background tasks, saves the cache when persistence is enabled
// and empties it. Further calls return the first result.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.stopPreload.Store(true)
		m.sched.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		m.closeErr = m.SaveToStorage(ctx)
		m.cache.Clear()

		m.logger.Info().Msg("Message cache closed")
	})

	return m.closeErr
}
