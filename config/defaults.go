// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"time"

	"codeberg.org/b2bsite/i18ncache/i18n/persist"
)

const (
	// Default cache TTL in minutes.
	defaultCacheTTLMinutes = 60
	// Default HTTP cache max age in seconds.
	defaultHTTPCacheMaxAgeSeconds = 300
	// Default HTTP cache stale while revalidate in seconds.
	defaultHTTPCacheStaleWhileRevalidateSeconds = 600

	// Default loader timeout in seconds.
	defaultLoaderTimeoutSeconds = 10
	// Default warmup delay in milliseconds.
	defaultWarmupDelayMs = 1000

	// Default log rotation settings.
	defaultLogMaxSizeMB  = 100
	defaultLogMaxBackups = 3
	defaultLogMaxAgeDays = 28
)

// SetDefaults populates the configuration with default values.
func (cfg *ServerConfig) SetDefaults() {
	cfg.Cache.MaxSize = 50
	cfg.Cache.TTL = defaultCacheTTLMinutes * time.Minute
	cfg.Cache.EnablePersistence = false
	cfg.Cache.StorageKey = "i18n-cache"

	cfg.Preload.Enabled = true
	cfg.Preload.Locales = []string{"en", "zh"}
	cfg.Preload.Concurrency = 2
	cfg.Preload.Rate = 0
	cfg.Preload.WarmupDelay = defaultWarmupDelayMs * time.Millisecond
	cfg.Preload.OptimizeInterval = 0

	cfg.Loader.Source = SourceFS
	cfg.Loader.Directory = "./messages"
	cfg.Loader.BaseURL = ""
	cfg.Loader.Timeout = defaultLoaderTimeoutSeconds * time.Second

	cfg.Persistence.Backend = persist.BackendFile
	cfg.Persistence.Path = "./data/i18n-cache"
	cfg.Persistence.RedisAddr = "localhost:6379"
	cfg.Persistence.RedisDB = 0
	cfg.Persistence.RedisTTL = 0
	cfg.Persistence.Compress = false

	cfg.HTTPCache.MaxAge = defaultHTTPCacheMaxAgeSeconds * time.Second
	cfg.HTTPCache.StaleWhileRevalidate = defaultHTTPCacheStaleWhileRevalidateSeconds * time.Second

	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "i18ncache"

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"
	cfg.Log.MaxSizeMB = defaultLogMaxSizeMB
	cfg.Log.MaxBackups = defaultLogMaxBackups
	cfg.Log.MaxAgeDays = defaultLogMaxAgeDays

	cfg.Internationalization.Locales = []string{"en", "zh"}
	cfg.Internationalization.StrictMissingKeys = false
}
