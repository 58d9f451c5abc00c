// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"os"
	"slices"

	"codeberg.org/b2bsite/i18ncache/i18n/cachemanager"
	"codeberg.org/b2bsite/i18ncache/i18n/loader"
	"codeberg.org/b2bsite/i18ncache/i18n/persist"
	"codeberg.org/b2bsite/i18ncache/server/utils"
)

// CacheConfig returns the cache manager settings.
func (cfg *ServerConfig) CacheConfig() cachemanager.Config {
	return cachemanager.Config{
		MaxSize:           cfg.Cache.MaxSize,
		TTL:               cfg.Cache.TTL,
		EnablePersistence: cfg.Cache.EnablePersistence,
		StorageKey:        cfg.Cache.StorageKey,
	}
}

// PreloadConfig returns the preload settings.
func (cfg *ServerConfig) PreloadConfig() cachemanager.PreloadConfig {
	return cachemanager.PreloadConfig{
		Enabled:          cfg.Preload.Enabled,
		Locales:          slices.Clone(cfg.Preload.Locales),
		Concurrency:      cfg.Preload.Concurrency,
		Rate:             cfg.Preload.Rate,
		WarmupDelay:      cfg.Preload.WarmupDelay,
		OptimizeInterval: cfg.Preload.OptimizeInterval,
	}
}

// PersistOptions returns the options for [persist.Open].
func (cfg *ServerConfig) PersistOptions() persist.Options {
	return persist.Options{
		Backend:       cfg.Persistence.Backend,
		Path:          cfg.Persistence.Path,
		RedisAddr:     cfg.Persistence.RedisAddr,
		RedisPassword: cfg.Persistence.RedisPassword,
		RedisDB:       cfg.Persistence.RedisDB,
		RedisTTL:      cfg.Persistence.RedisTTL,
		Compress:      cfg.Persistence.Compress,
	}
}

// NewLoader builds the message loader selected by Loader.Source.
func (cfg *ServerConfig) NewLoader() (loader.Loader, error) {
	switch cfg.Loader.Source {
	case SourceFS:
		return loader.NewFS(os.DirFS(cfg.Loader.Directory)), nil
	case SourcePO:
		return loader.NewPO(os.DirFS(cfg.Loader.Directory), "."), nil
	case SourceHTTP:
		return loader.NewHTTP(cfg.Loader.BaseURL, utils.HTTPClient, cfg.Loader.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", errInvalidLoaderSource, cfg.Loader.Source)
	}
}
