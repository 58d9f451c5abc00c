// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"regexp"
	"slices"
	"strconv"

	"github.com/rs/zerolog/log"

	"codeberg.org/b2bsite/i18ncache/i18n/persist"
	"codeberg.org/b2bsite/i18ncache/server/utils"
)

// validation errors.
var (
	errUnixSocketWithHostPort       = errors.New("unix socket configured - cannot specify Host and Port simultaneously")
	errUnixSocketInvalidPermissions = errors.New("invalid Basic.UnixSocketPermissions value")
	errUnixSocketUserDoesNotExist   = errors.New("user does not exist")
	errUnixSocketGroupDoesNotExist  = errors.New("group does not exist")
	errInvalidCacheMaxSize          = errors.New("Cache.MaxSize must be positive")
	errInvalidCacheTTL              = errors.New("Cache.TTL must be positive")
	errEmptyStorageKey              = errors.New("Cache.StorageKey cannot be empty")
	errInvalidPreloadConcurrency    = errors.New("Preload.Concurrency must be positive")
	errNegativePreloadTiming        = errors.New("Preload.Rate, Preload.WarmupDelay and Preload.OptimizeInterval cannot be negative")
	errInvalidLoaderSource          = errors.New("invalid Loader.Source")
	errLoaderDirectoryRequired      = errors.New("Loader.Directory is required for this source")
	errLoaderBaseURLRequired        = errors.New("Loader.BaseURL is required for the http source")
	errInvalidPersistenceBackend    = errors.New("invalid Persistence.Backend")
	errPersistencePathRequired      = errors.New("Persistence.Path is required for this backend")
	errInvalidLogLevel              = errors.New("invalid Log.Level")
	errInvalidLogFormat             = errors.New("invalid Log.Format")
)

var (
	fileModeOctalRegexp  = regexp.MustCompile(`^0?[0-7]{3}$`)
	fileModeStringRegexp = regexp.MustCompile(`^(?:[r-][w-][x-]){3}$`)
	digitsRegexp         = regexp.MustCompile(`^[0-9]+$`)
)

// validateAndSet validates the server configuration and populates some fields.
func (cfg *ServerConfig) validateAndSet() error {
	if err := cfg.validateListener(); err != nil {
		return err
	}

	if cfg.Cache.MaxSize <= 0 {
		return errInvalidCacheMaxSize
	}

	if cfg.Cache.TTL <= 0 {
		return errInvalidCacheTTL
	}

	if cfg.Cache.StorageKey == "" {
		return errEmptyStorageKey
	}

	if cfg.Preload.Concurrency <= 0 {
		return errInvalidPreloadConcurrency
	}

	if cfg.Preload.Rate < 0 || cfg.Preload.WarmupDelay < 0 || cfg.Preload.OptimizeInterval < 0 {
		return errNegativePreloadTiming
	}

	switch cfg.Loader.Source {
	case SourceFS, SourcePO:
		if cfg.Loader.Directory == "" {
			return errLoaderDirectoryRequired
		}
	case SourceHTTP:
		if cfg.Loader.BaseURL == "" {
			return errLoaderBaseURLRequired
		}

		baseURL, err := utils.ParseURL(cfg.Loader.BaseURL, "Loader.BaseURL")
		if err != nil {
			return fmt.Errorf("invalid loader base URL: %w", err)
		}

		cfg.Loader.BaseURL = baseURL.String()
	default:
		return fmt.Errorf("%w: %q", errInvalidLoaderSource, cfg.Loader.Source)
	}

	switch cfg.Persistence.Backend {
	case persist.BackendFile, persist.BackendBolt, persist.BackendBadger:
		if cfg.Cache.EnablePersistence && cfg.Persistence.Path == "" {
			return errPersistencePathRequired
		}
	case persist.BackendRedis:
	default:
		return fmt.Errorf("%w: %q", errInvalidPersistenceBackend, cfg.Persistence.Backend)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.Log.Level) {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.Log.Level)
	}

	if cfg.Log.Format != "console" && cfg.Log.Format != "json" {
		return fmt.Errorf("%w: %q", errInvalidLogFormat, cfg.Log.Format)
	}

	return nil
}

func (cfg *ServerConfig) validateListener() error {
	if cfg.Basic.UnixSocket == "" {
		// Set TCP defaults
		if cfg.Basic.Host == "" {
			cfg.Basic.Host = "localhost"
			log.Info().
				Str("host", cfg.Basic.Host).
				Msg("Binding to default host")
		}

		if cfg.Basic.Port == "" {
			cfg.Basic.Port = "8282"
			log.Info().
				Str("port", cfg.Basic.Port).
				Msg("Using default port")
		}

		return nil
	}

	if cfg.Basic.Host != "" || cfg.Basic.Port != "" {
		return errUnixSocketWithHostPort
	}

	// Handle unix socket permissions
	switch {
	case cfg.Basic.RawUnixSocketPermissions == "":
		cfg.Basic.UnixSocketPermissions = 0o666
	case fileModeOctalRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		rawModeUint64, _ := strconv.ParseUint(cfg.Basic.RawUnixSocketPermissions, 8, 32)

		cfg.Basic.UnixSocketPermissions = os.FileMode(rawModeUint64)
	case fileModeStringRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		mode := os.FileMode(0)

		for i, c := range cfg.Basic.RawUnixSocketPermissions {
			if c != '-' {
				const bitsInByte = 8

				mode |= 1 << (bitsInByte - i)
			}
		}

		cfg.Basic.UnixSocketPermissions = mode
	default:
		return errUnixSocketInvalidPermissions
	}

	if cfg.Basic.UnixSocketUser != "" {
		lookup := user.Lookup
		if digitsRegexp.MatchString(cfg.Basic.UnixSocketUser) {
			lookup = user.LookupId
		}

		if _, err := lookup(cfg.Basic.UnixSocketUser); err != nil {
			return errUnixSocketUserDoesNotExist
		}
	}

	if cfg.Basic.UnixSocketGroup != "" {
		lookup := user.LookupGroup
		if digitsRegexp.MatchString(cfg.Basic.UnixSocketGroup) {
			lookup = user.LookupGroupId
		}

		if _, err := lookup(cfg.Basic.UnixSocketGroup); err != nil {
			return errUnixSocketGroupDoesNotExist
		}
	}

	return nil
}
