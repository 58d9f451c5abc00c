// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/b2bsite/i18ncache/i18n/loader"
	"codeberg.org/b2bsite/i18ncache/i18n/persist"
)

/*
TestLoadConfig focuses on verifying main functionality (e.g. rejection of invalid input),
and *shouldn't* need exhaustive scenarios.

LoadConfig reads the process environment, so these tests cannot run in parallel.
*/
func TestLoadConfig(t *testing.T) {
	t.Setenv("I18NCACHE_CONFIGFILE", filepath.Join(t.TempDir(), "missing.yaml"))

	tests := []struct {
		name    string            // Description of the test case
		env     map[string]string // Name of the environment variable and its value
		wantErr bool              // Whether an error is expected
	}{
		{
			name: "Valid configuration",
			env: map[string]string{
				"I18NCACHE_HOST":            "localhost",
				"I18NCACHE_PORT":            "8282",
				"I18NCACHE_PRELOAD_LOCALES": "en, zh ,fr",
				"I18NCACHE_PRELOAD_RATE":    "2.5",
				"I18NCACHE_CACHE_TTL":       "90s",
			},
		},
		{
			name:    "Non-positive cache size",
			env:     map[string]string{"I18NCACHE_CACHE_MAX_SIZE": "0"},
			wantErr: true,
		},
		{
			name:    "Invalid float",
			env:     map[string]string{"I18NCACHE_PRELOAD_RATE": "fast"},
			wantErr: true,
		},
		{
			name:    "Unknown loader source",
			env:     map[string]string{"I18NCACHE_LOADER_SOURCE": "ftp"},
			wantErr: true,
		},
		{
			name:    "HTTP source without base URL",
			env:     map[string]string{"I18NCACHE_LOADER_SOURCE": "http"},
			wantErr: true,
		},
		{
			name: "HTTP source with a query in the base URL",
			env: map[string]string{
				"I18NCACHE_LOADER_SOURCE":   "http",
				"I18NCACHE_LOADER_BASE_URL": "https://cdn.example.com/messages?v=2",
			},
			wantErr: true,
		},
		{
			name:    "Unknown persistence backend",
			env:     map[string]string{"I18NCACHE_PERSIST_BACKEND": "floppy"},
			wantErr: true,
		},
		{
			name: "Unix socket with host",
			env: map[string]string{
				"I18NCACHE_HOST":       "localhost",
				"I18NCACHE_UNIXSOCKET": "/tmp/i18ncache.sock",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			config := &ServerConfig{}

			err := config.LoadConfig()
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "localhost", config.Basic.Host)
			assert.Equal(t, "8282", config.Basic.Port)
			assert.Equal(t, []string{"en", "zh", "fr"}, config.Preload.Locales)
			assert.InDelta(t, 2.5, config.Preload.Rate, 0)
			assert.Equal(t, 90*time.Second, config.Cache.TTL)
			assert.NotEmpty(t, config.Instance.InstanceID)
		})
	}
}

func TestReadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache:
  maxSize: 7
  ttl: 2m
preload:
  locales: [ja]
  concurrency: 4
persistence:
  backend: bbolt
  path: ./cache.db
  compress: true
`), 0o600))

	var cfg ServerConfig

	cfg.SetDefaults()
	require.NoError(t, cfg.readYAML(path))

	assert.Equal(t, 7, cfg.Cache.MaxSize)
	assert.Equal(t, 2*time.Minute, cfg.CacheConfig().TTL)
	assert.Equal(t, "i18n-cache", cfg.CacheConfig().StorageKey)

	preload := cfg.PreloadConfig()
	assert.Equal(t, []string{"ja"}, preload.Locales)
	assert.Equal(t, 4, preload.Concurrency)

	opts := cfg.PersistOptions()
	assert.Equal(t, persist.BackendBolt, opts.Backend)
	assert.True(t, opts.Compress)

	require.NoError(t, cfg.readYAML(filepath.Join(t.TempDir(), "absent.yaml")))

	typo := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(typo, []byte("cache:\n  maxSzie: 9\n"), 0o600))

	err := cfg.readYAML(typo)
	require.Error(t, err, "unknown keys are rejected")
	assert.Contains(t, err.Error(), typo)
	assert.Equal(t, 7, cfg.Cache.MaxSize)
}

func TestNewLoader(t *testing.T) {
	var cfg ServerConfig

	cfg.SetDefaults()

	l, err := cfg.NewLoader()
	require.NoError(t, err)
	assert.IsType(t, &loader.FS{}, l)

	cfg.Loader.Source = SourceHTTP
	cfg.Loader.BaseURL = "https://cdn.example.com/locales"

	l, err = cfg.NewLoader()
	require.NoError(t, err)
	assert.IsType(t, &loader.HTTP{}, l)

	cfg.Loader.Source = "ftp"

	_, err = cfg.NewLoader()
	require.ErrorIs(t, err, errInvalidLoaderSource)
}

func TestShouldSkipServerLogging(t *testing.T) {
	var cfg ServerConfig

	assert.True(t, cfg.ShouldSkipServerLogging("/metrics"))
	assert.True(t, cfg.ShouldSkipServerLogging("/healthz"))
	assert.False(t, cfg.ShouldSkipServerLogging("/api/v1/messages/en"))

	cfg.Development.InDevelopment = true
	assert.False(t, cfg.ShouldSkipServerLogging("/metrics"))
}

func TestRegisterConfigFlag(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("i18ncache", flag.ContinueOnError)

	path := registerConfigFlag(fs)
	assert.Equal(t, defaultConfigFile, *path)

	require.NoError(t, fs.Parse([]string{"-config", "/etc/i18ncache.yaml"}))
	assert.Equal(t, "/etc/i18ncache.yaml", *path)

	again := registerConfigFlag(fs)
	assert.Equal(t, "/etc/i18ncache.yaml", *again, "a second registration reads the parsed value")
}
