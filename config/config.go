// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"codeberg.org/b2bsite/i18ncache/core/idgen"
)

// Global exposes the server configuration.
var Global ServerConfig

// Message sources understood by Loader.Source.
const (
	SourceFS   = "fs"
	SourceHTTP = "http"
	SourcePO   = "po"
)

// ServerConfig holds the application configuration.
type ServerConfig struct {
	Build buildInfo `yaml:"-"`

	Basic struct {
		Host                     string      `env:"I18NCACHE_HOST,overwrite" yaml:"host"`
		Port                     string      `env:"I18NCACHE_PORT,overwrite" yaml:"port"`
		UnixSocket               string      `env:"I18NCACHE_UNIXSOCKET" yaml:"unixSocket"`
		RawUnixSocketPermissions string      `env:"I18NCACHE_UNIXSOCKET_PERMISSIONS" yaml:"unixSocketPermissions"`
		UnixSocketPermissions    os.FileMode `yaml:"-"`
		UnixSocketUser           string      `env:"I18NCACHE_UNIXSOCKET_USER" yaml:"unixSocketUser"`
		UnixSocketGroup          string      `env:"I18NCACHE_UNIXSOCKET_GROUP" yaml:"unixSocketGroup"`
	} `yaml:"basic"`

	Cache struct {
		MaxSize           int           `env:"I18NCACHE_CACHE_MAX_SIZE,overwrite" yaml:"maxSize"`
		TTL               time.Duration `env:"I18NCACHE_CACHE_TTL,overwrite" yaml:"ttl"`
		EnablePersistence bool          `env:"I18NCACHE_CACHE_PERSISTENCE,overwrite" yaml:"enablePersistence"`
		StorageKey        string        `env:"I18NCACHE_CACHE_STORAGE_KEY,overwrite" yaml:"storageKey"`
	} `yaml:"cache"`

	Preload struct {
		Enabled          bool          `env:"I18NCACHE_PRELOAD,overwrite" yaml:"enabled"`
		Locales          []string      `env:"I18NCACHE_PRELOAD_LOCALES,overwrite" yaml:"locales"`
		Concurrency      int           `env:"I18NCACHE_PRELOAD_CONCURRENCY,overwrite" yaml:"concurrency"`
		Rate             float64       `env:"I18NCACHE_PRELOAD_RATE,overwrite" yaml:"rate"`
		WarmupDelay      time.Duration `env:"I18NCACHE_PRELOAD_WARMUP_DELAY,overwrite" yaml:"warmupDelay"`
		OptimizeInterval time.Duration `env:"I18NCACHE_OPTIMIZE_INTERVAL,overwrite" yaml:"optimizeInterval"`
	} `yaml:"preload"`

	Loader struct {
		Source    string        `env:"I18NCACHE_LOADER_SOURCE,overwrite" yaml:"source"`
		Directory string        `env:"I18NCACHE_LOADER_DIR,overwrite" yaml:"directory"`
		BaseURL   string        `env:"I18NCACHE_LOADER_BASE_URL,overwrite" yaml:"baseUrl"`
		Timeout   time.Duration `env:"I18NCACHE_LOADER_TIMEOUT,overwrite" yaml:"timeout"`
	} `yaml:"loader"`

	Persistence struct {
		Backend       string        `env:"I18NCACHE_PERSIST_BACKEND,overwrite" yaml:"backend"`
		Path          string        `env:"I18NCACHE_PERSIST_PATH,overwrite" yaml:"path"`
		RedisAddr     string        `env:"I18NCACHE_REDIS_ADDR,overwrite" yaml:"redisAddr"`
		RedisPassword string        `env:"I18NCACHE_REDIS_PASSWORD" yaml:"redisPassword"`
		RedisDB       int           `env:"I18NCACHE_REDIS_DB,overwrite" yaml:"redisDb"`
		RedisTTL      time.Duration `env:"I18NCACHE_REDIS_TTL,overwrite" yaml:"redisTtl"`
		Compress      bool          `env:"I18NCACHE_PERSIST_COMPRESS,overwrite" yaml:"compress"`
	} `yaml:"persistence"`

	HTTPCache struct {
		MaxAge               time.Duration `env:"I18NCACHE_CACHE_CONTROL_MAX_AGE,overwrite" yaml:"cacheControlMaxAge"`
		StaleWhileRevalidate time.Duration `env:"I18NCACHE_CACHE_CONTROL_STALE_WHILE_REVALIDATE,overwrite" yaml:"cacheControlStaleWhileRevalidate"`
	} `yaml:"httpCache"`

	Metrics struct {
		Enabled   bool   `env:"I18NCACHE_METRICS,overwrite" yaml:"enabled"`
		Namespace string `env:"I18NCACHE_METRICS_NAMESPACE,overwrite" yaml:"namespace"`
	} `yaml:"metrics"`

	Instance struct {
		StartingTime string `yaml:"-"`
		InstanceID   string `yaml:"-"`
	} `yaml:"instance"`

	Development struct {
		InDevelopment bool `env:"I18NCACHE_DEV" yaml:"inDevelopment"`
	} `yaml:"development"`

	Log struct {
		Level      string   `env:"I18NCACHE_LOG_LEVEL,overwrite" yaml:"logLevel"`
		Outputs    []string `env:"I18NCACHE_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format     string   `env:"I18NCACHE_LOG_FORMAT,overwrite" yaml:"logFormat"`
		MaxSizeMB  int      `env:"I18NCACHE_LOG_MAX_SIZE,overwrite" yaml:"logMaxSize"`
		MaxBackups int      `env:"I18NCACHE_LOG_MAX_BACKUPS,overwrite" yaml:"logMaxBackups"`
		MaxAgeDays int      `env:"I18NCACHE_LOG_MAX_AGE,overwrite" yaml:"logMaxAge"`
	} `yaml:"log"`

	Internationalization struct {
		// Locales lists the locales served. The base locale "en" is always included.
		Locales []string `env:"I18NCACHE_LOCALES,overwrite" yaml:"locales"`

		// Strict mode for missing keys.
		//
		// When enabled, missing keys are logged (deduplicated per locale+key) and
		// visibly wrapped using markers.
		StrictMissingKeys bool `env:"I18NCACHE_STRICT_MISSING_KEYS" yaml:"strictMissingKeys"`
	} `yaml:"internationalization"`
}

// LoadConfig loads the configuration from various sources.
func (cfg *ServerConfig) LoadConfig() error {
	parsedConfigFlagValue := parseCommandLineArgs()

	// Check if the -config flag was explicitly set by the user.
	configFlagUserSet := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configFlagUserSet = true
		}
	})

	var configFilePath string

	// Determine the config file path with the correct precedence:
	// 1. Command-line flag (-config)
	// 2. Environment variable (I18NCACHE_CONFIGFILE)
	// 3. Default path with fallback check
	if configFlagUserSet {
		configFilePath = parsedConfigFlagValue
	} else if envVar := os.Getenv("I18NCACHE_CONFIGFILE"); envVar != "" {
		configFilePath = envVar
	} else {
		configFilePath = parsedConfigFlagValue
		if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
			ymlPath := "./config.yml"
			if _, statErr := os.Stat(ymlPath); statErr == nil {
				configFilePath = ymlPath
			}
		}
	}

	cfg.SetDefaults()

	cfg.Build.load()

	cfg.Instance.InstanceID = idgen.Make()
	cfg.Instance.StartingTime = time.Now().UTC().Format("2006-01-02 15:04")

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := useDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := readEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	cfg.setupAudit()

	cfg.print()

	// Heuristically check for containerized environment and warn if host is not a wildcard address.
	if isContainerized() && cfg.Basic.Host != "0.0.0.0" && cfg.Basic.Host != "::" {
		log.Warn().
			Str("host", cfg.Basic.Host).
			Msg("Running in a containerized environment but host is not a wildcard address (e.g., '0.0.0.0' or '::'). This may prevent the service from being accessible outside the container.")
	}

	return nil
}

var skippedPathPrefixes = []string{"/metrics", "/healthz"}

// ShouldSkipServerLogging determines if a request should bypass the logging middleware.
func (cfg *ServerConfig) ShouldSkipServerLogging(path string) bool {
	if cfg.Development.InDevelopment {
		return false
	}

	for _, prefix := range skippedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// isContainerized checks for common indicators of a containerized environment.
//
// This is a heuristic and may not be 100% accurate.
func isContainerized() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	if _, err := os.Stat("/.containerenv"); err == nil {
		return true
	}

	// #nosec G304 -- We are checking for the existence and content of a well-known system file for heuristics.
	cgroup, err := os.ReadFile("/proc/self/cgroup")
	if err == nil {
		content := string(cgroup)

		return strings.Contains(content, "docker") ||
			strings.Contains(content, "kubepods") ||
			strings.Contains(content, "containerd") ||
			strings.Contains(content, "lxc") ||
			strings.Contains(content, "crio") ||
			// systemd-nspawn containers
			strings.Contains(content, ".machine")
	}

	return false
}

// GetDurationEncoderOption returns a YAML encoder option that marshals
// time.Duration into a human-readable string format (e.g., "30m", "1h").
func GetDurationEncoderOption() yaml.EncodeOption {
	return yaml.CustomMarshaler[time.Duration](
		func(d time.Duration) ([]byte, error) {
			return yaml.Marshal(d.String())
		},
	)
}
