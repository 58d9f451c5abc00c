// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"net/http"
	"time"

	"codeberg.org/b2bsite/i18ncache/i18n/cachemanager"
	"codeberg.org/b2bsite/i18ncache/server/utils"
)

var errEntryNotFound = errors.New("cache entry not found")

// Health reports the health check. Unhealthy caches answer 503 so the route
// can back a load balancer probe.
func (a *API) Health(w http.ResponseWriter, r *http.Request) error {
	res := a.Manager.PerformHealthCheck()

	status := http.StatusOK
	if !res.IsHealthy {
		status = http.StatusServiceUnavailable
	}

	return writeJSON(w, status, res)
}

// Stats serves the detailed store, metrics and configuration statistics.
func (a *API) Stats(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, a.Manager.DetailedStats())
}

// Debug serves the troubleshooting view of the manager.
func (a *API) Debug(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, a.Manager.DebugInfo())
}

// Report serves the performance report.
func (a *API) Report(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, a.Manager.PerformanceReport())
}

// Export serves a snapshot of the cache.
func (a *API) Export(w http.ResponseWriter, r *http.Request) error {
	data, err := a.Manager.ExportCache()
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="i18n-cache.json"`)
	w.WriteHeader(http.StatusOK)

	_, err = w.Write([]byte(data))

	return err
}

// Import merges a snapshot produced by Export into the cache.
func (a *API) Import(w http.ResponseWriter, r *http.Request) error {
	data, err := readBody(w, r)
	if err != nil {
		return err
	}

	if err := a.Manager.ImportCache(string(data)); err != nil {
		if errors.Is(err, cachemanager.ErrInvalidCacheData) {
			return withStatus(http.StatusBadRequest, err)
		}

		return err
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

// Optimize drops expired entries and preloads underused locales.
func (a *API) Optimize(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, a.Manager.OptimizeCache(r.Context()))
}

type preloadRequest struct {
	Locales []string `json:"locales"`
}

// Preload loads the locales in the request body, or the configured preload
// locales when the body is empty.
func (a *API) Preload(w http.ResponseWriter, r *http.Request) error {
	var req preloadRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		return err
	}

	var (
		res cachemanager.PreloadResult
		err error
	)

	if len(req.Locales) == 0 {
		res, err = a.Manager.PreloadAllMessages(r.Context())
	} else {
		res, err = a.Manager.PreloadMultipleLocales(r.Context(), req.Locales)
	}

	if errors.Is(err, cachemanager.ErrPreloadInProgress) {
		return withStatus(http.StatusConflict, err)
	}

	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, res)
}

type preloadStatus struct {
	Preloading bool    `json:"preloading"`
	Progress   float64 `json:"progress"`
}

// PreloadStatus reports whether a bulk preload runs and its progress.
func (a *API) PreloadStatus(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, preloadStatus{
		Preloading: a.Manager.IsPreloading(),
		Progress:   a.Manager.PreloadProgress(),
	})
}

// StopPreload asks a running bulk preload to stop launching loads.
func (a *API) StopPreload(w http.ResponseWriter, r *http.Request) error {
	a.Manager.StopPreloading()

	w.WriteHeader(http.StatusAccepted)

	return nil
}

// DeleteEntry removes one cache entry by key, e.g. "zh" or "zh:critical".
func (a *API) DeleteEntry(w http.ResponseWriter, r *http.Request) error {
	if !a.Manager.DeleteMessages(utils.GetPathVar(r, "key")) {
		return withStatus(http.StatusNotFound, errEntryNotFound)
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

// Clear empties the cache. Metrics are kept.
func (a *API) Clear(w http.ResponseWriter, r *http.Request) error {
	a.Manager.ClearCache()

	w.WriteHeader(http.StatusNoContent)

	return nil
}

// ResetMetrics clears the collected metrics.
func (a *API) ResetMetrics(w http.ResponseWriter, r *http.Request) error {
	a.Manager.ResetMetrics()

	w.WriteHeader(http.StatusNoContent)

	return nil
}

// configPatch is the JSON form of [cachemanager.ConfigUpdate]. Durations are
// in milliseconds.
type configPatch struct {
	MaxSize           *int    `json:"maxSize"`
	TTL               *int64  `json:"ttl"`
	EnablePersistence *bool   `json:"enablePersistence"`
	StorageKey        *string `json:"storageKey"`
}

// UpdateConfig applies a partial cache configuration.
func (a *API) UpdateConfig(w http.ResponseWriter, r *http.Request) error {
	var patch configPatch
	if err := decodeJSON(w, r, &patch, false); err != nil {
		return err
	}

	err := a.Manager.UpdateConfig(cachemanager.ConfigUpdate{
		MaxSize:           patch.MaxSize,
		TTL:               millis(patch.TTL),
		EnablePersistence: patch.EnablePersistence,
		StorageKey:        patch.StorageKey,
	})
	if errors.Is(err, cachemanager.ErrInvalidConfig) {
		return withStatus(http.StatusBadRequest, err)
	}

	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, a.Manager.Config())
}

// preloadPatch is the JSON form of [cachemanager.PreloadUpdate]. Durations
// are in milliseconds.
type preloadPatch struct {
	Enabled          *bool    `json:"enabled"`
	Locales          []string `json:"locales"`
	Concurrency      *int     `json:"concurrency"`
	Rate             *float64 `json:"rate"`
	WarmupDelay      *int64   `json:"warmupDelay"`
	OptimizeInterval *int64   `json:"optimizeInterval"`
}

// UpdatePreloadConfig applies a partial preload configuration.
func (a *API) UpdatePreloadConfig(w http.ResponseWriter, r *http.Request) error {
	var patch preloadPatch
	if err := decodeJSON(w, r, &patch, false); err != nil {
		return err
	}

	err := a.Manager.UpdatePreloadConfig(cachemanager.PreloadUpdate{
		Enabled:          patch.Enabled,
		Locales:          patch.Locales,
		Concurrency:      patch.Concurrency,
		Rate:             patch.Rate,
		WarmupDelay:      millis(patch.WarmupDelay),
		OptimizeInterval: millis(patch.OptimizeInterval),
	})
	if errors.Is(err, cachemanager.ErrInvalidConfig) {
		return withStatus(http.StatusBadRequest, err)
	}

	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, a.Manager.PreloadConfig())
}

func millis(ms *int64) *time.Duration {
	if ms == nil {
		return nil
	}

	d := time.Duration(*ms) * time.Millisecond

	return &d
}
