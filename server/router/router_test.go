// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"codeberg.org/b2bsite/i18ncache/i18n/cachemanager"
	"codeberg.org/b2bsite/i18ncache/i18n/loader"
	"codeberg.org/b2bsite/i18ncache/i18n/messages"
	"codeberg.org/b2bsite/i18ncache/i18n/metrics"
	"codeberg.org/b2bsite/i18ncache/server/routes"
)

var catalogues = map[string]messages.Tree{
	"en": {"greeting": messages.Leaf("hi"), "navigation": messages.Tree{"home": messages.Leaf("Home")}},
	"zh": {"greeting": messages.Leaf("你好"), "navigation": messages.Tree{"home": messages.Leaf("首页")}},
}

type recordingLoader struct {
	mu         sync.Mutex
	namespaces []string
}

func (l *recordingLoader) Load(_ context.Context, locale, namespace string) (messages.Tree, error) {
	l.mu.Lock()
	l.namespaces = append(l.namespaces, namespace)
	l.mu.Unlock()

	tree, ok := catalogues[locale]
	if !ok {
		return nil, loader.ErrNotFound
	}

	if namespace != "" {
		sub, ok := tree.Subtree(namespace)
		if !ok {
			return nil, loader.ErrNotFound
		}

		return sub, nil
	}

	return tree, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *cachemanager.Manager, *recordingLoader) {
	t.Helper()

	l := &recordingLoader{}

	mgr, err := cachemanager.New(
		cachemanager.Config{MaxSize: 10, TTL: time.Hour, StorageKey: cachemanager.DefaultStorageKey},
		l,
		cachemanager.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewPrometheusCollector(mgr.Collector(), "i18ncache"))

	router := NewRouter()
	router.DefineRoutes(routes.NewAPI(mgr), registry)
	router.RegisterMiddleware()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, mgr, l
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(data)
}

func TestMessages(t *testing.T) {
	t.Parallel()

	srv, mgr, l := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/api/messages/zh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"greeting":"你好","navigation":{"home":"首页"}}`, body)
	assert.Equal(t, "zh", resp.Header.Get("Content-Language"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.True(t, mgr.HasMessages("zh", ""))

	resp, body = do(t, srv, http.MethodGet, "/api/messages/zh?ns=navigation", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"home":"首页"}`, body)
	assert.True(t, mgr.HasMessages("zh", "navigation"))

	l.mu.Lock()
	assert.Equal(t, []string{"", "navigation"}, l.namespaces)
	l.mu.Unlock()

	resp, body = do(t, srv, http.MethodGet, "/api/messages/fr", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int64(http.StatusNotFound), gjson.Get(body, "status").Int())
	assert.NotEmpty(t, gjson.Get(body, "requestId").String())

	resp, _ = do(t, srv, http.MethodGet, "/api/messages/not_a_locale!", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequestMessages(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	// Without i18n setup every request negotiates the base locale.
	resp, body := do(t, srv, http.MethodGet, "/api/messages", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "hi", gjson.Get(body, "greeting").String())
}

func TestCacheRoutes(t *testing.T) {
	t.Parallel()

	srv, mgr, _ := newTestServer(t)

	do(t, srv, http.MethodGet, "/api/messages/en", "")
	do(t, srv, http.MethodGet, "/api/messages/zh", "")

	resp, exported := do(t, srv, http.MethodGet, "/api/cache/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2), gjson.Get(exported, "entries.#").Int())

	resp, _ = do(t, srv, http.MethodDelete, "/api/cache/entries/zh", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/api/cache/entries/zh", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/api/cache", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, mgr.CacheSize())

	resp, body := do(t, srv, http.MethodPost, "/api/cache/import", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, gjson.Get(body, "error").String(), "invalid cache data format")

	resp, _ = do(t, srv, http.MethodPost, "/api/cache/import", exported)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"en", "zh"}, mgr.CachedKeys())

	resp, body = do(t, srv, http.MethodGet, "/api/cache/debug", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2), gjson.Get(body, "keys.#").Int())
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	resp, body = do(t, srv, http.MethodGet, "/api/cache/health", "")
	healthy := gjson.Get(body, "isHealthy").Bool()
	if healthy {
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	} else {
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}

	resp, _ = do(t, srv, http.MethodGet, "/api/cache/report", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPost, "/api/cache/optimize", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, gjson.Get(body, "removed").Exists())
}

func TestPreloadRoutes(t *testing.T) {
	t.Parallel()

	srv, mgr, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/cache/preload", `{"locales":["en","fr"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var res cachemanager.PreloadResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.Equal(t, []string{"en"}, res.Loaded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "fr", res.Failed[0].Locale)

	resp, body = do(t, srv, http.MethodPost, "/api/cache/preload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.True(t, mgr.HasMessages("zh", ""), "an empty body preloads the configured locales")

	resp, body = do(t, srv, http.MethodGet, "/api/cache/preload", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, gjson.Get(body, "preloading").Bool())
	assert.InDelta(t, 100.0, gjson.Get(body, "progress").Float(), 0)

	resp, _ = do(t, srv, http.MethodDelete, "/api/cache/preload", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestUpdateConfigRoutes(t *testing.T) {
	t.Parallel()

	srv, mgr, _ := newTestServer(t)

	resp, _ := do(t, srv, http.MethodPatch, "/api/cache/config", `{"maxSize":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPatch, "/api/cache/config", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, srv, http.MethodPatch, "/api/cache/config", `{"maxSize":1,"ttl":60000}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"maxSize":1,"ttl":60000,"enablePersistence":false,"storageKey":"i18n-cache"}`, body)
	assert.Equal(t, time.Minute, mgr.Config().TTL)

	resp, body = do(t, srv, http.MethodPatch, "/api/cache/preload-config", `{"concurrency":4,"warmupDelay":250}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, int64(4), gjson.Get(body, "concurrency").Int())
	assert.Equal(t, int64(250), gjson.Get(body, "warmupDelay").Int())

	resp, _ = do(t, srv, http.MethodPatch, "/api/cache/preload-config", `{"concurrency":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsAndMisc(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	do(t, srv, http.MethodGet, "/api/messages/en", "")
	do(t, srv, http.MethodGet, "/api/messages/en", "")

	resp, body := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "i18ncache_i18n_cache_hits_total 1")
	assert.Contains(t, body, `i18ncache_i18n_cache_locale_requests_total{locale="en"} 2`)

	resp, _ = do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/api/cache/health/", "")
	assert.Equal(t, http.StatusPermanentRedirect, resp.StatusCode)
	assert.Equal(t, "/api/cache/health", resp.Header.Get("Location"))

	resp, body = do(t, srv, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", gjson.Get(body, "error").String())
}
