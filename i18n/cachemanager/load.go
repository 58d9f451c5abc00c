// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cachemanager

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"codeberg.org/b2bsite/i18ncache/i18n/messages"
	"codeberg.org/b2bsite/i18ncache/i18n/metrics"
)

// LoadError is returned when the loader fails for a catalogue.
// Every caller waiting on the same load receives the same *LoadError.
type LoadError struct {
	Key       string
	Locale    string
	Namespace string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load messages for %q: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// GetMessages returns the catalogue for locale and namespace, loading it on a
// miss. Concurrent misses for the same key share a single load.
//
// Cancelling ctx only stops this caller from waiting; the shared load runs to
// completion and still populates the cache.
func (m *Manager) GetMessages(ctx context.Context, locale, namespace string) (messages.Tree, error) {
	key := CacheKey(locale, namespace)

	if tree, ok := m.cache.Get(key); ok {
		m.collector.RecordCacheHit(locale)
		m.collector.RecordLocaleUsage(locale)

		return tree, nil
	}

	m.collector.RecordCacheMiss(locale)

	tree, err := m.load(ctx, locale, namespace)
	if err != nil {
		return nil, err
	}

	m.collector.RecordLocaleUsage(locale)

	return tree, nil
}

// HasMessages reports whether a fresh catalogue is cached for locale and
// namespace. It does not count as a lookup.
func (m *Manager) HasMessages(locale, namespace string) bool {
	return m.cache.Has(CacheKey(locale, namespace))
}

// DeleteMessages removes the entry stored under key.
func (m *Manager) DeleteMessages(key string) bool {
	return m.cache.Delete(key)
}

// PreloadMessages loads the full catalogue of locale into the cache without
// recording a lookup and returns it. It joins a load already in flight for
// the same key.
func (m *Manager) PreloadMessages(ctx context.Context, locale string) (messages.Tree, error) {
	return m.load(ctx, locale, "")
}

// BatchGetMessages fetches the full catalogue of every locale concurrently.
// Locales that fail to load are logged and left out of the result.
func (m *Manager) BatchGetMessages(ctx context.Context, locales []string) map[string]messages.Tree {
	var (
		mu  sync.Mutex
		out = make(map[string]messages.Tree, len(locales))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.PreloadConfig().Concurrency, 1))

	for _, locale := range uniq(locales) {
		g.Go(func() error {
			tree, err := m.GetMessages(gctx, locale, "")
			if err != nil {
				m.logger.Warn().Err(err).Str("locale", locale).Msg("Batch lookup failed")

				return nil
			}

			mu.Lock()
			out[locale] = tree
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return out
}

// load runs the loader for a key through the single-flight group.
func (m *Manager) load(ctx context.Context, locale, namespace string) (messages.Tree, error) {
	key := CacheKey(locale, namespace)

	ch := m.loads.DoChan(key, func() (any, error) {
		m.inFlight.Add(1)
		defer m.inFlight.Add(-1)

		return m.fetch(context.WithoutCancel(ctx), key, locale, namespace)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		tree, _ := res.Val.(messages.Tree)

		return tree, nil
	}
}

func (m *Manager) fetch(ctx context.Context, key, locale, namespace string) (messages.Tree, error) {
	start := m.now()
	m.collector.RecordLoadStart(locale)

	tree, err := m.loader.Load(ctx, locale, namespace)
	if err != nil {
		lerr := &LoadError{Key: key, Locale: locale, Namespace: namespace, Err: err}

		m.collector.RecordError(lerr, metrics.ErrorContext{
			Locale:    locale,
			Namespace: namespace,
			Operation: "load",
		})

		m.logger.Warn().
			Err(err).
			Str("key", key).
			Msg("Failed to load messages")

		return nil, lerr
	}

	if tree == nil {
		tree = messages.Tree{}
	}

	elapsed := m.now().Sub(start)

	m.collector.RecordLoadTime(locale, elapsed)

	if evicted := m.cache.Set(key, tree); evicted {
		m.logger.Debug().Str("key", key).Msg("Evicted least recently used catalogue")
	}

	m.collector.RecordTranslationCoverage(locale, messages.Coverage(tree))

	m.logger.Debug().
		Str("key", key).
		Int("leaves", messages.CountLeaves(tree).Total).
		Dur("dur", elapsed).
		Msg("Loaded messages")

	return tree, nil
}

// CachedLocales returns the distinct locales with at least one fresh cached
// catalogue, least recently used first.
func (m *Manager) CachedLocales() []string {
	seen := make(map[string]struct{})

	var out []string

	for _, key := range m.cache.Keys() {
		locale, _, _ := cutKey(key)
		if _, dup := seen[locale]; dup || !m.cache.Has(key) {
			continue
		}

		seen[locale] = struct{}{}
		out = append(out, locale)
	}

	return out
}

// CachedKeys returns the keys of all cached entries, least recently used first.
func (m *Manager) CachedKeys() []string {
	return m.cache.Keys()
}

// CacheSize returns the number of cached entries.
func (m *Manager) CacheSize() int {
	return m.cache.Len()
}

// ClearCache empties the store. Metrics are kept.
func (m *Manager) ClearCache() {
	m.cache.Clear()
	m.logger.Info().Msg("Message cache cleared")
}

func cutKey(key string) (locale, namespace string, ok bool) {
	return strings.Cut(key, ":")
}

// localeUsage returns the usage counters keyed by locale, including
// configured locales that were never requested.
func localeUsage(snap metrics.Snapshot, configured []string) map[string]int64 {
	usage := maps.Clone(snap.LocaleUsage)
	if usage == nil {
		usage = make(map[string]int64)
	}

	for _, l := range configured {
		if _, ok := usage[l]; !ok {
			usage[l] = 0
		}
	}

	return usage
}
