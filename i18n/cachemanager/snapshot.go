// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cachemanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"codeberg.org/b2bsite/i18ncache/core/audit"
	"codeberg.org/b2bsite/i18ncache/core/lrucache"
	"codeberg.org/b2bsite/i18ncache/i18n/messages"
	"codeberg.org/b2bsite/i18ncache/i18n/persist"
)

// SnapshotVersion is written to every exported payload.
const SnapshotVersion = 1

// ErrInvalidCacheData is returned by [Manager.ImportCache] for a payload that
// is not an exported cache.
var ErrInvalidCacheData = errors.New("invalid cache data format")

type snapshot struct {
	Version   int             `json:"version"`
	Timestamp int64           `json:"timestamp"`
	Entries   []snapshotEntry `json:"entries"`
}

type snapshotEntry struct {
	Key            string        `json:"key"`
	Value          messages.Tree `json:"value"`
	CreatedAt      int64         `json:"createdAt"`
	LastAccessedAt int64         `json:"lastAccessedAt"`
	HitCount       int64         `json:"hitCount"`
}

// ExportCache serialises every fresh entry, least recently used first.
// Timestamps are Unix milliseconds.
func (m *Manager) ExportCache() (string, error) {
	now := m.now()

	snap := snapshot{
		Version:   SnapshotVersion,
		Timestamp: now.UnixMilli(),
		Entries:   []snapshotEntry{},
	}

	for _, e := range m.cache.Entries() {
		if now.After(e.ExpiresAt) {
			continue
		}

		snap.Entries = append(snap.Entries, snapshotEntry{
			Key:            e.Key,
			Value:          e.Value,
			CreatedAt:      e.CreatedAt.UnixMilli(),
			LastAccessedAt: e.LastAccessedAt.UnixMilli(),
			HitCount:       e.HitCount,
		})
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache snapshot: %w", err)
	}

	return string(data), nil
}

// ImportCache restores entries from a payload produced by
// [Manager.ExportCache]. The whole payload is validated first: on any error
// the store is left untouched. Entries that expired under the current TTL
// are skipped. Existing entries with the same key are replaced.
func (m *Manager) ImportCache(data string) error {
	entries, err := parseSnapshot(data)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Rejected message cache import")

		return err
	}

	now := m.now()
	ttl := m.cache.TTL()
	imported := 0

	for _, e := range entries {
		if now.After(e.CreatedAt.Add(ttl)) {
			continue
		}

		m.cache.Restore(e)
		imported++
	}

	m.logger.Info().
		Int("entries", len(entries)).
		Int("imported", imported).
		Msg("Imported message cache")

	return nil
}

// ValidateSnapshot checks that data is an exported cache and returns the
// number of entries it holds.
func ValidateSnapshot(data string) (int, error) {
	entries, err := parseSnapshot(data)

	return len(entries), err
}

func parseSnapshot(data string) ([]lrucache.Entry[messages.Tree], error) {
	if !gjson.Valid(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidCacheData)
	}

	root := gjson.Parse(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidCacheData)
	}

	list := root.Get("entries")
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: missing entries", ErrInvalidCacheData)
	}

	var (
		out     []lrucache.Entry[messages.Tree]
		loopErr error
	)

	list.ForEach(func(idx, item gjson.Result) bool {
		entry, err := parseSnapshotEntry(item)
		if err != nil {
			loopErr = fmt.Errorf("%w: entry %d: %w", ErrInvalidCacheData, idx.Int(), err)

			return false
		}

		out = append(out, entry)

		return true
	})

	if loopErr != nil {
		return nil, loopErr
	}

	return out, nil
}

func parseSnapshotEntry(item gjson.Result) (lrucache.Entry[messages.Tree], error) {
	var zero lrucache.Entry[messages.Tree]

	if !item.IsObject() {
		return zero, errors.New("not an object")
	}

	key := item.Get("key")
	if key.Type != gjson.String || key.Str == "" {
		return zero, errors.New("key must be a non-empty string")
	}

	value := item.Get("value")
	if !value.IsObject() {
		return zero, errors.New("value must be an object")
	}

	tree, err := messages.Parse([]byte(value.Raw))
	if err != nil {
		return zero, err
	}

	timestamps := [2]time.Time{}

	for i, field := range []string{"createdAt", "lastAccessedAt"} {
		ts := item.Get(field)
		if ts.Type != gjson.Number {
			return zero, fmt.Errorf("%s must be a number", field)
		}

		timestamps[i] = time.UnixMilli(ts.Int())
	}

	hits := item.Get("hitCount")
	if hits.Exists() && hits.Type != gjson.Number {
		return zero, errors.New("hitCount must be a number")
	}

	return lrucache.Entry[messages.Tree]{
		Key:            key.Str,
		Value:          tree,
		CreatedAt:      timestamps[0],
		LastAccessedAt: timestamps[1],
		HitCount:       hits.Int(),
	}, nil
}

// SaveToStorage writes an export of the cache to the configured store.
// It does nothing when persistence is disabled or no store is configured.
func (m *Manager) SaveToStorage(ctx context.Context) (err error) {
	cfg := m.Config()
	if !cfg.EnablePersistence || m.storage == nil {
		return nil
	}

	data, err := m.ExportCache()
	if err != nil {
		return err
	}

	span := audit.Span{
		Destination: audit.ToStorage,
		RequestID:   audit.RequestIDFrom(ctx),
		Method:      "SAVE",
		URL:         cfg.StorageKey,
		Size:        len(data),
	}
	ctx = span.Begin(ctx)

	defer func() {
		span.Error = err
		span.End()
		span.Log()
	}()

	if err := m.storage.Save(ctx, cfg.StorageKey, []byte(data)); err != nil {
		return fmt.Errorf("failed to save message cache: %w", err)
	}

	return nil
}

// LoadFromStorage imports the snapshot saved under the storage key.
// A missing snapshot is not an error.
func (m *Manager) LoadFromStorage(ctx context.Context) (err error) {
	cfg := m.Config()
	if !cfg.EnablePersistence || m.storage == nil {
		return nil
	}

	span := audit.Span{
		Destination: audit.ToStorage,
		RequestID:   audit.RequestIDFrom(ctx),
		Method:      "LOAD",
		URL:         cfg.StorageKey,
	}
	ctx = span.Begin(ctx)

	defer func() {
		span.Error = err
		span.End()
		span.Log()
	}()

	data, err := m.storage.Load(ctx, cfg.StorageKey)
	if errors.Is(err, persist.ErrNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read message cache: %w", err)
	}

	span.Size = len(data)

	return m.ImportCache(string(data))
}
