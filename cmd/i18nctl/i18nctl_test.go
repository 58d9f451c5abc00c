// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/b2bsite/i18ncache/i18n/cachemanager"
	"codeberg.org/b2bsite/i18ncache/i18n/loader"
	"codeberg.org/b2bsite/i18ncache/i18n/messages"
	"codeberg.org/b2bsite/i18ncache/i18n/persist"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestSplitLocale(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()

	writeFile(t, filepath.Join(src, "en.json"),
		`{"navigation":{"home":"Home","about":"About"},"seo":{"title":"T"},"blog":{"title":"Blog"}}`)

	res, err := splitLocale(context.Background(), src, out, "en", messages.CriticalPrefixes)
	require.NoError(t, err)

	assert.Equal(t, splitResult{Locale: "en", Total: 4, Critical: 3, Deferred: 1}, res)

	critical, err := loader.NewFS(os.DirFS(out)).Load(context.Background(), "en", loader.NamespaceCritical)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"navigation.home":  "Home",
		"navigation.about": "About",
		"seo.title":        "T",
	}, critical.Flatten())

	data, err := os.ReadFile(filepath.Join(out, "en", "deferred.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"blog":{"title":"Blog"}}`, string(data))

	_, err = splitLocale(context.Background(), src, out, "fr", messages.CriticalPrefixes)
	require.ErrorIs(t, err, loader.ErrNotFound)
}

func TestCoverageReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "en.json"), `{"a":"A","b":"B","c":"C","d":"D"}`)
	writeFile(t, filepath.Join(dir, "zh.yaml"), "a: 甲\nb: \"\"\n")

	rows, err := coverageReport(context.Background(), loader.NewFS(os.DirFS(dir)), "en", []string{"en", "zh"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, coverageRow{Locale: "en", Leaves: 4, Populated: 4, Coverage: 1, AgainstBase: 1}, rows[0])
	assert.Equal(t, coverageRow{Locale: "zh", Leaves: 2, Populated: 1, Coverage: 0.5, AgainstBase: 0.25}, rows[1])

	var buf bytes.Buffer
	require.NoError(t, printCoverage(&buf, rows))
	assert.Contains(t, buf.String(), "zh")
	assert.Contains(t, buf.String(), "25.0%")
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	flags := storeFlags{
		opts: persist.Options{Backend: persist.BackendFile, Path: filepath.Join(dir, "store"), Compress: true},
		key:  "i18n-cache",
	}

	const snap = `{"version":1,"timestamp":0,"entries":[` +
		`{"key":"en","value":{"a":"A"},"createdAt":1,"lastAccessedAt":2,"hitCount":3}]}`

	in := filepath.Join(dir, "in.json")
	writeFile(t, in, snap)

	require.NoError(t, importSnapshot(context.Background(), flags, in))

	out := filepath.Join(dir, "out.json")
	require.NoError(t, exportSnapshot(context.Background(), flags, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, snap, string(data))

	n, err := cachemanager.ValidateSnapshot(string(data))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportSnapshot_Invalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	writeFile(t, in, `[]`)

	err := importSnapshot(context.Background(), storeFlags{
		opts: persist.Options{Backend: persist.BackendFile, Path: dir},
		key:  "k",
	}, in)
	require.ErrorIs(t, err, cachemanager.ErrInvalidCacheData)

	_, err = os.Stat(filepath.Join(dir, "k.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestExportSnapshot_Missing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := exportSnapshot(context.Background(), storeFlags{
		opts: persist.Options{Backend: persist.BackendFile, Path: dir},
		key:  "absent",
	}, filepath.Join(dir, "out.json"))
	require.ErrorIs(t, err, persist.ErrNotFound)
}
