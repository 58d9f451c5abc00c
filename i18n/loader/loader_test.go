// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/b2bsite/i18ncache/i18n/messages"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"en/critical.json": {Data: []byte(`{"navigation": {"home": "Home"}, "seo": {"title": "Site"}}`)},
		"en/deferred.json": {Data: []byte(`{"blog": {"title": "Blog"}, "footer": {"legal": "Legal"}}`)},
		"zh.yaml": {Data: []byte(`
navigation:
  home: 首页
blog:
  title: 博客
  count: 3
`)},
		"fr.toml": {Data: []byte(`
[navigation]
home = "Accueil"

[blog]
title = ""
`)},
		"bad.json": {Data: []byte(`{"navigation": ["not", "allowed"]}`)},
	}
}

func TestFS_Load(t *testing.T) {
	t.Parallel()

	l := NewFS(testFS())
	ctx := context.Background()

	t.Run("SplitCatalogueMerged", func(t *testing.T) {
		t.Parallel()

		tree, err := l.Load(ctx, "en", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"blog.title", "footer.legal", "navigation.home", "seo.title"}, tree.Paths())
	})

	t.Run("SplitCatalogueNamespace", func(t *testing.T) {
		t.Parallel()

		tree, err := l.Load(ctx, "en", NamespaceDeferred)
		require.NoError(t, err)
		assert.Equal(t, []string{"blog.title", "footer.legal"}, tree.Paths())
	})

	t.Run("YAML", func(t *testing.T) {
		t.Parallel()

		tree, err := l.Load(ctx, "zh", "")
		require.NoError(t, err)

		home, _ := tree.Lookup("navigation.home")
		assert.Equal(t, "首页", home)

		count, _ := tree.Lookup("blog.count")
		assert.Equal(t, "3", count)
	})

	t.Run("SingleFileCriticalNamespace", func(t *testing.T) {
		t.Parallel()

		tree, err := l.Load(ctx, "zh", NamespaceCritical)
		require.NoError(t, err)
		assert.Equal(t, []string{"navigation.home"}, tree.Paths())
	})

	t.Run("TOML", func(t *testing.T) {
		t.Parallel()

		tree, err := l.Load(ctx, "fr", "")
		require.NoError(t, err)
		assert.InDelta(t, 0.5, messages.Coverage(tree), 1e-9)
	})

	t.Run("SubtreeNamespace", func(t *testing.T) {
		t.Parallel()

		tree, err := l.Load(ctx, "en", "blog")
		require.NoError(t, err)
		assert.Equal(t, messages.Tree{"title": messages.Leaf("Blog")}, tree)

		_, err = l.Load(ctx, "en", "nothing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Errors", func(t *testing.T) {
		t.Parallel()

		_, err := l.Load(ctx, "de", "")
		require.ErrorIs(t, err, ErrNotFound)

		_, err = l.Load(ctx, "bad", "")
		require.ErrorIs(t, err, messages.ErrUnsupportedValue)

		_, err = l.Load(ctx, "../etc", "")
		require.ErrorIs(t, err, errInvalidLocale)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err = l.Load(cancelled, "en", "")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestHTTP_Load(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/en.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"greeting": "hi"}`))
	})
	mux.HandleFunc("GET /messages/en/critical.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"seo": {"title": "Site"}}`))
	})
	mux.HandleFunc("GET /messages/broken.json", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("GET /messages/slow.json", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	l := NewHTTP(srv.URL+"/messages/", srv.Client(), 200*time.Millisecond)
	ctx := context.Background()

	tree, err := l.Load(ctx, "en", "")
	require.NoError(t, err)
	assert.Equal(t, messages.Tree{"greeting": messages.Leaf("hi")}, tree)

	tree, err = l.Load(ctx, "en", NamespaceCritical)
	require.NoError(t, err)
	assert.Equal(t, []string{"seo.title"}, tree.Paths())

	_, err = l.Load(ctx, "de", "")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.Load(ctx, "broken", "")
	require.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = l.Load(ctx, "slow", "")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPO_Load(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"po/zh_CN.po": {Data: []byte(`msgid ""
msgstr ""
"Content-Type: text/plain; charset=UTF-8\n"
"Language: zh_CN\n"

msgid "navigation.home"
msgstr "首页"

msgid "blog.title"
msgstr "博客"

msgid "blog.empty"
msgstr ""
`)},
	}

	l := NewPO(fsys, "po")

	tree, err := l.Load(context.Background(), "zh-CN", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"blog.empty", "blog.title", "navigation.home"}, tree.Paths())
	assert.InDelta(t, 2.0/3.0, messages.Coverage(tree), 1e-9)

	critical, err := l.Load(context.Background(), "zh-CN", NamespaceCritical)
	require.NoError(t, err)
	assert.Equal(t, []string{"navigation.home"}, critical.Paths())

	_, err = l.Load(context.Background(), "ja", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFunc(t *testing.T) {
	t.Parallel()

	var l Loader = Func(func(_ context.Context, locale, namespace string) (messages.Tree, error) {
		return messages.Tree{"key": messages.Leaf(locale + ":" + namespace)}, nil
	})

	tree, err := l.Load(context.Background(), "en", "ns")
	require.NoError(t, err)
	assert.Equal(t, messages.Leaf("en:ns"), tree["key"])
}
