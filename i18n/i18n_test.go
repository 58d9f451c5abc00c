// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"codeberg.org/b2bsite/i18ncache/i18n/loader"
	"codeberg.org/b2bsite/i18ncache/i18n/messages"
)

var catalogues = map[string]messages.Tree{
	"en": {
		"navigation": messages.Tree{"home": messages.Leaf("Home")},
		"home": messages.Tree{
			"welcome": messages.Leaf("Welcome, {{.Name}}!"),
			"only":    messages.Leaf("English only"),
		},
		"common": messages.Tree{
			"items": messages.Tree{
				"one":   messages.Leaf("{{.Count}} item"),
				"other": messages.Leaf("{{.Count}} items"),
			},
		},
	},
	"zh": {
		"navigation": messages.Tree{"home": messages.Leaf("首页")},
		"home": messages.Tree{
			"welcome": messages.Leaf("欢迎，{{.Name}}！"),
			"only":    messages.Leaf(""),
		},
	},
}

type mapSource map[string]messages.Tree

func (s mapSource) GetMessages(_ context.Context, locale, _ string) (messages.Tree, error) {
	tree, ok := s[locale]
	if !ok {
		return nil, loader.ErrNotFound
	}

	return tree, nil
}

func setup(t *testing.T, strict bool) {
	t.Helper()

	require.NoError(t, Setup(mapSource(catalogues), Options{
		Locales:           []string{"en", "zh", "not a locale!"},
		StrictMissingKeys: strict,
	}))
}

func TestSetup(t *testing.T) {
	require.ErrorIs(t, Setup(nil, Options{}), errNoSource)

	setup(t, false)

	assert.Equal(t, []language.Tag{language.English, language.Chinese}, Languages())
	assert.True(t, Supported("zh"))
	assert.False(t, Supported("fr"))
}

func TestFromRequest(t *testing.T) {
	setup(t, false)

	for name, tc := range map[string]struct {
		url    string
		cookie string
		accept string
		want   string
	}{
		"default":           {url: "/", want: "en"},
		"accept language":   {url: "/", accept: "zh-CN,zh;q=0.9", want: "zh"},
		"cookie":            {url: "/", cookie: "zh", accept: "en", want: "zh"},
		"query beats all":   {url: "/?lang=en", cookie: "zh", accept: "zh", want: "en"},
		"auto skips cookie": {url: "/?lang=auto", cookie: "zh", accept: "en", want: "en"},
		"unsupported":       {url: "/?lang=fr", want: "en"},
	} {
		r := httptest.NewRequest(http.MethodGet, tc.url, nil)
		if tc.cookie != "" {
			r.AddCookie(&http.Cookie{Name: LangCookie, Value: tc.cookie})
		}

		if tc.accept != "" {
			r.Header.Set("Accept-Language", tc.accept)
		}

		ctx := WithRequest(context.Background(), r)
		assert.Equal(t, tc.want, LocaleFrom(ctx), name)
	}

	assert.Equal(t, baseTag, FromRequest(nil))
}

func TestTr(t *testing.T) {
	setup(t, false)

	zh := WithTag(context.Background(), language.Chinese)
	en := context.Background()

	assert.Equal(t, "Home", Tr(en, "navigation.home"))
	assert.Equal(t, "首页", Tr(zh, "navigation.home"))
	assert.Equal(t, "欢迎，Ada！", Tr(zh, "home.welcome", "Name", "Ada"))
	assert.Equal(t, "English only", Tr(zh, "home.only"), "empty translations fall back to the base locale")
	assert.Equal(t, "missing.key", Tr(zh, "missing.key"))

	assert.Equal(t, "1 item", TrN(en, "common.items", 1, "Count", 1))
	assert.Equal(t, "3 items", TrN(zh, "common.items", 3, "Count", 3))

	// A missing placeholder value leaves the text unrendered.
	assert.Equal(t, "Welcome, {{.Name}}!", Tr(en, "home.welcome"))

	assert.PanicsWithValue(t, "i18n.V: odd number of arguments, want key, value pairs", func() {
		Tr(en, "home.welcome", "Name")
	})
}

func TestTr_Strict(t *testing.T) {
	setup(t, true)

	assert.Equal(t, "⟦missing.key⟧", Tr(context.Background(), "missing.key"))
	assert.Equal(t, "⟦Welcome, {{.Name}}!⟧", Tr(context.Background(), "home.welcome"))
	assert.Equal(t, "Home", Tr(context.Background(), "navigation.home"))
}

func TestUserError(t *testing.T) {
	setup(t, false)

	err := NewUserError(WithTag(context.Background(), language.Chinese), "navigation.home")
	assert.EqualError(t, err, "首页")
}
