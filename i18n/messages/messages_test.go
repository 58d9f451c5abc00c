// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package messages

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
	"greeting": "hi",
	"home": {"hero": {"title": "Welcome", "subtitle": ""}, "about": "About us"},
	"count": 3,
	"flag": true,
	"missing": null
}`

func TestParse(t *testing.T) {
	t.Parallel()

	tree, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, Leaf("hi"), tree["greeting"])
	assert.Equal(t, Leaf("3"), tree["count"])
	assert.Equal(t, Leaf("true"), tree["flag"])
	assert.Equal(t, Leaf(""), tree["missing"])

	title, ok := tree.Lookup("home.hero.title")
	assert.True(t, ok)
	assert.Equal(t, "Welcome", title)

	_, ok = tree.Lookup("home.hero")
	assert.False(t, ok, "subtree is not a leaf")

	_, ok = tree.Lookup("home.nothing.here")
	assert.False(t, ok)

	hero, ok := tree.Subtree("home.hero")
	require.True(t, ok)
	assert.Len(t, hero, 2)
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	for name, input := range map[string]string{
		"Array":    `{"list": ["a", "b"]}`,
		"NullRoot": `null`,
		"Garbage":  `not-json`,
		"RootList": `[]`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte(`{"nested": {"list": [1]}}`))
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	tree, err := Parse([]byte(sample))
	require.NoError(t, err)

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, tree, back)
}

func TestFromMap(t *testing.T) {
	t.Parallel()

	tree, err := FromMap(map[string]any{
		"a": "x",
		"b": map[string]any{"c": int64(2), "d": 1.5},
		"e": map[any]any{"f": nil},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a": "x", "b.c": "2", "b.d": "1.5", "e.f": ""}, tree.Flatten())

	_, err = FromMap(map[string]any{"bad": []any{"x"}})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestCoverage(t *testing.T) {
	t.Parallel()

	t.Run("AllPopulated", func(t *testing.T) {
		t.Parallel()

		tree := Tree{"a": Leaf("x"), "b": Tree{"c": Leaf("y")}}
		assert.InDelta(t, 1.0, Coverage(tree), 1e-9)
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()

		assert.Zero(t, Coverage(Tree{}))
		assert.Zero(t, Coverage(nil))
		assert.Zero(t, Coverage(Tree{"only": Tree{}}))
	})

	t.Run("NullAndEmptyLeavesAreUncovered", func(t *testing.T) {
		t.Parallel()

		tree, err := Parse([]byte(sample))
		require.NoError(t, err)

		// 7 leaves: greeting, title, subtitle(""), about, count, flag, missing(null)
		assert.Equal(t, LeafCount{Total: 7, Populated: 5}, CountLeaves(tree))
		assert.InDelta(t, 5.0/7.0, Coverage(tree), 1e-9)
	})

	t.Run("AgainstReference", func(t *testing.T) {
		t.Parallel()

		ref := Tree{"a": Leaf("A"), "b": Leaf("B"), "c": Tree{"d": Leaf("D")}}
		zh := Tree{"a": Leaf("甲"), "c": Tree{"d": Leaf("")}, "extra": Leaf("x")}

		assert.InDelta(t, 1.0/3.0, CoverageAgainst(zh, ref), 1e-9)
		assert.Zero(t, CoverageAgainst(zh, Tree{}))
	})
}

func TestMerge(t *testing.T) {
	t.Parallel()

	base := Tree{"a": Leaf("1"), "n": Tree{"x": Leaf("x"), "y": Leaf("y")}}
	overlay := Tree{"b": Leaf("2"), "n": Tree{"y": Leaf("Y"), "z": Leaf("z")}}

	merged := Merge(base, overlay)

	assert.Equal(t, map[string]string{"a": "1", "b": "2", "n.x": "x", "n.y": "Y", "n.z": "z"}, merged.Flatten())
	assert.Equal(t, Leaf("y"), base["n"].(Tree)["y"], "inputs are not modified")

	assert.Equal(t, overlay.Flatten(), Merge(nil, overlay).Flatten())
}

func TestSplit(t *testing.T) {
	t.Parallel()

	tree := Tree{
		"home": Tree{
			"hero":     Tree{"title": Leaf("Welcome")},
			"features": Tree{"one": Leaf("Fast")},
		},
		"navigation": Tree{"home": Leaf("Home")},
		"common":     Tree{"loading": Leaf("Loading"), "save": Leaf("Save")},
		"blog":       Leaf("Blog"),
	}

	critical, deferred := Split(tree, CriticalPrefixes)

	assert.Equal(t, []string{"common.loading", "home.hero.title", "navigation.home"}, critical.Paths())
	assert.Equal(t, []string{"blog", "common.save", "home.features.one"}, deferred.Paths())

	assert.Equal(t, tree.Flatten(), Merge(critical, deferred).Flatten())
	assert.Equal(t, CountLeaves(tree).Total, CountLeaves(critical).Total+CountLeaves(deferred).Total)
}

func TestIsCritical(t *testing.T) {
	t.Parallel()

	assert.True(t, IsCritical("seo", CriticalPrefixes))
	assert.True(t, IsCritical("seo.title", CriticalPrefixes))
	assert.False(t, IsCritical("seoExtra", CriticalPrefixes))
	assert.False(t, IsCritical("home", CriticalPrefixes))
}

func TestCloneAndSize(t *testing.T) {
	t.Parallel()

	orig := Tree{"ab": Leaf("xyz"), "n": Tree{"k": Leaf("v")}}
	cp := Clone(orig)
	cp["n"].(Tree)["k"] = Leaf("changed")

	assert.Equal(t, Leaf("v"), orig["n"].(Tree)["k"])
	assert.Equal(t, 2+3+1+1+1, Size(orig))
	assert.Nil(t, Clone(nil))
}
