// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package messages

// Fold walks every leaf of t depth-first and combines the results with combine.
func Fold[A any](t Tree, zero A, leaf func(path string, l Leaf) A, combine func(A, A) A) A {
	return foldTree(t, "", zero, leaf, combine)
}

func foldTree[A any](t Tree, prefix string, acc A, leaf func(string, Leaf) A, combine func(A, A) A) A {
	for k, v := range t {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}

		switch n := v.(type) {
		case Leaf:
			acc = combine(acc, leaf(path, n))
		case Tree:
			acc = foldTree(n, path, acc, leaf, combine)
		}
	}

	return acc
}

// LeafCount reports how many leaves a tree holds and how many of them are non-empty.
type LeafCount struct {
	Total     int
	Populated int
}

func (c LeafCount) add(o LeafCount) LeafCount {
	return LeafCount{Total: c.Total + o.Total, Populated: c.Populated + o.Populated}
}

// CountLeaves counts the leaves of t. Empty strings, including decoded nulls, are unpopulated.
func CountLeaves(t Tree) LeafCount {
	return Fold(t, LeafCount{}, func(_ string, l Leaf) LeafCount {
		c := LeafCount{Total: 1}
		if l != "" {
			c.Populated = 1
		}

		return c
	}, LeafCount.add)
}

// Coverage returns the fraction of leaves in t that hold a non-empty translation.
// A tree without leaves has a coverage of 0.
func Coverage(t Tree) float64 {
	c := CountLeaves(t)
	if c.Total == 0 {
		return 0
	}

	return float64(c.Populated) / float64(c.Total)
}

// CoverageAgainst returns the fraction of the leaf paths in reference that are
// populated in t. It is used to measure a locale against the base locale.
func CoverageAgainst(t, reference Tree) float64 {
	expected := reference.Paths()
	if len(expected) == 0 {
		return 0
	}

	have := t.Flatten()
	populated := 0

	for _, p := range expected {
		if have[p] != "" {
			populated++
		}
	}

	return float64(populated) / float64(len(expected))
}
