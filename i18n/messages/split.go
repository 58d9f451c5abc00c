// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package messages

import "strings"

// CriticalPrefixes lists the message paths needed to render the first screen
// and server-side pages. Everything else can be loaded after first paint.
var CriticalPrefixes = []string{
	"home.hero",
	"home.techStack",
	"home.showcase",
	"home.overview",
	"home.cta",
	"navigation",
	"theme",
	"language",
	"footer.sections",
	"seo",
	"structured-data",
	"underConstruction",
	"common.loading",
	"common.error",
	"accessibility",
}

// IsCritical reports whether path equals one of prefixes or lies beneath one.
func IsCritical(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+".") {
			return true
		}
	}

	return false
}

// Split partitions the leaves of t into a critical and a deferred tree.
// Merging the two results reproduces t.
func Split(t Tree, prefixes []string) (critical, deferred Tree) {
	critical, deferred = Tree{}, Tree{}

	for path, value := range t.Flatten() {
		if IsCritical(path, prefixes) {
			setPath(critical, path, Leaf(value))
		} else {
			setPath(deferred, path, Leaf(value))
		}
	}

	return critical, deferred
}

// FromFlat builds a tree from leaves keyed by dot-separated paths, the inverse of [Tree.Flatten].
func FromFlat(flat map[string]string) Tree {
	t := Tree{}
	for path, value := range flat {
		setPath(t, path, Leaf(value))
	}

	return t
}

func setPath(t Tree, path string, leaf Leaf) {
	parts := strings.Split(path, ".")
	current := t

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(Tree)
		if !ok {
			next = Tree{}
			current[part] = next
		}

		current = next
	}

	current[parts[len(parts)-1]] = leaf
}
