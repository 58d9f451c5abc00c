// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package messages models a locale's message catalogue as a recursive tree.

A catalogue is a mapping from string keys to either translated strings
([Leaf]) or further nested mappings ([Tree]):

	{"home": {"hero": {"title": "Welcome"}}, "footer": "©"}

Trees decode from JSON directly and from YAML or TOML through [FromMap].
Functions in this package treat trees as immutable values; use [Clone]
before mutating a tree that is shared, such as one returned by a cache.
*/
package messages

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ErrUnsupportedValue is returned when a catalogue contains a value that is neither
// a string nor a mapping, such as an array.
var ErrUnsupportedValue = errors.New("unsupported message value")

// Node is either a [Leaf] or a [Tree].
type Node interface {
	isNode()
}

// Leaf is a single translated string. An empty leaf is an untranslated message.
type Leaf string

// Tree maps message keys to nested nodes.
type Tree map[string]Node

func (Leaf) isNode() {}
func (Tree) isNode() {}

// UnmarshalJSON decodes a JSON object into t.
//
// Strings become leaves and objects become subtrees. A null becomes an empty leaf,
// and numbers and booleans become leaves holding their literal text. Arrays are rejected.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw == nil {
		return fmt.Errorf("%w: catalogue root must be an object", ErrUnsupportedValue)
	}

	tree := make(Tree, len(raw))

	for k, v := range raw {
		node, err := decodeRaw(v)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}

		tree[k] = node
	}

	*t = tree

	return nil
}

func decodeRaw(data json.RawMessage) (Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Leaf(""), nil
	}

	switch trimmed[0] {
	case '{':
		var sub Tree
		if err := sub.UnmarshalJSON(trimmed); err != nil {
			return nil, err
		}

		return sub, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}

		return Leaf(s), nil
	case '[':
		return nil, fmt.Errorf("%w: array", ErrUnsupportedValue)
	case 'n':
		return Leaf(""), nil
	default:
		// number or boolean literal
		return Leaf(trimmed), nil
	}
}

// MarshalJSON encodes a leaf as a JSON string.
func (l Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(l))
}

// MarshalJSON encodes a tree as a JSON object with sorted keys.
func (t Tree) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(map[string]Node(t))
}

// Parse decodes a JSON catalogue.
func Parse(data []byte) (Tree, error) {
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}

	return t, nil
}

// FromMap converts a generic decoded document, as produced by the YAML and
// TOML decoders, into a tree using the same rules as [Tree.UnmarshalJSON].
func FromMap(m map[string]any) (Tree, error) {
	tree := make(Tree, len(m))

	for k, v := range m {
		node, err := fromAny(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}

		tree[k] = node
	}

	return tree, nil
}

func fromAny(v any) (Node, error) {
	switch val := v.(type) {
	case nil:
		return Leaf(""), nil
	case string:
		return Leaf(val), nil
	case bool:
		return Leaf(strconv.FormatBool(val)), nil
	case int:
		return Leaf(strconv.Itoa(val)), nil
	case int64:
		return Leaf(strconv.FormatInt(val, 10)), nil
	case uint64:
		return Leaf(strconv.FormatUint(val, 10)), nil
	case float64:
		return Leaf(strconv.FormatFloat(val, 'f', -1, 64)), nil
	case map[string]any:
		return FromMap(val)
	case map[any]any:
		converted := make(map[string]any, len(val))
		for k, inner := range val {
			converted[fmt.Sprint(k)] = inner
		}

		return FromMap(converted)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// Lookup resolves a dot-separated path such as "home.hero.title" to a leaf.
func (t Tree) Lookup(path string) (string, bool) {
	var node Node = t

	for part := range strings.SplitSeq(path, ".") {
		sub, ok := node.(Tree)
		if !ok {
			return "", false
		}

		node, ok = sub[part]
		if !ok {
			return "", false
		}
	}

	leaf, ok := node.(Leaf)

	return string(leaf), ok
}

// Subtree returns the tree at a dot-separated path.
func (t Tree) Subtree(path string) (Tree, bool) {
	var node Node = t

	for part := range strings.SplitSeq(path, ".") {
		sub, ok := node.(Tree)
		if !ok {
			return nil, false
		}

		node, ok = sub[part]
		if !ok {
			return nil, false
		}
	}

	sub, ok := node.(Tree)

	return sub, ok
}

// Flatten returns every leaf keyed by its dot-separated path.
func (t Tree) Flatten() map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", t)

	return out
}

func flattenInto(out map[string]string, prefix string, t Tree) {
	for k, v := range t {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}

		switch n := v.(type) {
		case Leaf:
			out[path] = string(n)
		case Tree:
			flattenInto(out, path, n)
		}
	}
}

// Paths returns the dot-separated path of every leaf in sorted order.
func (t Tree) Paths() []string {
	return slices.Sorted(maps.Keys(t.Flatten()))
}

// Clone returns a deep copy of t.
func Clone(t Tree) Tree {
	if t == nil {
		return nil
	}

	out := make(Tree, len(t))

	for k, v := range t {
		if sub, ok := v.(Tree); ok {
			out[k] = Clone(sub)
		} else {
			out[k] = v
		}
	}

	return out
}

// Merge returns a new tree holding base overlaid with overlay.
// Subtrees present in both are merged recursively; otherwise overlay wins.
func Merge(base, overlay Tree) Tree {
	out := Clone(base)
	if out == nil {
		out = make(Tree, len(overlay))
	}

	for k, v := range overlay {
		existing, ok := out[k].(Tree)
		incoming, isTree := v.(Tree)

		if ok && isTree {
			out[k] = Merge(existing, incoming)

			continue
		}

		if isTree {
			out[k] = Clone(incoming)
		} else {
			out[k] = v
		}
	}

	return out
}

// Size estimates the bytes held by t: the lengths of every key and leaf.
func Size(t Tree) int {
	n := 0

	for k, v := range t {
		n += len(k)

		switch node := v.(type) {
		case Leaf:
			n += len(node)
		case Tree:
			n += Size(node)
		}
	}

	return n
}
