// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package loader retrieves message catalogues from their sources.

The cache manager only depends on the [Loader] interface. This package
provides the sources the service runs with:

  - [FS] reads JSON, YAML or TOML catalogues from a directory tree.
  - [HTTP] fetches JSON catalogues from a remote endpoint.
  - [PO] reads GNU gettext .po catalogues.

Loaders report every failure as an error; they never return a partial tree
alongside one.
*/
package loader

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	"codeberg.org/b2bsite/i18ncache/i18n/messages"
)

// Namespaces with a dedicated file in a split catalogue.
const (
	NamespaceCritical = "critical"
	NamespaceDeferred = "deferred"
)

var (
	// ErrNotFound is returned when no catalogue exists for a locale or namespace.
	ErrNotFound = errors.New("catalogue not found")

	// ErrUnexpectedStatus is returned by [HTTP] for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	errUnknownFormat = errors.New("unknown catalogue format")
)

// Loader retrieves the message tree for a locale. An empty namespace requests
// the whole catalogue.
type Loader interface {
	Load(ctx context.Context, locale, namespace string) (messages.Tree, error)
}

// Func adapts a function to the [Loader] interface.
type Func func(ctx context.Context, locale, namespace string) (messages.Tree, error)

// Load calls f.
func (f Func) Load(ctx context.Context, locale, namespace string) (messages.Tree, error) {
	return f(ctx, locale, namespace)
}

// extensions lists the recognised catalogue formats in lookup order.
var extensions = []string{".json", ".yaml", ".yml", ".toml"}

// Decode parses a catalogue according to the extension of name.
func Decode(name string, data []byte) (messages.Tree, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return messages.Parse(data)
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}

		return messages.FromMap(doc)
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}

		return messages.FromMap(doc)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownFormat, name)
	}
}

// selectNamespace narrows a complete catalogue to namespace.
func selectNamespace(full messages.Tree, namespace string, criticalPrefixes []string) (messages.Tree, error) {
	switch namespace {
	case "":
		return full, nil
	case NamespaceCritical:
		critical, _ := messages.Split(full, criticalPrefixes)

		return critical, nil
	case NamespaceDeferred:
		_, deferred := messages.Split(full, criticalPrefixes)

		return deferred, nil
	}

	sub, ok := full.Subtree(namespace)
	if !ok {
		return nil, fmt.Errorf("%w: namespace %q", ErrNotFound, namespace)
	}

	return sub, nil
}
