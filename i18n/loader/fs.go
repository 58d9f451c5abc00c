// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"codeberg.org/b2bsite/i18ncache/i18n/messages"
)

var errInvalidLocale = errors.New("invalid locale")

// FS loads catalogues from a file system laid out as either
//
//	<locale>/critical.json
//	<locale>/deferred.json
//
// or a single file per locale:
//
//	<locale>.json
//
// YAML (.yaml, .yml) and TOML (.toml) files are accepted in place of JSON.
// A split catalogue takes precedence over a single file.
type FS struct {
	fsys fs.FS

	// CriticalPrefixes decides which messages belong to the critical namespace
	// when a locale only has a single file.
	CriticalPrefixes []string
}

// NewFS returns a loader reading from fsys.
func NewFS(fsys fs.FS) *FS {
	return &FS{fsys: fsys, CriticalPrefixes: messages.CriticalPrefixes}
}

// Load implements [Loader].
//
// The critical and deferred namespaces read the matching file of a split catalogue.
// Any other non-empty namespace selects the subtree with that dotted path.
func (l *FS) Load(ctx context.Context, locale, namespace string) (messages.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if locale == "" || !fs.ValidPath(locale) || path.Base(locale) != locale {
		return nil, fmt.Errorf("%w: %q", errInvalidLocale, locale)
	}

	if namespace == NamespaceCritical || namespace == NamespaceDeferred {
		tree, found, err := l.readFirst(path.Join(locale, namespace))
		if err != nil {
			return nil, err
		}

		if found {
			return tree, nil
		}
	}

	full, err := l.loadFull(locale)
	if err != nil {
		return nil, err
	}

	return selectNamespace(full, namespace, l.CriticalPrefixes)
}

func (l *FS) loadFull(locale string) (messages.Tree, error) {
	critical, haveCritical, err := l.readFirst(path.Join(locale, NamespaceCritical))
	if err != nil {
		return nil, err
	}

	deferred, haveDeferred, err := l.readFirst(path.Join(locale, NamespaceDeferred))
	if err != nil {
		return nil, err
	}

	if haveCritical || haveDeferred {
		return messages.Merge(critical, deferred), nil
	}

	tree, found, err := l.readFirst(locale)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: locale %q", ErrNotFound, locale)
	}

	return tree, nil
}

// readFirst decodes the first existing file named base plus a known extension.
func (l *FS) readFirst(base string) (messages.Tree, bool, error) {
	for _, ext := range extensions {
		name := base + ext

		data, err := fs.ReadFile(l.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, false, fmt.Errorf("failed to read %s: %w", name, err)
		}

		tree, err := Decode(name, data)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode %s: %w", name, err)
		}

		return tree, true, nil
	}

	return nil, false, nil
}
