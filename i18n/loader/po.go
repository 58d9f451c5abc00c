// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/leonelquinteros/gotext"

	"codeberg.org/b2bsite/i18ncache/i18n/messages"
)

// PO loads GNU gettext catalogues laid out as
//
//	<dir>/<locale>.po
//
// Message ids are dot-separated message paths, for example "home.hero.title".
// A msgid without a msgstr becomes an empty leaf, so it counts as untranslated.
// The locale part of the filename may use a hyphen or an underscore.
type PO struct {
	fsys fs.FS
	dir  string

	CriticalPrefixes []string
}

// NewPO returns a loader reading .po files from dir within fsys.
func NewPO(fsys fs.FS, dir string) *PO {
	return &PO{fsys: fsys, dir: dir, CriticalPrefixes: messages.CriticalPrefixes}
}

// Load implements [Loader].
func (l *PO) Load(ctx context.Context, locale, namespace string) (messages.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if locale == "" || strings.ContainsAny(locale, "/\\") {
		return nil, fmt.Errorf("%w: %q", errInvalidLocale, locale)
	}

	name, err := l.find(locale)
	if err != nil {
		return nil, err
	}

	po := gotext.NewPoFS(l.fsys)
	po.ParseFile(name)

	flat := make(map[string]string)

	for id, tr := range po.GetDomain().GetTranslations() {
		if id == "" {
			continue
		}

		flat[id] = tr.Trs[0]
	}

	return selectNamespace(messages.FromFlat(flat), namespace, l.CriticalPrefixes)
}

func (l *PO) find(locale string) (string, error) {
	candidates := []string{
		locale,
		strings.ReplaceAll(locale, "-", "_"),
		strings.ReplaceAll(locale, "_", "-"),
	}

	for _, c := range candidates {
		name := path.Join(l.dir, c+".po")

		_, err := fs.Stat(l.fsys, name)
		if err == nil {
			return name, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %s: %w", name, err)
		}
	}

	return "", fmt.Errorf("%w: locale %q", ErrNotFound, locale)
}
