// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// BaseLocale is the default locale used when no specific locale is set.
const BaseLocale = "en"

// baseTag is the canonical tag for BaseLocale.
var baseTag = language.Make(BaseLocale)

// Languages returns the supported language tags, sorted by tag string.
// The returned slice is a copy and is safe to retain.
//
// Setup must be called successfully before using Languages; otherwise it panics.
func Languages() []language.Tag {
	m := current()
	if m == nil {
		panic("i18n: Setup must be called before calling Languages")
	}

	out := slices.Clone(m.tags)
	slices.SortFunc(out, func(a, b language.Tag) int { return strings.Compare(a.String(), b.String()) })

	return out
}

// Locale maps t to the name of the closest supported locale, as passed to
// [Setup]. Without Setup it returns [BaseLocale].
func Locale(t language.Tag) string {
	m := current()
	if m == nil {
		return BaseLocale
	}

	_, idx, conf := m.matcher.Match(t)
	if conf == language.No {
		return BaseLocale
	}

	return m.names[idx]
}

// Supported reports whether name is one of the locales passed to [Setup].
func Supported(name string) bool {
	m := current()
	if m == nil {
		return name == BaseLocale
	}

	return slices.Contains(m.names, name)
}
