// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package i18n resolves the locale of a request and translates dotted message
keys against the catalogues held by the message cache.

# Quick start

Call [Setup] once with the supported locales and a [Source], usually the
cache manager, then translate with:

	i18n.Tr(ctx, "navigation.home")
	i18n.Tr(ctx, "home.hero.welcome", "Name", user.Name)
	i18n.TrN(ctx, "common.items", n, "Count", n)

The locale is taken from ctx, see [WithTag] and [WithRequest].

# Missing translations

A key missing from the requested locale is looked up in the base locale.
If it is missing there too, Tr returns the key unchanged. When
StrictMissingKeys is enabled, misses are logged once per locale+key and the
returned text is visibly wrapped as "⟦...⟧".

# Formatting

Translations can include placeholders that are processed by Go's standard
text/template package. Provide substitutions as alternating key-value pairs:

	i18n.Tr(ctx, "home.hero.welcome", "Name", user.Name)

# Plurals

[TrN] looks up "<key>.one" when n is 1 and "<key>.other" otherwise, falling
back to the key itself.
*/
package i18n
