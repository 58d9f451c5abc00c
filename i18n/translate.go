// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"text/template"
)

// templateCache caches compiled templates per unique template text.
var templateCache sync.Map // key: text, value: *template.Template

type Vars map[string]any

// NewUserError creates a new UserError.
func NewUserError(ctx context.Context, key string, kv ...any) *UserError {
	return &UserError{msg: Tr(ctx, key, kv...)}
}

// UserError is an error type whose message is a translated string.
// It is intended for errors that can be shown directly to the end user.
type UserError struct {
	msg string
}

// Error returns the translated error message.
func (e *UserError) Error() string {
	return e.msg
}

// Tr returns the translation of a dotted message key for the locale in ctx.
// If key-value pairs are provided, the translation is formatted using
// text/template-style named placeholders.
//
// If a translation is not found, Tr returns the key unchanged, or visibly
// wrapped if strict mode is enabled.
func Tr(ctx context.Context, key string, kv ...any) string {
	return translate(ctx, key, "", v(kv...))
}

// TrN translates a key that has plural forms, choosing "<key>.one" when
// n == 1 and "<key>.other" otherwise.
func TrN(ctx context.Context, key string, n int, kv ...any) string {
	form := "other"
	if n == 1 {
		form = "one"
	}

	return translate(ctx, key, key+"."+form, v(kv...))
}

// translate performs the underlying lookup and formatting. A non-empty
// variant is tried before key.
func translate(ctx context.Context, key, variant string, vars Vars) string {
	st := current()
	locale := LocaleFrom(ctx)

	text, found := lookup(ctx, st, locale, key, variant)
	if !found && locale != BaseLocale {
		text, found = lookup(ctx, st, BaseLocale, key, variant)
	}

	if !found {
		text = key

		if st != nil && st.strict {
			st.logMissingOnce(locale, key)

			text = "⟦" + key + "⟧"
		}
	}

	return render(st, locale, text, vars)
}

func lookup(ctx context.Context, st *state, locale, key, variant string) (string, bool) {
	if st == nil {
		return "", false
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tree, err := st.source.GetMessages(ctx, locale, "")
	if err != nil {
		Logger.Debug().Err(err).Str("locale", locale).Msg("Catalogue unavailable")

		return "", false
	}

	if variant != "" {
		if s, ok := tree.Lookup(variant); ok && s != "" {
			return s, true
		}
	}

	s, ok := tree.Lookup(key)

	return s, ok && s != ""
}

// render formats s as a text/template using the provided data.
func render(st *state, locale, s string, data Vars) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	strict := st != nil && st.strict

	var tmpl *template.Template
	if t, ok := templateCache.Load(s); ok {
		tmpl = t.(*template.Template)
	} else {
		var err error

		tmpl, err = template.New("msg").Option("missingkey=error").Parse(s)
		if err != nil {
			if strict {
				return "⟦" + s + "⟧"
			}

			Logger.Warn().Err(err).Str("locale", locale).Str("text", s).Msg("Template parse error")

			return s
		}

		templateCache.Store(s, tmpl)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any(data)); err != nil {
		if strict {
			return "⟦" + s + "⟧"
		}

		Logger.Warn().Err(err).Str("locale", locale).Str("text", s).Msg("Template execute error")

		return s
	}

	return buf.String()
}

// v builds Vars from alternating key, value pairs.
// Panics on programmer error.
func v(kv ...any) Vars {
	if len(kv)%2 != 0 {
		panic("i18n.V: odd number of arguments, want key, value pairs")
	}

	m := make(Vars, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("i18n.V: key must be string")
		}

		m[k] = kv[i+1]
	}

	return m
}
