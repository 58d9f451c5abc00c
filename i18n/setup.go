// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"codeberg.org/b2bsite/i18ncache/i18n/messages"
)

// Source provides the catalogue of a locale. *cachemanager.Manager
// satisfies it.
type Source interface {
	GetMessages(ctx context.Context, locale, namespace string) (messages.Tree, error)
}

// Options configures [Setup].
type Options struct {
	// Locales lists the supported locales. BaseLocale is always included.
	Locales []string
	// StrictMissingKeys logs missing keys and wraps them as "⟦key⟧".
	StrictMissingKeys bool
}

var errNoSource = errors.New("i18n: nil message source")

type state struct {
	matcher language.Matcher
	tags    []language.Tag
	names   []string // names[i] is the locale of tags[i]
	source  Source
	strict  bool

	// missingKeyOnce deduplicates WARN logs for missing keys in strict mode.
	// The key is locale+"\x00"+key.
	missingKeyOnce sync.Map
}

var active atomic.Pointer[state]

func current() *state {
	return active.Load()
}

// Setup initialises package i18n with the supported locales and the source
// of their catalogues.
//
// Locale names may use hyphens or underscores, for example "pt-BR" or "pt_BR".
// Invalid names are logged and skipped. [BaseLocale] is always supported and
// acts as the default fallback.
//
// Calling Setup again replaces the previous configuration.
func Setup(src Source, opts Options) error {
	if src == nil {
		return errNoSource
	}

	Logger = log.With().Str("sys", "i18n").Logger()

	st := &state{
		tags:   []language.Tag{baseTag},
		names:  []string{BaseLocale},
		source: src,
		strict: opts.StrictMissingKeys,
	}

	for _, name := range opts.Locales {
		t, err := language.Parse(strings.ReplaceAll(name, "_", "-"))
		if err != nil {
			Logger.Warn().Err(err).Str("locale", name).Msg("Skipping invalid locale")

			continue
		}

		if name == BaseLocale || t == baseTag {
			continue
		}

		st.tags = append(st.tags, t)
		st.names = append(st.names, name)
	}

	st.matcher = language.NewMatcher(st.tags)
	active.Store(st)

	Logger.Info().
		Strs("locales", st.names).
		Bool("strict", st.strict).
		Msg("Configured locales")

	return nil
}
