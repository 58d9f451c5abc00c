// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package i18n

import (
	"github.com/rs/zerolog"
)

// Logger is the logger used by package i18n.
var Logger = zerolog.Nop()

// logMissingOnce logs a missing translation warning once per (locale, key) pair.
func (st *state) logMissingOnce(locale, key string) {
	id := locale + "\x00" + key
	if _, loaded := st.missingKeyOnce.LoadOrStore(id, struct{}{}); !loaded {
		Logger.Warn().
			Str("locale", locale).
			Str("key", key).
			Msg("Missing i18n translation")
	}
}
