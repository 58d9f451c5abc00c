// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package audit holds logging defaults and the spans used to time outgoing operations.
package audit

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetDefaultLogger provides an ok log output format on startup if no config is set.
func SetDefaultLogger() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// Logger returns the global logger tagged with the subsystem name sys.
//
// Call it after the configuration has installed its writers; loggers derived
// earlier keep the startup output.
func Logger(sys string) zerolog.Logger {
	return log.With().Str("sys", sys).Logger()
}
