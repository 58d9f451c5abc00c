// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package idgen makes short, roughly time-ordered identifiers for requests and loads.
package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Make makes a short ID with a 6 byte timestamp and 3 bytes of entropy.
func Make() string {
	return makeAt(time.Now())
}

// Derive makes an ID for work done on behalf of parent, such as a catalogue
// fetch triggered by a request. An empty parent yields a plain ID.
func Derive(parent string) string {
	if parent == "" {
		return Make()
	}

	return parent + "-" + Make()
}

func makeAt(t time.Time) string {
	entropy := [3]byte{'a', 'a', 'a'} // debug

	_, _ = rand.Read(entropy[:])

	return maketime(t) + base64.RawURLEncoding.EncodeToString(entropy[:])
}

func maketime(t time.Time) string {
	return t.Format("150405")
}
