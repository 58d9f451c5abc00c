// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package routes holds the HTTP handlers of the message cache service.

Handlers return an error instead of writing error responses themselves;
middleware.CatchError turns it into a JSON error body. Wrap an error with a
[StatusError] to pick the status code.
*/
package routes

import (
	"codeberg.org/b2bsite/i18ncache/i18n/cachemanager"
)

// API serves a cache manager over HTTP.
type API struct {
	Manager *cachemanager.Manager
}

// NewAPI returns handlers backed by mgr.
func NewAPI(mgr *cachemanager.Manager) *API {
	return &API{Manager: mgr}
}
