// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"fmt"
	"maps"
	"net/http"
	"strings"

	"codeberg.org/b2bsite/i18ncache/config"
)

// baseHeaders defines the default headers to be set in responses.
//
// I18ncache-Version and I18ncache-Revision are added dynamically in SetResponseHeaders.
var baseHeaders = http.Header{
	"Referrer-Policy":         {"no-referrer"},
	"X-Frame-Options":         {"DENY"},
	"X-Content-Type-Options":  {"nosniff"},
	"Content-Security-Policy": {"default-src 'none'; frame-ancestors 'none'"},
}

// messagesPathPrefix is the path of the public catalogue routes, which may be
// cached by browsers and CDNs.
const messagesPathPrefix = "/api/messages"

// SetResponseHeaders adds default headers to HTTP responses.
func SetResponseHeaders(w http.ResponseWriter, r *http.Request, next http.Handler) {
	headers := w.Header()

	maps.Insert(headers, maps.All(baseHeaders))

	headers.Set("Cache-Control", cacheControl(r.URL.Path))
	headers.Set("I18ncache-Version", config.BuildVersion)
	headers.Set("I18ncache-Revision", config.Global.Build.Revision())

	next.ServeHTTP(w, r)
}

// cacheControl returns the Cache-Control value for path.
//
// Catalogues are cacheable for HTTPCache.MaxAge and may be served stale while
// revalidating; every other route is private and uncached.
func cacheControl(path string) string {
	cfg := config.Global.HTTPCache

	if config.Global.Development.InDevelopment || !strings.HasPrefix(path, messagesPathPrefix) || cfg.MaxAge <= 0 {
		return "no-store"
	}

	value := fmt.Sprintf("public, max-age=%d", int(cfg.MaxAge.Seconds()))
	if cfg.StaleWhileRevalidate > 0 {
		value += fmt.Sprintf(", stale-while-revalidate=%d", int(cfg.StaleWhileRevalidate.Seconds()))
	}

	return value
}
