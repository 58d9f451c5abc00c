// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

const (
	// clientSessionCacheSize is the number of TLS sessions kept for resumption
	// against catalogue hosts.
	clientSessionCacheSize = 8

	// maxIdleConnsPerHost bounds idle keep-alive connections to one catalogue host.
	// Preloads open at most Preload.Concurrency connections at once.
	maxIdleConnsPerHost = 8

	idleConnTimeout       = 90 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 15 * time.Second
)

// HTTPClient fetches remote catalogues for the http message source.
//
// It sets no overall timeout: each load is bounded by Loader.Timeout through
// its context.
var HTTPClient = &http.Client{
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{
			ClientSessionCache: tls.NewLRUClientSessionCache(clientSessionCacheSize),
			MinVersion:         tls.VersionTLS12,
		},
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
	},
}
