// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/b2bsite/i18ncache/core/audit"
	"codeberg.org/b2bsite/i18ncache/core/idgen"
	"codeberg.org/b2bsite/i18ncache/i18n/messages"
)

// maxCatalogueBytes bounds the size of a fetched catalogue.
const maxCatalogueBytes = 8 << 20

// HTTP fetches JSON catalogues from {BaseURL}/{locale}.json, or from
// {BaseURL}/{locale}/{namespace}.json when a namespace is requested.
type HTTP struct {
	BaseURL string
	Client  *http.Client

	// Timeout bounds each load. Zero means no timeout beyond the caller's context.
	Timeout time.Duration
}

// NewHTTP returns a loader for baseURL using client, or http.DefaultClient when nil.
func NewHTTP(baseURL string, client *http.Client, timeout time.Duration) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTP{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  client,
		Timeout: timeout,
	}
}

// Load implements [Loader].
func (l *HTTP) Load(ctx context.Context, locale, namespace string) (_ messages.Tree, err error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	target := l.BaseURL + "/" + url.PathEscape(locale)
	if namespace != "" {
		target += "/" + url.PathEscape(namespace)
	}

	target += ".json"

	span := audit.Span{
		Destination: audit.ToMessageSource,
		RequestID:   idgen.Derive(audit.RequestIDFrom(ctx)),
		Method:      http.MethodGet,
		URL:         target,
	}

	defer func() {
		span.Error = err
		span.End()
		span.Log()
	}()

	ctx = span.Begin(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", target, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	span.StatusCode = resp.StatusCode

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogueBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	span.Size = len(body)

	tree, err := messages.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", target, err)
	}

	return tree, nil
}
