// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned by [ParseURL] for a URL that cannot serve as a
// catalogue base.
var ErrInvalidURL = errors.New("invalid URL")

// ParseURL parses a base URL that catalogue paths are appended to.
//
// The URL must be absolute http or https without a query or fragment.
// A trailing slash is removed so callers can join with "/".
// urlType names the setting in error messages.
func ParseURL(urlStr, urlType string) (*url.URL, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidURL, urlType, err)
	}

	switch {
	case parsedURL.Host == "":
		return nil, fmt.Errorf("%w: %s %q needs a scheme and host, e.g. https://cdn.example.com/messages",
			ErrInvalidURL, urlType, urlStr)
	case parsedURL.Scheme != "http" && parsedURL.Scheme != "https":
		return nil, fmt.Errorf("%w: %s scheme %q is not http or https", ErrInvalidURL, urlType, parsedURL.Scheme)
	case parsedURL.RawQuery != "" || parsedURL.Fragment != "":
		return nil, fmt.Errorf("%w: %s %q must not carry a query or fragment", ErrInvalidURL, urlType, urlStr)
	}

	parsedURL.Path = strings.TrimSuffix(parsedURL.Path, "/")
	parsedURL.RawPath = ""

	return parsedURL, nil
}

// GetQueryParam returns the named query parameter, or the first default when
// it is absent or empty.
func GetQueryParam(r *http.Request, name string, defaultValue ...string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}

// GetPathVar returns the named wildcard of the matched route pattern, or the
// first default when it is empty.
func GetPathVar(r *http.Request, name string, defaultValue ...string) string {
	if v := r.PathValue(name); v != "" {
		return v
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}
