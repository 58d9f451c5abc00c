// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		method           string
		requestURL       string
		expectedStatus   int
		expectedLocation string
		shouldRedirect   bool
	}{
		{
			name:           "Root path should not redirect",
			requestURL:     "/",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Path without trailing slash should not redirect",
			requestURL:     "/api/messages/zh",
			expectedStatus: http.StatusOK,
		},
		{
			name:             "Path with trailing slash should redirect",
			requestURL:       "/api/messages/zh/",
			expectedStatus:   http.StatusPermanentRedirect,
			expectedLocation: "/api/messages/zh",
			shouldRedirect:   true,
		},
		{
			name:             "Repeated trailing slashes are all removed",
			requestURL:       "/api/cache/health//",
			expectedStatus:   http.StatusPermanentRedirect,
			expectedLocation: "/api/cache/health",
			shouldRedirect:   true,
		},
		{
			name:             "Query parameters should be preserved in trailing slash redirect",
			requestURL:       "/api/messages/zh/?ns=critical",
			expectedStatus:   http.StatusPermanentRedirect,
			expectedLocation: "/api/messages/zh?ns=critical",
			shouldRedirect:   true,
		},
		{
			name:           "Trailing slash on a mutating request is not found",
			method:         http.MethodPost,
			requestURL:     "/api/cache/optimize/",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Create a test handler that returns 200 OK
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			handler := Wrap(NormalizeURL, nextHandler)

			method := tt.method
			if method == "" {
				method = http.MethodGet
			}

			req := httptest.NewRequest(method, tt.requestURL, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			location := w.Header().Get("Location")
			if tt.shouldRedirect && location != tt.expectedLocation {
				t.Errorf("Expected location %q, got %q", tt.expectedLocation, location)
			}

			if !tt.shouldRedirect && location != "" {
				t.Errorf("Expected no Location header, got %q", location)
			}
		})
	}
}

func TestHasTrailingSlash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     string
		expected bool
	}{
		{"/", false}, // Root should not be considered as having trailing slash
		{"/api", false},
		{"/api/", true},
		{"/api/cache/entries/", true},
		{"/api/cache/entries/zh", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)

			result := hasTrailingSlash(req)
			if result != tt.expected {
				t.Errorf("hasTrailingSlash(%q) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}
