// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/text/language"

	"codeberg.org/b2bsite/i18ncache/i18n/loader"
	"codeberg.org/b2bsite/i18ncache/server/request_context"
	"codeberg.org/b2bsite/i18ncache/server/utils"
)

var errInvalidLocale = errors.New("invalid locale")

// Messages serves the catalogue of the locale named in the path.
//
// The optional ns query parameter selects a namespace, e.g. "critical".
func (a *API) Messages(w http.ResponseWriter, r *http.Request) error {
	locale := utils.GetPathVar(r, "locale")
	if _, err := language.Parse(locale); err != nil {
		return withStatus(http.StatusBadRequest, fmt.Errorf("%w %q", errInvalidLocale, locale))
	}

	return a.serveMessages(w, r, locale)
}

// RequestMessages serves the catalogue of the locale negotiated from the
// request (lang parameter, locale cookie, then Accept-Language).
func (a *API) RequestMessages(w http.ResponseWriter, r *http.Request) error {
	return a.serveMessages(w, r, request_context.FromRequest(r).Locale)
}

func (a *API) serveMessages(w http.ResponseWriter, r *http.Request, locale string) error {
	namespace := utils.GetQueryParam(r, "ns")

	tree, err := a.Manager.GetMessages(r.Context(), locale, namespace)
	if err != nil {
		switch {
		case errors.Is(err, loader.ErrNotFound):
			return withStatus(http.StatusNotFound, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return withStatus(http.StatusGatewayTimeout, err)
		default:
			return withStatus(http.StatusBadGateway, err)
		}
	}

	w.Header().Set("Content-Language", locale)
	w.Header().Add("Vary", "Accept-Language, Cookie")

	return writeJSON(w, http.StatusOK, tree)
}
