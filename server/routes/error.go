// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"fmt"
	"net/http"

	"codeberg.org/b2bsite/i18ncache/i18n"
	"codeberg.org/b2bsite/i18ncache/server/request_context"
)

// StatusError is returned by handlers to choose the response status.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s: %v", e.Status, http.StatusText(e.Status), e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// withStatus wraps err so that middleware.CatchError replies with status.
func withStatus(status int, err error) error {
	return &StatusError{Status: status, Err: err}
}

// ErrorStatus returns the status carried by err, or 500.
func ErrorStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}

	return http.StatusInternalServerError
}

type errorBody struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorPage writes the status and JSON error body for the request's error.
//
// Messages of client errors and [i18n.UserError] are shown as is; server
// errors only expose the status text.
func ErrorPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	ctx := request_context.FromRequest(r)

	body := errorBody{
		Error:     http.StatusText(ctx.StatusCode),
		Status:    ctx.StatusCode,
		RequestID: ctx.RequestID,
	}

	var (
		userErr   *i18n.UserError
		statusErr *StatusError
	)

	switch {
	case errors.As(ctx.RequestError, &userErr):
		body.Error = userErr.Error()
	case ctx.RequestError != nil && ctx.StatusCode < http.StatusInternalServerError:
		body.Error = ctx.RequestError.Error()

		if errors.As(ctx.RequestError, &statusErr) {
			body.Error = statusErr.Err.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(ctx.StatusCode)

	writeJSONBody(w, body)
}
