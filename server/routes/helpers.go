// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// maxRequestBodyBytes bounds request bodies, including imported snapshots.
const maxRequestBodyBytes = 32 << 20

var errEmptyBody = errors.New("request body is empty")

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_, err = w.Write(data)

	return err
}

// writeJSONBody encodes v after the status has been written.
func writeJSONBody(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to write JSON response")
	}
}

// readBody reads the request body up to maxRequestBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, withStatus(http.StatusRequestEntityTooLarge, err)
		}

		return nil, withStatus(http.StatusBadRequest, err)
	}

	return data, nil
}

// decodeJSON decodes the request body into v. An empty body leaves v untouched
// when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	data, err := readBody(w, r)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		if optional {
			return nil
		}

		return withStatus(http.StatusBadRequest, errEmptyBody)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return withStatus(http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
	}

	return nil
}
