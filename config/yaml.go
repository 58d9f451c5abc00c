// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

// readYAML overlays the file at configFilePath onto cfg. A missing file is
// skipped. Unknown keys are rejected so a misspelt setting cannot silently
// fall back to its default; cfg is only modified when the whole file decodes.
func (cfg *ServerConfig) readYAML(configFilePath string) error {
	if configFilePath == "" {
		return nil
	}

	yamlCfg, err := os.ReadFile(configFilePath) // #nosec G304 -- Only loading a config file
	if os.IsNotExist(err) {
		log.Info().
			Str("path", configFilePath).
			Msg("No YAML configuration file found, skipping")

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", configFilePath, err)
	}

	decoded := *cfg

	dec := yaml.NewDecoder(bytes.NewReader(yamlCfg), yaml.Strict())
	if err := dec.Decode(&decoded); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML from %s: %w", configFilePath, err)
	}

	*cfg = decoded

	log.Info().
		Str("path", configFilePath).
		Msg("Loaded cache configuration")

	return nil
}
