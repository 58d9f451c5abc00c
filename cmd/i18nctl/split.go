// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"codeberg.org/b2bsite/i18ncache/i18n/loader"
	"codeberg.org/b2bsite/i18ncache/i18n/messages"
)

const filePerm = 0o644

var errSplitMismatch = errors.New("split catalogue does not reproduce the source")

// splitResult summarises one split locale.
type splitResult struct {
	Locale   string
	Total    int
	Critical int
	Deferred int
}

func newSplitCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split each locale catalogue into critical.json and deferred.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outDir == "" {
				outDir = messagesDir
			}

			for _, locale := range locales {
				res, err := splitLocale(cmd.Context(), messagesDir, outDir, locale, messages.CriticalPrefixes)
				if err != nil {
					return err
				}

				log.Info().
					Str("locale", res.Locale).
					Int("total", res.Total).
					Int("critical", res.Critical).
					Int("deferred", res.Deferred).
					Msg("Split catalogue")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "output directory (defaults to --dir)")

	return cmd
}

// splitLocale reads the complete catalogue of locale from srcDir and writes
// <outDir>/<locale>/critical.json and deferred.json. The written halves are
// checked to add back up to the source.
func splitLocale(ctx context.Context, srcDir, outDir, locale string, prefixes []string) (splitResult, error) {
	full, err := loader.NewFS(os.DirFS(srcDir)).Load(ctx, locale, "")
	if err != nil {
		return splitResult{}, fmt.Errorf("failed to load %s: %w", locale, err)
	}

	critical, deferred := messages.Split(full, prefixes)

	res := splitResult{
		Locale:   locale,
		Total:    messages.CountLeaves(full).Total,
		Critical: messages.CountLeaves(critical).Total,
		Deferred: messages.CountLeaves(deferred).Total,
	}

	if res.Critical+res.Deferred != res.Total ||
		!maps.Equal(messages.Merge(critical, deferred).Flatten(), full.Flatten()) {
		return res, fmt.Errorf("%w: %s", errSplitMismatch, locale)
	}

	dir := filepath.Join(outDir, locale)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, err
	}

	for name, tree := range map[string]messages.Tree{
		loader.NamespaceCritical: critical,
		loader.NamespaceDeferred: deferred,
	} {
		data, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return res, err
		}

		if err := os.WriteFile(filepath.Join(dir, name+".json"), append(data, '\n'), filePerm); err != nil {
			return res, err
		}
	}

	return res, nil
}
