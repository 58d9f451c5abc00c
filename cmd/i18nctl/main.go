// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

// i18nctl maintains message catalogues and persisted cache snapshots offline.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"codeberg.org/b2bsite/i18ncache/core/audit"
)

var (
	messagesDir string
	locales     []string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "i18nctl",
		Short:         "Message catalogue and cache snapshot tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&messagesDir, "dir", "./messages", "catalogue directory")
	root.PersistentFlags().StringSliceVar(&locales, "locales", []string{"en", "zh"}, "locales to process")

	root.AddCommand(newSplitCmd(), newCoverageCmd(), newExportCmd(), newImportCmd())

	return root
}

func main() {
	audit.SetDefaultLogger()

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("i18nctl failed")
		os.Exit(1)
	}
}
