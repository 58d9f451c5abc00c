// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"codeberg.org/b2bsite/i18ncache/i18n/loader"
	"codeberg.org/b2bsite/i18ncache/i18n/messages"
)

// coverageRow is one line of the coverage report.
type coverageRow struct {
	Locale    string
	Leaves    int
	Populated int
	// Coverage is the populated fraction of the locale's own leaves.
	Coverage float64
	// AgainstBase is the populated fraction of the base locale's leaves.
	AgainstBase float64
}

func newCoverageCmd() *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Print translation coverage per locale",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := coverageReport(cmd.Context(), loader.NewFS(os.DirFS(messagesDir)), base, locales)
			if err != nil {
				return err
			}

			return printCoverage(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().StringVar(&base, "base", "en", "reference locale")

	return cmd
}

func coverageReport(ctx context.Context, src loader.Loader, base string, locales []string) ([]coverageRow, error) {
	reference, err := src.Load(ctx, base, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load base locale %s: %w", base, err)
	}

	rows := make([]coverageRow, 0, len(locales))

	for _, locale := range locales {
		tree, err := src.Load(ctx, locale, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", locale, err)
		}

		count := messages.CountLeaves(tree)
		rows = append(rows, coverageRow{
			Locale:      locale,
			Leaves:      count.Total,
			Populated:   count.Populated,
			Coverage:    messages.Coverage(tree),
			AgainstBase: messages.CoverageAgainst(tree, reference),
		})
	}

	return rows, nil
}

func printCoverage(w io.Writer, rows []coverageRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "LOCALE\tLEAVES\tPOPULATED\tCOVERAGE\tVS BASE")

	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\t%.1f%%\n",
			r.Locale, r.Leaves, r.Populated, r.Coverage*100, r.AgainstBase*100)
	}

	return tw.Flush()
}
