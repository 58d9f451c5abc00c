// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"codeberg.org/b2bsite/i18ncache/i18n/cachemanager"
	"codeberg.org/b2bsite/i18ncache/i18n/persist"
)

// storeFlags selects the persistence backend a snapshot command talks to.
type storeFlags struct {
	opts persist.Options
	key  string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.opts.Backend, "backend", persist.BackendFile, "persistence backend (file, bbolt, badger, redis)")
	cmd.Flags().StringVar(&f.opts.Path, "path", "./data/i18n-cache", "backend path")
	cmd.Flags().StringVar(&f.opts.RedisAddr, "redis-addr", "localhost:6379", "Redis address")
	cmd.Flags().StringVar(&f.opts.RedisPassword, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&f.opts.RedisDB, "redis-db", 0, "Redis database")
	cmd.Flags().BoolVar(&f.opts.Compress, "compress", false, "zstd-compress stored snapshots")
	cmd.Flags().StringVar(&f.key, "key", "i18n-cache", "storage key")
}

func newExportCmd() *cobra.Command {
	var (
		flags  storeFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a persisted cache snapshot to a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return exportSnapshot(cmd.Context(), flags, output)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "out", "o", "i18n-cache.json", "output file")

	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		flags storeFlags
		input string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a snapshot file and store it in a persistence backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return importSnapshot(cmd.Context(), flags, input)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&input, "in", "i", "i18n-cache.json", "input file")

	return cmd
}

func exportSnapshot(ctx context.Context, flags storeFlags, output string) (err error) {
	store, err := persist.Open(flags.opts)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := store.Close(); err == nil {
			err = closeErr
		}
	}()

	data, err := store.Load(ctx, flags.key)
	if err != nil {
		return fmt.Errorf("failed to read snapshot %q: %w", flags.key, err)
	}

	entries, err := cachemanager.ValidateSnapshot(string(data))
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, data, filePerm); err != nil {
		return err
	}

	log.Info().
		Str("key", flags.key).
		Str("path", output).
		Int("entries", entries).
		Msg("Exported snapshot")

	return nil
}

func importSnapshot(ctx context.Context, flags storeFlags, input string) (err error) {
	// #nosec G304 -- the operator names the file to import.
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	entries, err := cachemanager.ValidateSnapshot(string(data))
	if err != nil {
		return err
	}

	store, err := persist.Open(flags.opts)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := store.Close(); err == nil {
			err = closeErr
		}
	}()

	if err := store.Save(ctx, flags.key, data); err != nil {
		return fmt.Errorf("failed to store snapshot %q: %w", flags.key, err)
	}

	log.Info().
		Str("key", flags.key).
		Str("path", input).
		Int("entries", entries).
		Msg("Imported snapshot")

	return nil
}
