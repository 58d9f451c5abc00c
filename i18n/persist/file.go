// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package persist

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

const (
	snapshotDirPermissions  = 0o750
	snapshotFilePermissions = 0o600
)

// FileStore keeps one file per key in a directory.
// Writes go to a temporary file that is renamed into place, so a crash
// never leaves a truncated snapshot behind.
type FileStore struct {
	dir string
}

// NewFileStore returns a store writing to dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, snapshotDirPermissions); err != nil {
		return nil, err
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

// Save implements [Store].
func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Chmod(tmpName, snapshotFilePermissions); err != nil {
		os.Remove(tmpName)

		return err
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	return nil
}

// Load implements [Store].
func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key)) // #nosec:G304 -- key is path-escaped
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}

	return data, err
}

// Delete implements [Store]. Deleting a missing key is not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

// Close implements [Store].
func (s *FileStore) Close() error {
	return nil
}
