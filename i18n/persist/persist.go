// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package persist stores exported cache snapshots outside the process so a
restarted service can start warm.

Every backend implements [Store] and stores opaque byte payloads under a
string key. [Open] builds the backend named in [Options], optionally wrapped
with zstd compression.
*/
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendBolt   = "bbolt"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

var (
	// ErrNotFound is returned by [Store.Load] when nothing is stored under the key.
	ErrNotFound = errors.New("snapshot not found")

	// ErrUnknownBackend is returned by [Open] for an unrecognised backend name.
	ErrUnknownBackend = errors.New("unknown persistence backend")

	errEmptyKey = errors.New("empty storage key")
)

// Store saves and restores snapshot payloads.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Path is the directory for the file and badger backends and the database
	// file for the bbolt backend.
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// RedisTTL expires stored snapshots. Zero keeps them forever.
	RedisTTL time.Duration

	Compress bool
}

// Open returns the backend described by opts.
func Open(opts Options) (Store, error) {
	var (
		store Store
		err   error
	)

	switch opts.Backend {
	case BackendFile, "":
		store, err = NewFileStore(opts.Path)
	case BackendBolt:
		store, err = OpenBolt(opts.Path)
	case BackendBadger:
		store, err = OpenBadger(opts.Path)
	case BackendRedis:
		store, err = NewRedisStore(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisTTL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", opts.Backend, err)
	}

	if opts.Compress {
		return NewCompressed(store)
	}

	return store, nil
}

func checkKey(key string) error {
	if key == "" {
		return errEmptyKey
	}

	return nil
}
