// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package persist

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	boltBucket          = "snapshots"
	boltFilePermissions = 0o600
	boltOpenTimeout     = time.Second
)

// BoltStore keeps snapshots in a single bbolt database file.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the database at filename.
func OpenBolt(filename string) (*BoltStore, error) {
	db, err := bbolt.Open(filename, boltFilePermissions, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(boltBucket)); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		return nil
	})
	if err != nil {
		db.Close()

		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Save implements [Store].
func (s *BoltStore) Save(_ context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(key), data)
	})
}

// Load implements [Store].
func (s *BoltStore) Load(_ context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	var data []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(boltBucket)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}

		// v is only valid for the lifetime of the transaction
		data = bytes.Clone(v)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// Delete implements [Store].
func (s *BoltStore) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Delete([]byte(key))
	})
}

// Close implements [Store].
func (s *BoltStore) Close() error {
	return s.db.Close()
}
