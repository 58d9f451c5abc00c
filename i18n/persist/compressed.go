// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package persist

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressed wraps a [Store] and transparently zstd-compresses payloads.
type Compressed struct {
	Store

	zstdEnc *zstd.Encoder // Reusable zstd encoder for block operations
	zstdDec *zstd.Decoder // Reusable zstd decoder for block operations
}

// NewCompressed wraps inner.
func NewCompressed(inner Store) (*Compressed, error) {
	// A nil writer/reader lets us use EncodeAll/DecodeAll without streams.
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		enc.Close()

		return nil, err
	}

	return &Compressed{Store: inner, zstdEnc: enc, zstdDec: dec}, nil
}

// Save compresses data and stores it in the wrapped store.
func (c *Compressed) Save(ctx context.Context, key string, data []byte) error {
	return c.Store.Save(ctx, key, c.zstdEnc.EncodeAll(data, nil))
}

// Load reads from the wrapped store and decompresses the payload.
func (c *Compressed) Load(ctx context.Context, key string) ([]byte, error) {
	stored, err := c.Store.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	data, err := c.zstdDec.DecodeAll(stored, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot %q: %w", key, err)
	}

	return data, nil
}

// Close releases the codecs and closes the wrapped store.
func (c *Compressed) Close() error {
	c.zstdDec.Close()

	if err := c.zstdEnc.Close(); err != nil {
		c.Store.Close()

		return err
	}

	return c.Store.Close()
}
