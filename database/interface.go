// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

// Store is an ordered key-value space. Keys are compared bytewise.
type Store interface {
	// Get returns nil without an error when the key is missing.
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// DeleteRange removes every key in [start, limit).
	DeleteRange(start, limit []byte) error
	Close() error
}
