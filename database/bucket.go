// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"encoding/binary"
	"fmt"
)

const (
	metaKeyID  = 0x00
	entryKeyID = 0x01
)

// Bucket is a namespace inside a Store.
//
// Keys are laid out as
//
//	name | 0x2f | 0x00 | meta key      - metadata
//	name | 0x2f | 0x01 | uint64 BE     - indexed entries
//
// so entries of a bucket are sorted by index and can be deleted as a range.
type Bucket struct {
	store  Store
	prefix []byte
}

func NewBucket(store Store, name string) Bucket {
	return Bucket{store: store, prefix: []byte(name + "/")}
}

func (b Bucket) Store() Store { return b.store }

func (b Bucket) Name() string { return string(b.prefix[:len(b.prefix)-1]) }

// Sub returns a nested bucket.
func (b Bucket) Sub(name string) Bucket {
	return NewBucket(b.store, b.Name()+"/"+name)
}

func (b Bucket) metaKey(name string) []byte {
	res := make([]byte, 0, len(b.prefix)+1+len(name))
	res = append(res, b.prefix...)
	res = append(res, metaKeyID)
	return append(res, name...)
}

func (b Bucket) entryKey(index uint64) []byte {
	res := make([]byte, len(b.prefix)+9)
	copy(res, b.prefix)
	res[len(b.prefix)] = entryKeyID
	binary.BigEndian.PutUint64(res[len(b.prefix)+1:], index)
	return res
}

// entriesEnd is the first key after every entry of the bucket.
func (b Bucket) entriesEnd() []byte {
	res := make([]byte, 0, len(b.prefix)+1)
	res = append(res, b.prefix...)
	return append(res, entryKeyID+1)
}

func (b Bucket) GetEntry(index uint64) ([]byte, error) {
	return b.store.Get(b.entryKey(index))
}

func (b Bucket) PutEntry(index uint64, value []byte) error {
	return b.store.Put(b.entryKey(index), value)
}

// DeleteEntriesFrom removes all entries at index >= from.
func (b Bucket) DeleteEntriesFrom(from uint64) error {
	return b.store.DeleteRange(b.entryKey(from), b.entriesEnd())
}

func (b Bucket) GetMeta(name string) ([]byte, error) {
	return b.store.Get(b.metaKey(name))
}

func (b Bucket) PutMeta(name string, value []byte) error {
	return b.store.Put(b.metaKey(name), value)
}

// Uint64 reads a numeric metadata value, 0 when missing.
func (b Bucket) Uint64(name string) (uint64, error) {
	raw, err := b.GetMeta(name)
	if err != nil || raw == nil {
		return 0, err
	}
	if len(raw) != 8 {
		str := fmt.Sprintf("meta value %s/%s has %d bytes, want 8", b.Name(), name, len(raw))
		return 0, MakeError(ErrCorruption, str, nil)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (b Bucket) PutUint64(name string, value uint64) error {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, value)
	return b.PutMeta(name, raw)
}
