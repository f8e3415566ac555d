// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"fmt"
	"sync"

	"gitlab.com/jaxnet/mmrengine/types/mmr"
)

const lengthKey = "length"

// forgottenValue marks an entry dropped by compaction.
var forgottenValue = []byte{0}

// HashBackend keeps mountain range nodes in a bucket. It implements
// mmr.Backend and mmr.Forgetter. The length is cached after the first read,
// so a bucket must not be shared by two backends at once.
type HashBackend struct {
	bucket Bucket

	mtx    sync.Mutex
	length uint64
	loaded bool
}

func NewHashBackend(bucket Bucket) *HashBackend {
	return &HashBackend{bucket: bucket}
}

func (h *HashBackend) Len() (uint64, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.loaded {
		return h.length, nil
	}
	length, err := h.bucket.Uint64(lengthKey)
	if err != nil {
		return 0, err
	}
	h.length, h.loaded = length, true
	return length, nil
}

func (h *HashBackend) setLength(length uint64) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if err := h.bucket.PutUint64(lengthKey, length); err != nil {
		h.loaded = false
		return err
	}
	h.length, h.loaded = length, true
	return nil
}

func (h *HashBackend) Push(hash mmr.Hash) (uint64, error) {
	index, err := h.Len()
	if err != nil {
		return 0, err
	}
	// the entry goes first, it stays invisible until the length is updated
	if err = h.bucket.PutEntry(index, hash[:]); err != nil {
		return 0, err
	}
	return index, h.setLength(index + 1)
}

func (h *HashBackend) Get(index uint64) (*mmr.Hash, error) {
	length, err := h.Len()
	if err != nil || index >= length {
		return nil, err
	}
	raw, err := h.bucket.GetEntry(index)
	if err != nil {
		return nil, err
	}
	switch len(raw) {
	case mmr.HashSize:
		res, _ := mmr.NewHash(raw)
		return &res, nil
	case len(forgottenValue):
		return nil, nil
	default:
		str := fmt.Sprintf("node %d of %s has %d bytes", index, h.bucket.Name(), len(raw))
		return nil, MakeError(ErrCorruption, str, nil)
	}
}

func (h *HashBackend) Truncate(length uint64) error {
	current, err := h.Len()
	if err != nil || length >= current {
		return err
	}
	if err = h.setLength(length); err != nil {
		return err
	}
	return h.bucket.DeleteEntriesFrom(length)
}

func (h *HashBackend) ForEach(fn func(index uint64, hash *mmr.Hash) error) error {
	length, err := h.Len()
	if err != nil {
		return err
	}
	for i := uint64(0); i < length; i++ {
		hash, err := h.Get(i)
		if err != nil {
			return err
		}
		if err = fn(i, hash); err != nil {
			return err
		}
	}
	return nil
}

func (h *HashBackend) Forget(index uint64) error {
	length, err := h.Len()
	if err != nil || index >= length {
		return err
	}
	return h.bucket.PutEntry(index, forgottenValue)
}
