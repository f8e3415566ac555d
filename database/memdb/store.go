// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package memdb

import (
	"bytes"
	"sync"

	"gitlab.com/jaxnet/mmrengine/database"
)

type store struct {
	mtx  sync.RWMutex
	data map[string][]byte
}

func newStore() *store {
	return &store{data: make(map[string][]byte)}
}

func (s *store) reopen() *handle {
	return &handle{store: s}
}

// handle is an open connection to a store. Closing it keeps the data.
type handle struct {
	*store
	closed bool
}

func errClosed() error {
	return database.MakeError(database.ErrInvalid, "database is closed", nil)
}

func (h *handle) Get(key []byte) ([]byte, error) {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	if h.closed {
		return nil, errClosed()
	}
	value, ok := h.data[string(key)]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, value...), nil
}

func (h *handle) Put(key, value []byte) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.closed {
		return errClosed()
	}
	h.data[string(key)] = append([]byte{}, value...)
	return nil
}

func (h *handle) Delete(key []byte) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.closed {
		return errClosed()
	}
	delete(h.data, string(key))
	return nil
}

func (h *handle) DeleteRange(start, limit []byte) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.closed {
		return errClosed()
	}
	for key := range h.data {
		k := []byte(key)
		if bytes.Compare(k, start) >= 0 && bytes.Compare(k, limit) < 0 {
			delete(h.data, key)
		}
	}
	return nil
}

func (h *handle) Close() error {
	h.mtx.Lock()
	h.closed = true
	h.mtx.Unlock()
	return nil
}
