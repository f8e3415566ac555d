// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var testHasher = DefaultHasher()

func leaf(i int) Hash {
	return testHasher.HashLeaf([]byte(fmt.Sprintf("leaf_%d", i)))
}

func leaves(n int) []Hash {
	res := make([]Hash, n)
	for i := range res {
		res[i] = leaf(i)
	}
	return res
}

func hc(left, right Hash) Hash {
	return testHasher.HashChildren(left, right)
}

func newTestMMR(t require.TestingT, n int) *MerkleMountainRange {
	m := NewMerkleMountainRange(testHasher, NewMemBackend())
	for i := 0; i < n; i++ {
		_, err := m.Push(leaf(i))
		require.NoError(t, err)
	}
	return m
}

func newTestMutable(t require.TestingT, n int) *MutableMmr {
	m, err := NewMutableMmr(testHasher, NewMemBackend())
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := m.Push(leaf(i))
		require.NoError(t, err)
	}
	return m
}

// plainBackend hides the Forget method of MemBackend.
type plainBackend struct {
	mem *MemBackend
}

func (b plainBackend) Len() (uint64, error)            { return b.mem.Len() }
func (b plainBackend) Push(hash Hash) (uint64, error)  { return b.mem.Push(hash) }
func (b plainBackend) Get(index uint64) (*Hash, error) { return b.mem.Get(index) }
func (b plainBackend) Truncate(length uint64) error    { return b.mem.Truncate(length) }
func (b plainBackend) ForEach(fn func(uint64, *Hash) error) error {
	return b.mem.ForEach(fn)
}

var errDiskFailure = errors.New("disk failure")

// faultyBackend fails the selected operation once armed.
// A non zero pushLimit fails pushes once the backend holds that many nodes.
type faultyBackend struct {
	*MemBackend
	failPush     bool
	failTruncate bool
	failGet      bool
	pushLimit    uint64
}

func (b *faultyBackend) Push(hash Hash) (uint64, error) {
	if b.failPush {
		return 0, errDiskFailure
	}
	if size, _ := b.MemBackend.Len(); b.pushLimit > 0 && size >= b.pushLimit {
		return 0, errDiskFailure
	}
	return b.MemBackend.Push(hash)
}

func (b *faultyBackend) Truncate(length uint64) error {
	if b.failTruncate {
		return errDiskFailure
	}
	return b.MemBackend.Truncate(length)
}

func (b *faultyBackend) Get(index uint64) (*Hash, error) {
	if b.failGet {
		return nil, errDiskFailure
	}
	return b.MemBackend.Get(index)
}
