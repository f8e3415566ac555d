// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyRoot(t *testing.T) {
	m := newTestMMR(t, 0)
	root, err := m.GetMerkleRoot()
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", root.String())
	assert.Equal(t, testHasher.HashEmpty(), root)

	empty, err := m.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestMerkleMountainRangeRoot(t *testing.T) {
	l := leaves(7)
	tests := []struct {
		name string
		n    int
		root Hash
	}{
		{name: "1 leaf", n: 1, root: l[0]},
		{name: "2 leaves", n: 2, root: hc(l[0], l[1])},
		{name: "3 leaves", n: 3, root: hc(hc(l[0], l[1]), l[2])},
		{name: "4 leaves", n: 4, root: hc(hc(l[0], l[1]), hc(l[2], l[3]))},
		{name: "5 leaves", n: 5, root: hc(hc(hc(l[0], l[1]), hc(l[2], l[3])), l[4])},
		{
			name: "7 leaves",
			n:    7,
			root: hc(hc(hc(hc(l[0], l[1]), hc(l[2], l[3])), hc(l[4], l[5])), l[6]),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMMR(t, tt.n)
			root, err := m.GetMerkleRoot()
			require.NoError(t, err)
			assert.Equal(t, tt.root, root)

			count, err := m.LeafCount()
			require.NoError(t, err)
			assert.Equal(t, uint64(tt.n), count)
			assert.NoError(t, m.Validate())
		})
	}
}

func TestFiveLeafLayout(t *testing.T) {
	l := leaves(5)
	m := NewMerkleMountainRange(testHasher, NewMemBackend())

	var positions []uint64
	for _, h := range l {
		pos, err := m.Push(h)
		require.NoError(t, err)
		positions = append(positions, pos)
	}
	assert.Equal(t, []uint64{0, 1, 3, 4, 7}, positions)

	size, err := m.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), size)

	n2, n5 := hc(l[0], l[1]), hc(l[2], l[3])
	n6 := hc(n2, n5)
	for pos, want := range map[uint64]Hash{2: n2, 5: n5, 6: n6, 7: l[4]} {
		got, err := m.GetNodeHash(pos)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want, *got, "node %d", pos)
	}

	peaks, err := m.GetPeakHashes()
	require.NoError(t, err)
	assert.Equal(t, []Hash{n6, l[4]}, peaks)

	root, err := m.GetMerkleRoot()
	require.NoError(t, err)
	assert.Equal(t, hc(n6, l[4]), root)

	for i, h := range l {
		got, err := m.GetLeafHash(uint64(i))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, h, *got)
	}
	missing, err := m.GetLeafHash(5)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRootIsOrderSensitive(t *testing.T) {
	l := leaves(4)
	a := NewMerkleMountainRange(testHasher, NewMemBackend())
	b := NewMerkleMountainRange(testHasher, NewMemBackend())
	require.NoError(t, a.Assign(l))
	require.NoError(t, b.Assign([]Hash{l[1], l[0], l[2], l[3]}))

	rootA, err := a.GetMerkleRoot()
	require.NoError(t, err)
	rootB, err := b.GetMerkleRoot()
	require.NoError(t, err)
	assert.NotEqual(t, rootA, rootB)

	// the same leaves give the same root
	c := newTestMMR(t, 4)
	rootC, err := c.GetMerkleRoot()
	require.NoError(t, err)
	assert.Equal(t, rootA, rootC)
}

func TestFindIndex(t *testing.T) {
	m := newTestMMR(t, 6)

	idx, err := m.FindLeafIndex(leaf(4))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), idx)

	pos, err := m.FindNodeIndex(leaf(4))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), pos)

	// internal nodes are not leaves
	_, err = m.FindLeafIndex(hc(leaf(0), leaf(1)))
	assert.True(t, errors.Is(err, ErrLeafNotFound))

	_, err = m.FindNodeIndex(leaf(100))
	assert.True(t, errors.Is(err, ErrLeafNotFound))
}

func TestLeafHashes(t *testing.T) {
	m := newTestMMR(t, 6)

	res, err := m.LeafHashes(2, 3)
	require.NoError(t, err)
	assert.Equal(t, leaves(6)[2:5], res)

	res, err = m.LeafHashes(4, 10)
	require.NoError(t, err)
	assert.Equal(t, leaves(6)[4:], res)

	res, err = m.LeafHashes(6, 1)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestTruncate(t *testing.T) {
	m := newTestMMR(t, 9)
	require.NoError(t, m.Truncate(5))

	expected := newTestMMR(t, 5)
	want, err := expected.GetMerkleRoot()
	require.NoError(t, err)
	got, err := m.GetMerkleRoot()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidateDetectsCorruption(t *testing.T) {
	backend := NewMemBackend()
	m := NewMerkleMountainRange(testHasher, backend)
	require.NoError(t, m.Assign(leaves(4)))
	require.NoError(t, m.Validate())

	bogus := leaf(42)
	backend.nodes[2] = &bogus
	assert.True(t, errors.Is(m.Validate(), ErrCorruptState))
}

func TestInvalidBackendLength(t *testing.T) {
	backend := NewMemBackend()
	_, _ = backend.Push(leaf(0))
	_, _ = backend.Push(leaf(1))

	m := NewMerkleMountainRange(testHasher, backend)
	_, err := m.GetMerkleRoot()
	assert.True(t, errors.Is(err, ErrCorruptState))
	_, err = m.Push(leaf(2))
	assert.True(t, errors.Is(err, ErrCorruptState))
}

func TestBackendErrors(t *testing.T) {
	backend := &faultyBackend{MemBackend: NewMemBackend()}
	m := NewMerkleMountainRange(testHasher, backend)
	require.NoError(t, m.Assign(leaves(3)))

	backend.failPush = true
	_, err := m.Push(leaf(3))
	require.Error(t, err)
	assert.True(t, IsBackendError(err))
	assert.True(t, errors.Is(err, errDiskFailure))

	backend.failPush = false
	backend.failGet = true
	_, err = m.GetMerkleRoot()
	assert.True(t, IsBackendError(err))
}

// The package level testHasher is set before any init function runs.
func TestPackageLevelHasher(t *testing.T) {
	require.NotNil(t, testHasher)
	assert.Equal(t, SHA256, testHasher.Name())
	assert.Equal(t, DefaultHasher(), testHasher)
}

func TestHashers(t *testing.T) {
	assert.Equal(t, []string{Blake2b256, SHA256, SHA3256}, SupportedHashers())

	roots := map[Hash]string{}
	for _, name := range SupportedHashers() {
		h, err := HasherByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, h.Name())

		m := NewMerkleMountainRange(h, NewMemBackend())
		require.NoError(t, m.Assign([]Hash{h.HashLeaf([]byte("a")), h.HashLeaf([]byte("b"))}))
		root, err := m.GetMerkleRoot()
		require.NoError(t, err)
		roots[root] = name
	}
	assert.Len(t, roots, 3)

	_, err := HasherByName("md5")
	assert.True(t, errors.Is(err, ErrInvalidHasher))
	assert.Panics(t, func() { MustHasherByName("md5") })

	// leaves and nodes never collide
	l, r := leaf(0), leaf(1)
	assert.NotEqual(t, testHasher.HashLeaf(append(l[:], r[:]...)), testHasher.HashChildren(l, r))
}
