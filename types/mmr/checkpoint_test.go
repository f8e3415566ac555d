// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointEncoding(t *testing.T) {
	tests := []struct {
		name string
		cp   *Checkpoint
	}{
		{name: "empty", cp: NewCheckpoint(nil, nil)},
		{name: "additions only", cp: NewCheckpoint(leaves(3), nil)},
		{name: "deletions only", cp: NewCheckpoint(nil, roaring.BitmapOf(1, 7, 100000))},
		{name: "both", cp: NewCheckpoint(leaves(40), roaring.BitmapOf(0, 1, 2, 3, 4, 5, 39))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.cp.MarshalBinary()
			require.NoError(t, err)

			decoded := new(Checkpoint)
			require.NoError(t, decoded.UnmarshalBinary(data))
			assert.True(t, tt.cp.Equal(decoded))
			assert.Equal(t, tt.cp.NodesAdded(), decoded.NodesAdded())

			again, err := decoded.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, data, again)
		})
	}
}

func TestCheckpointDecodingErrors(t *testing.T) {
	data, err := NewCheckpoint(leaves(2), roaring.BitmapOf(1)).MarshalBinary()
	require.NoError(t, err)

	cp := new(Checkpoint)
	assert.Error(t, cp.UnmarshalBinary(nil))
	assert.Error(t, cp.UnmarshalBinary(data[:40]))
	assert.Error(t, cp.UnmarshalBinary(data[:len(data)-1]))
	assert.Error(t, cp.UnmarshalBinary(append(data, 0)))
}

func TestCheckpointApply(t *testing.T) {
	m := newTestMutable(t, 2)
	cp := NewCheckpoint([]Hash{leaf(2), leaf(3)}, roaring.BitmapOf(0, 3))
	require.NoError(t, cp.Apply(m))

	assert.Equal(t, uint32(4), m.Len())
	assert.True(t, m.IsDeleted(0))
	assert.True(t, m.IsDeleted(3))

	want, err := newTestMMR(t, 4).GetMerkleRoot()
	require.NoError(t, err)
	got, err := m.GetMerkleRoot()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// the checkpoint is a delta and is not changed by applying it
	assert.Equal(t, uint64(2), cp.NodesDeleted().GetCardinality())
	assert.False(t, cp.IsEmpty())
	assert.True(t, NewCheckpoint(nil, nil).IsEmpty())
}

func TestCheckpointApplyOutOfRange(t *testing.T) {
	m := newTestMutable(t, 2)
	cp := NewCheckpoint(nil, roaring.BitmapOf(5))
	assert.Error(t, cp.Apply(m))
}
