/*
 * Copyright (c) 2021 The JaxNetwork developers
 * Use of this source code is governed by an ISC
 * license that can be found in the LICENSE file.
 */

package mmr

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/mmrengine/database"
	_ "gitlab.com/jaxnet/mmrengine/database/ldb"
	_ "gitlab.com/jaxnet/mmrengine/database/memdb"
	_ "gitlab.com/jaxnet/mmrengine/database/pebbledb"
	accum "gitlab.com/jaxnet/mmrengine/types/mmr"
)

var testHasher = accum.DefaultHasher()

func hashOf(tag byte, i int) accum.Hash {
	var buf [9]byte
	buf[0] = tag
	binary.BigEndian.PutUint64(buf[1:], uint64(i))
	return testHasher.HashLeaf(buf[:])
}

// testBlock creates a block with two outputs, one kernel and one range proof
// per output, spending the listed outputs.
func testBlock(n int, spent ...uint32) *BlockDiff {
	return &BlockDiff{
		Outputs:     []accum.Hash{hashOf('o', 2*n), hashOf('o', 2*n+1)},
		Kernels:     []accum.Hash{hashOf('k', n)},
		RangeProofs: []accum.Hash{hashOf('r', 2*n), hashOf('r', 2*n+1)},
		Spent:       spent,
	}
}

func newMemAccumulators(t *testing.T, cfg Config) *ChainAccumulators {
	c, err := NewMemoryChainAccumulators(testHasher, cfg)
	require.NoError(t, err)
	return c
}

func applyBlocks(t *testing.T, c *ChainAccumulators, blocks ...*BlockDiff) []Roots {
	var res []Roots
	for _, b := range blocks {
		roots, err := c.ApplyBlock(b)
		require.NoError(t, err)
		res = append(res, roots)
	}
	return res
}

// expectedRoots computes the roots of the blocks with bare accumulators.
func expectedRoots(t *testing.T, blocks ...*BlockDiff) Roots {
	utxo, err := accum.NewMutableMmr(testHasher, accum.NewMemBackend())
	require.NoError(t, err)
	kernel := accum.NewMerkleMountainRange(testHasher, accum.NewMemBackend())
	rangeProof := accum.NewMerkleMountainRange(testHasher, accum.NewMemBackend())

	for _, b := range blocks {
		for _, h := range b.Outputs {
			_, err = utxo.Push(h)
			require.NoError(t, err)
		}
		for _, h := range b.Kernels {
			_, err = kernel.Push(h)
			require.NoError(t, err)
		}
		for _, h := range b.RangeProofs {
			_, err = rangeProof.Push(h)
			require.NoError(t, err)
		}
		for _, leaf := range b.Spent {
			require.True(t, utxo.Delete(leaf))
		}
	}

	var roots Roots
	roots.Utxo, err = utxo.GetStateRoot()
	require.NoError(t, err)
	roots.Kernel, err = kernel.GetMerkleRoot()
	require.NoError(t, err)
	roots.RangeProof, err = rangeProof.GetMerkleRoot()
	require.NoError(t, err)
	return roots
}

func TestApplyBlock(t *testing.T) {
	c := newMemAccumulators(t, Config{})
	blocks := []*BlockDiff{testBlock(0), testBlock(1, 0), testBlock(2, 1, 3, 5)}

	for i, b := range blocks {
		roots, err := c.ApplyBlock(b)
		require.NoError(t, err)
		assert.Equal(t, expectedRoots(t, blocks[:i+1]...), roots, "block %d", i+1)
		assert.EqualValues(t, i+1, c.Height())
	}

	tip, err := c.Roots()
	require.NoError(t, err)
	mmrOnly, err := c.MMROnlyRoots()
	require.NoError(t, err)
	assert.NotEqual(t, tip.Utxo, mmrOnly.Utxo)
	assert.Equal(t, tip.Kernel, mmrOnly.Kernel)
	assert.Equal(t, tip.RangeProof, mmrOnly.RangeProof)

	at, err := c.MMROnlyRootsAt(3)
	require.NoError(t, err)
	assert.Equal(t, mmrOnly, at)
	require.NoError(t, c.Validate())
}

func TestApplyBlockRejects(t *testing.T) {
	c := newMemAccumulators(t, Config{})
	applyBlocks(t, c, testBlock(0), testBlock(1, 0))
	before, err := c.Roots()
	require.NoError(t, err)

	tests := []struct {
		name  string
		block *BlockDiff
		want  error
	}{
		{name: "double spend", block: testBlock(2, 0), want: ErrDoubleSpend},
		{name: "spent twice in block", block: testBlock(2, 1, 1), want: ErrDoubleSpend},
		{name: "unknown output", block: testBlock(2, 100), want: accum.ErrIndexOutOfRange},
	}
	for _, test := range tests {
		_, err := c.ApplyBlock(test.block)
		assert.True(t, errors.Is(err, test.want), "%s: %v", test.name, err)

		after, err := c.Roots()
		require.NoError(t, err)
		assert.Equal(t, before, after, test.name)
		assert.EqualValues(t, 2, c.Height(), test.name)
	}

	// a valid block still goes through
	roots, err := c.ApplyBlock(testBlock(2, 1))
	require.NoError(t, err)
	assert.Equal(t, expectedRoots(t, testBlock(0), testBlock(1, 0), testBlock(2, 1)), roots)
}

func TestCalculateRoots(t *testing.T) {
	c := newMemAccumulators(t, Config{})
	applyBlocks(t, c, testBlock(0))
	before, err := c.Roots()
	require.NoError(t, err)

	calculated, err := c.CalculateRoots(testBlock(1, 0, 2))
	require.NoError(t, err)
	after, err := c.Roots()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.EqualValues(t, 1, c.Height())

	applied, err := c.ApplyBlock(testBlock(1, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, calculated, applied)

	_, err = c.CalculateRoots(testBlock(2, 0))
	assert.True(t, errors.Is(err, ErrDoubleSpend))
}

func TestRewindBlocks(t *testing.T) {
	c := newMemAccumulators(t, Config{})
	history := applyBlocks(t, c, testBlock(0), testBlock(1, 0), testBlock(2, 1, 2), testBlock(3, 4))

	require.NoError(t, c.RewindBlocks(2))
	assert.EqualValues(t, 2, c.Height())
	roots, err := c.Roots()
	require.NoError(t, err)
	assert.Equal(t, history[1], roots)

	// replaying the same blocks gives the same roots
	replayed := applyBlocks(t, c, testBlock(2, 1, 2), testBlock(3, 4))
	assert.Equal(t, history[2:], replayed)

	assert.True(t, errors.Is(c.RewindBlocks(5), accum.ErrIndexOutOfRange))
	require.NoError(t, c.RewindBlocks(4))
	roots, err = c.Roots()
	require.NoError(t, err)
	assert.Equal(t, expectedRoots(t), roots)
}

func TestRewindHorizon(t *testing.T) {
	c := newMemAccumulators(t, Config{RewindHorizon: 2})
	history := applyBlocks(t, c, testBlock(0), testBlock(1, 0), testBlock(2, 1), testBlock(3, 2), testBlock(4, 3))

	stats, err := c.Stats()
	require.NoError(t, err)
	for _, ts := range stats.Trees {
		assert.EqualValues(t, 3, ts.Merged, ts.Tree.String())
		assert.EqualValues(t, 5, ts.Checkpoints, ts.Tree.String())
	}

	assert.True(t, errors.Is(c.RewindBlocks(3), accum.ErrIndexOutOfRange))
	require.NoError(t, c.RewindBlocks(2))
	roots, err := c.Roots()
	require.NoError(t, err)
	assert.Equal(t, history[2], roots)

	_, err = c.MMROnlyRootsAt(1)
	assert.True(t, errors.Is(err, accum.ErrIndexOutOfRange))
}

func TestQueries(t *testing.T) {
	c := newMemAccumulators(t, Config{})
	applyBlocks(t, c, testBlock(0), testBlock(1, 0), testBlock(2))

	// live output
	hash, spent, err := c.FetchLeaf(TreeUtxo, 3)
	require.NoError(t, err)
	assert.False(t, spent)
	assert.Equal(t, hashOf('o', 3), hash)

	_, spent, err = c.FetchLeaf(TreeUtxo, 0)
	require.NoError(t, err)
	assert.True(t, spent)

	_, _, err = c.FetchLeaf(TreeKernel, 10)
	assert.True(t, errors.Is(err, accum.ErrLeafNotFound))

	index, err := c.FindLeaf(TreeRangeProof, hashOf('r', 4))
	require.NoError(t, err)
	assert.EqualValues(t, 4, index)

	for _, tree := range Trees {
		leafIndex := uint32(3)
		if tree == TreeKernel {
			leafIndex = 2
		}
		proof, err := c.Proof(tree, leafIndex)
		require.NoError(t, err, tree.String())
		leaf, _, err := c.FetchLeaf(tree, leafIndex)
		require.NoError(t, err)
		assert.NoError(t, c.VerifyProof(tree, proof, leaf), tree.String())
		assert.Error(t, c.VerifyProof(tree, proof, hashOf('x', 0)), tree.String())
	}

	_, err = c.Proof(TreeUtxo, 0)
	assert.True(t, errors.Is(err, accum.ErrLeafNotFound))
	_, err = c.Proof(Tree(7), 0)
	assert.True(t, errors.Is(err, ErrUnknownTree))

	cp, err := c.FetchCheckpoint(TreeUtxo, 2)
	require.NoError(t, err)
	assert.Equal(t, []accum.Hash{hashOf('o', 2), hashOf('o', 3)}, cp.NodesAdded())
	assert.Equal(t, []uint32{0}, cp.NodesDeleted().ToArray())
	_, err = c.FetchCheckpoint(TreeUtxo, 0)
	assert.Error(t, err)
	_, err = c.FetchCheckpoint(TreeUtxo, 4)
	assert.Error(t, err)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Height)
	require.Len(t, stats.Trees, len(Trees))
	assert.EqualValues(t, 6, stats.Trees[TreeUtxo].Leaves)
	assert.EqualValues(t, 1, stats.Trees[TreeUtxo].Deleted)
	assert.EqualValues(t, 3, stats.Trees[TreeKernel].Leaves)
	assert.EqualValues(t, 4, stats.Trees[TreeKernel].Nodes)
}

func TestPersistentAccumulators(t *testing.T) {
	for _, dbType := range []string{"memdb", "leveldb", "pebble"} {
		t.Run(dbType, func(t *testing.T) {
			path := t.TempDir() + "/acc"
			if dbType == "memdb" {
				path = t.Name()
			}
			store, err := database.Create(dbType, path)
			require.NoError(t, err)

			cfg := Config{RewindHorizon: 2}
			c, err := NewChainAccumulators(testHasher, store, cfg)
			require.NoError(t, err)
			blocks := []*BlockDiff{testBlock(0), testBlock(1, 0), testBlock(2, 1), testBlock(3, 2, 6), testBlock(4)}
			history := applyBlocks(t, c, blocks...)
			assert.Equal(t, expectedRoots(t, blocks...), history[len(history)-1])
			require.NoError(t, store.Close())

			store, err = database.Open(dbType, path)
			require.NoError(t, err)
			defer store.Close()
			reopened, err := NewChainAccumulators(testHasher, store, cfg)
			require.NoError(t, err)

			assert.EqualValues(t, 5, reopened.Height())
			roots, err := reopened.Roots()
			require.NoError(t, err)
			assert.Equal(t, history[4], roots)

			// the merged base survives and the horizon still holds
			assert.True(t, errors.Is(reopened.RewindBlocks(3), accum.ErrIndexOutOfRange))
			require.NoError(t, reopened.RewindBlocks(1))
			roots, err = reopened.Roots()
			require.NoError(t, err)
			assert.Equal(t, history[3], roots)
			require.NoError(t, reopened.Validate())
		})
	}
}

// Spending a run of outputs makes the stores hand back the deletions in a
// different bitmap layout. The utxo root must only depend on which outputs are spent.
func TestStateRootAfterRewindAndReopen(t *testing.T) {
	blocks := []*BlockDiff{testBlock(0), testBlock(1, 0, 1, 2), testBlock(2)}
	mem := newMemAccumulators(t, Config{})
	want := applyBlocks(t, mem, blocks...)

	for _, dbType := range []string{"memdb", "leveldb", "pebble"} {
		t.Run(dbType, func(t *testing.T) {
			path := t.TempDir() + "/acc"
			if dbType == "memdb" {
				path = t.Name()
			}
			store, err := database.Create(dbType, path)
			require.NoError(t, err)

			c, err := NewChainAccumulators(testHasher, store, Config{})
			require.NoError(t, err)
			require.Equal(t, want, applyBlocks(t, c, blocks...))

			require.NoError(t, c.RewindBlocks(1))
			roots, err := c.Roots()
			require.NoError(t, err)
			assert.Equal(t, want[1], roots)
			height, ok := c.LookupRoots(want[1])
			assert.True(t, ok)
			assert.EqualValues(t, 2, height)
			require.NoError(t, store.Close())

			store, err = database.Open(dbType, path)
			require.NoError(t, err)
			defer store.Close()
			reopened, err := NewChainAccumulators(testHasher, store, Config{})
			require.NoError(t, err)
			roots, err = reopened.Roots()
			require.NoError(t, err)
			assert.Equal(t, want[1], roots)

			assert.Equal(t, want[2:], applyBlocks(t, reopened, blocks[2]))
		})
	}
}

func TestBackendDeterminism(t *testing.T) {
	blocks := []*BlockDiff{testBlock(0), testBlock(1, 1), testBlock(2, 0, 2, 3), testBlock(3)}
	mem := newMemAccumulators(t, Config{})
	want := applyBlocks(t, mem, blocks...)

	for _, dbType := range []string{"leveldb", "pebble"} {
		store, err := database.Create(dbType, ":memory:")
		require.NoError(t, err)
		c, err := NewChainAccumulators(testHasher, store, Config{})
		require.NoError(t, err)
		assert.Equal(t, want, applyBlocks(t, c, blocks...), dbType)
		require.NoError(t, store.Close())
	}
}

func TestTreeNames(t *testing.T) {
	for _, tree := range Trees {
		parsed, err := ParseTree(tree.String())
		require.NoError(t, err)
		assert.Equal(t, tree, parsed)

		text, err := tree.MarshalText()
		require.NoError(t, err)
		var back Tree
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, tree, back)
	}
	_, err := ParseTree("witness")
	assert.True(t, errors.Is(err, ErrUnknownTree))
	assert.Equal(t, "unknown", Tree(9).String())
}
