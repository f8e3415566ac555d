// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"github.com/pkg/errors"
)

// BalancedBinaryMerkleTree is an immutable tree built once from a fixed list of leaves.
// Nodes are kept in heap order: the root at 0, children of node i at 2i+1 and 2i+2,
// leaves in the last n slots.
type BalancedBinaryMerkleTree struct {
	hasher Hasher
	nodes  []Hash
}

func NewBalancedBinaryMerkleTree(hasher Hasher, leaves []Hash) (*BalancedBinaryMerkleTree, error) {
	n := uint64(len(leaves))
	if n > MaxLeafCount {
		return nil, errors.Wrapf(ErrMathOverflow, "leaf count %d", n)
	}
	tree := &BalancedBinaryMerkleTree{hasher: hasher}
	if n == 0 {
		return tree, nil
	}

	tree.nodes = make([]Hash, 2*n-1)
	copy(tree.nodes[n-1:], leaves)
	for i := int(n) - 2; i >= 0; i-- {
		tree.nodes[i] = hasher.HashChildren(tree.nodes[2*i+1], tree.nodes[2*i+2])
	}
	return tree, nil
}

func (t *BalancedBinaryMerkleTree) LeafCount() uint64 {
	if len(t.nodes) == 0 {
		return 0
	}
	return uint64(len(t.nodes)+1) / 2
}

// GetMerkleRoot returns the root. A tree of one leaf has the leaf as the root.
func (t *BalancedBinaryMerkleTree) GetMerkleRoot() Hash {
	if len(t.nodes) == 0 {
		return t.hasher.HashEmpty()
	}
	return t.nodes[0]
}

func (t *BalancedBinaryMerkleTree) GetLeaf(leafIndex uint64) (Hash, error) {
	if leafIndex >= t.LeafCount() {
		return Hash{}, errors.Wrapf(ErrLeafNotFound, "leaf %d of %d", leafIndex, t.LeafCount())
	}
	return t.nodes[leafIndex+uint64(len(t.nodes))/2], nil
}

// FindLeafIndexForHash searches the leaves only, internal nodes never match.
func (t *BalancedBinaryMerkleTree) FindLeafIndexForHash(hash Hash) (uint64, error) {
	first := len(t.nodes) / 2
	for i, h := range t.nodes[first:] {
		if h == hash {
			return uint64(i), nil
		}
	}
	return 0, errors.Wrapf(ErrLeafNotFound, "leaf %s", hash)
}

func (t *BalancedBinaryMerkleTree) GenerateProof(leafIndex uint64) (*MerkleProof, error) {
	count := t.LeafCount()
	if leafIndex >= count {
		return nil, errors.Wrapf(ErrLeafNotFound, "leaf %d of %d", leafIndex, count)
	}
	proof := &MerkleProof{
		Layout:    LayoutBalanced,
		LeafIndex: leafIndex,
		LeafCount: count,
	}
	for x := leafIndex + count - 1; x > 0; x = (x - 1) / 2 {
		if x%2 == 0 {
			proof.Path = append(proof.Path, ProofNode{Hash: t.nodes[x-1], IsLeft: true})
		} else {
			proof.Path = append(proof.Path, ProofNode{Hash: t.nodes[x+1]})
		}
	}
	return proof, nil
}
