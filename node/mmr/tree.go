/*
 * Copyright (c) 2021 The JaxNetwork developers
 * Use of this source code is governed by an ISC
 * license that can be found in the LICENSE file.
 */

package mmr

import (
	"github.com/pkg/errors"
	accum "gitlab.com/jaxnet/mmrengine/types/mmr"
)

// Tree names one of the chain accumulators.
type Tree uint8

const (
	TreeUtxo Tree = iota
	TreeKernel
	TreeRangeProof

	treeCount
)

var treeNames = [treeCount]string{"utxo", "kernel", "rangeproof"}

// Trees lists every tree in commit order.
var Trees = [...]Tree{TreeUtxo, TreeKernel, TreeRangeProof}

var ErrUnknownTree = errors.New("unknown tree")

func (t Tree) String() string {
	if t < treeCount {
		return treeNames[t]
	}
	return "unknown"
}

func ParseTree(name string) (Tree, error) {
	for i, n := range treeNames {
		if n == name {
			return Tree(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownTree, "%q", name)
}

func (t Tree) MarshalText() ([]byte, error) {
	if t >= treeCount {
		return nil, errors.Wrapf(ErrUnknownTree, "%d", t)
	}
	return []byte(t.String()), nil
}

func (t *Tree) UnmarshalText(text []byte) error {
	tree, err := ParseTree(string(text))
	if err != nil {
		return err
	}
	*t = tree
	return nil
}

// Roots is the commitment of a block to the chain state.
type Roots struct {
	Utxo       accum.Hash `json:"utxo"`
	Kernel     accum.Hash `json:"kernel"`
	RangeProof accum.Hash `json:"range_proof"`
}

func (r Roots) Get(tree Tree) accum.Hash {
	switch tree {
	case TreeKernel:
		return r.Kernel
	case TreeRangeProof:
		return r.RangeProof
	default:
		return r.Utxo
	}
}

func (r *Roots) set(tree Tree, hash accum.Hash) {
	switch tree {
	case TreeKernel:
		r.Kernel = hash
	case TreeRangeProof:
		r.RangeProof = hash
	default:
		r.Utxo = hash
	}
}

// BlockDiff holds the changes a block makes to the accumulators.
// Spent refers to utxo leaf indexes, outputs of the same block included.
type BlockDiff struct {
	Outputs     []accum.Hash
	Kernels     []accum.Hash
	RangeProofs []accum.Hash
	Spent       []uint32
}

func (d *BlockDiff) additions(tree Tree) []accum.Hash {
	switch tree {
	case TreeKernel:
		return d.Kernels
	case TreeRangeProof:
		return d.RangeProofs
	default:
		return d.Outputs
	}
}

func (d *BlockDiff) setAdditions(tree Tree, hashes []accum.Hash) {
	switch tree {
	case TreeKernel:
		d.Kernels = hashes
	case TreeRangeProof:
		d.RangeProofs = hashes
	default:
		d.Outputs = hashes
	}
}

// TreeStats describes one accumulator.
type TreeStats struct {
	Tree        Tree   `json:"tree"`
	Leaves      uint32 `json:"leaves"`
	Deleted     uint64 `json:"deleted"`
	Nodes       uint64 `json:"nodes"`
	Checkpoints uint64 `json:"checkpoints"`
	Merged      uint64 `json:"merged"`
}

type Stats struct {
	Height uint64      `json:"height"`
	Trees  []TreeStats `json:"trees"`
}
