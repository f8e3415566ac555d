// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"github.com/pkg/errors"
)

// Layout identifies the tree shape a proof was generated for.
type Layout uint8

const (
	LayoutMountainRange Layout = iota
	LayoutBalanced
)

func (l Layout) String() string {
	switch l {
	case LayoutMountainRange:
		return "mmr"
	case LayoutBalanced:
		return "balanced"
	default:
		return "unknown"
	}
}

func (l Layout) MarshalText() ([]byte, error) {
	if l > LayoutBalanced {
		return nil, errors.Errorf("unknown layout %d", l)
	}
	return []byte(l.String()), nil
}

func (l *Layout) UnmarshalText(text []byte) error {
	switch string(text) {
	case "mmr":
		*l = LayoutMountainRange
	case "balanced":
		*l = LayoutBalanced
	default:
		return errors.Errorf("unknown layout %q", text)
	}
	return nil
}

// ProofNode is a sibling met on the way from the leaf to the root.
// IsLeft is true when the sibling is the left operand of the hash.
type ProofNode struct {
	Hash   Hash `json:"hash"`
	IsLeft bool `json:"left"`
}

// MerkleProof is an inclusion proof of a single leaf.
type MerkleProof struct {
	Layout    Layout      `json:"layout"`
	LeafIndex uint64      `json:"leaf_index"`
	LeafCount uint64      `json:"leaf_count"`
	Path      []ProofNode `json:"path"`
}

// Verify folds the path starting from the leaf hash and compares the result with the root.
// The side of every step and the path length are derived from the layout, the leaf
// index and the leaf count; a proof of any other shape is rejected as malformed.
func (p *MerkleProof) Verify(hasher Hasher, leaf, root Hash) error {
	sides, err := proofSides(p.Layout, p.LeafIndex, p.LeafCount)
	if err != nil {
		return errors.Wrap(ErrMalformedProof, err.Error())
	}
	if len(sides) != len(p.Path) {
		return errors.Wrapf(ErrMalformedProof, "path has %d nodes, want %d", len(p.Path), len(sides))
	}
	for i, node := range p.Path {
		if node.IsLeft != sides[i] {
			return errors.Wrapf(ErrMalformedProof, "unexpected side of node %d", i)
		}
	}

	if p.ComputeRoot(hasher, leaf) != root {
		return ErrProofVerificationFailed
	}
	return nil
}

// IsValid is Verify reduced to a boolean.
func (p *MerkleProof) IsValid(hasher Hasher, leaf, root Hash) bool {
	return p.Verify(hasher, leaf, root) == nil
}

// ComputeRoot folds the path without any shape checks.
func (p *MerkleProof) ComputeRoot(hasher Hasher, leaf Hash) Hash {
	current := leaf
	for _, node := range p.Path {
		if node.IsLeft {
			current = hasher.HashChildren(node.Hash, current)
		} else {
			current = hasher.HashChildren(current, node.Hash)
		}
	}
	return current
}

func proofSides(layout Layout, leafIndex, leafCount uint64) ([]bool, error) {
	if leafIndex >= leafCount {
		return nil, errors.Errorf("leaf %d doesn't exist in a tree of %d leaves", leafIndex, leafCount)
	}
	switch layout {
	case LayoutMountainRange:
		plan, err := planMountainPath(leafIndex, leafCount)
		if err != nil {
			return nil, err
		}
		return plan.sides(), nil
	case LayoutBalanced:
		return balancedSides(leafIndex, leafCount)
	default:
		return nil, errors.Errorf("unknown layout %d", layout)
	}
}

// mountainPath describes which nodes prove a leaf of a mountain range.
type mountainPath struct {
	siblings  []uint64
	leftSides []bool
	peaks     []uint64
	peakIndex int
}

func planMountainPath(leafIndex, leafCount uint64) (*mountainPath, error) {
	size, err := NodeCountForLeaves(leafCount)
	if err != nil {
		return nil, err
	}
	pos, err := LeafToNodeIndex(leafIndex)
	if err != nil {
		return nil, err
	}
	peaks, _ := FindPeaks(size)

	plan := &mountainPath{peaks: peaks}
	for {
		if idx := indexOf(peaks, pos); idx >= 0 {
			plan.peakIndex = idx
			return plan, nil
		}
		if pos >= size {
			return nil, errors.Wrapf(ErrCorruptState, "node %d has no peak", pos)
		}
		parent, sibling := Family(pos)
		plan.siblings = append(plan.siblings, sibling)
		plan.leftSides = append(plan.leftSides, !IsLeftSibling(pos))
		pos = parent
	}
}

func (p *mountainPath) sides() []bool {
	res := append([]bool{}, p.leftSides...)
	if p.peakIndex > 0 {
		res = append(res, true)
	}
	for i := p.peakIndex + 1; i < len(p.peaks); i++ {
		res = append(res, false)
	}
	return res
}

func indexOf(list []uint64, v uint64) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func balancedSides(leafIndex, leafCount uint64) ([]bool, error) {
	if leafCount > MaxLeafCount {
		return nil, errors.Wrapf(ErrMathOverflow, "leaf count %d", leafCount)
	}
	var res []bool
	for x := leafIndex + leafCount - 1; x > 0; x = (x - 1) / 2 {
		res = append(res, x%2 == 0)
	}
	return res, nil
}

// GenerateProof builds the inclusion proof of the leaf at leafIndex.
func (m *MerkleMountainRange) GenerateProof(leafIndex uint64) (*MerkleProof, error) {
	size, err := m.Len()
	if err != nil {
		return nil, err
	}
	leafCount := LeafCountForSize(size)
	if leafIndex >= leafCount {
		return nil, errors.Wrapf(ErrLeafNotFound, "leaf %d of %d", leafIndex, leafCount)
	}

	plan, err := planMountainPath(leafIndex, leafCount)
	if err != nil {
		return nil, err
	}
	proof := &MerkleProof{
		Layout:    LayoutMountainRange,
		LeafIndex: leafIndex,
		LeafCount: leafCount,
	}
	for i, pos := range plan.siblings {
		h, err := m.node(pos)
		if err != nil {
			return nil, err
		}
		proof.Path = append(proof.Path, ProofNode{Hash: h, IsLeft: plan.leftSides[i]})
	}

	peaks, err := m.peakHashes(size)
	if err != nil {
		return nil, err
	}
	if plan.peakIndex > 0 {
		proof.Path = append(proof.Path, ProofNode{Hash: bagPeaks(m.hasher, peaks[:plan.peakIndex]), IsLeft: true})
	}
	for _, h := range peaks[plan.peakIndex+1:] {
		proof.Path = append(proof.Path, ProofNode{Hash: h})
	}
	return proof, nil
}
