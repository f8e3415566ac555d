// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

// Node positions are counted in postorder, the order in which nodes are created:
//
//	height 2:             6
//	                    /   \
//	height 1:         2       5       9
//	                 / \     / \     / \
//	height 0:       0   1   3   4   7   8   10
//
// An MMR of 11 nodes has 7 leaves and peaks 6, 9 and 10.

const (
	// MaxLeafCount bounds the leaves of a mountain range, so every node
	// index and every size derived from it fits in uint64 without overflow.
	MaxLeafCount = uint64(1) << 61
	// MaxNodeCount is the node count of a mountain range with MaxLeafCount leaves.
	MaxNodeCount = 2 * MaxLeafCount
)

// SiblingOffset is the distance between a node of the height and its sibling.
func SiblingOffset(height uint64) uint64 {
	return (2 << height) - 1
}

// PeakOfHeight is the position of the first node of the height,
// the peak of the leftmost perfect tree of that height.
func PeakOfHeight(height uint64) uint64 {
	return (2 << height) - 2
}

// NodeHeight returns the height of the node at the position. Leaves have height 0.
func NodeHeight(pos uint64) uint64 {
	p := pos + 1
	for !allOnes(p) {
		p = jumpLeft(p)
	}
	return uint64(bits.Len64(p) - 1)
}

func allOnes(x uint64) bool {
	return x != 0 && x&(x+1) == 0
}

// jumpLeft moves a 1-based position to the same node of the left neighbour tree.
func jumpLeft(x uint64) uint64 {
	msb := uint64(1) << (bits.Len64(x) - 1)
	return x - msb + 1
}

func IsLeaf(pos uint64) bool {
	return NodeHeight(pos) == 0
}

// IsLeftSibling reports whether the node is the left child of its parent.
func IsLeftSibling(pos uint64) bool {
	return NodeHeight(pos+1) <= NodeHeight(pos)
}

// Family returns the parent and the sibling of the node.
// The result is meaningful only when the parent exists in the mountain range.
func Family(pos uint64) (parent, sibling uint64) {
	h := NodeHeight(pos)
	if NodeHeight(pos+1) > h {
		return pos + 1, pos - SiblingOffset(h)
	}
	sibling = pos + SiblingOffset(h)
	return sibling + 1, sibling
}

// LeafToNodeIndex converts a leaf index into the position of the leaf.
func LeafToNodeIndex(leafIndex uint64) (uint64, error) {
	if leafIndex >= MaxLeafCount {
		return 0, errors.Wrapf(ErrMathOverflow, "leaf index %d", leafIndex)
	}
	return 2*leafIndex - uint64(bits.OnesCount64(leafIndex)), nil
}

// NodeCountForLeaves returns the size of the mountain range holding n leaves.
func NodeCountForLeaves(n uint64) (uint64, error) {
	if n > MaxLeafCount {
		return 0, errors.Wrapf(ErrMathOverflow, "leaf count %d", n)
	}
	return 2*n - uint64(bits.OnesCount64(n)), nil
}

// LeafCountForSize returns the number of leaves in the largest mountain range
// whose size is <= size. The result is also a bitmap of the peak heights.
func LeafCountForSize(size uint64) uint64 {
	if size == 0 {
		return 0
	}
	peakSize := uint64(math.MaxUint64) >> bits.LeadingZeros64(size)
	peakMap := uint64(0)
	for peakSize > 0 {
		peakMap <<= 1
		if size >= peakSize {
			size -= peakSize
			peakMap |= 1
		}
		peakSize >>= 1
	}
	return peakMap
}

// NodeToLeafIndex returns the index of the leftmost leaf under the node.
func NodeToLeafIndex(pos uint64) uint64 {
	first := pos - PeakOfHeight(NodeHeight(pos))
	return LeafCountForSize(first)
}

// LeafRange returns the leftmost leaf index and the number of leaves under the node.
func LeafRange(pos uint64) (first, count uint64) {
	return NodeToLeafIndex(pos), uint64(1) << NodeHeight(pos)
}

// FindPeaks returns peak positions of a mountain range of the size in
// construction order, left to right. ok is false for a size no mountain range can have.
func FindPeaks(size uint64) (peaks []uint64, ok bool) {
	if size == 0 {
		return nil, true
	}
	peakSize := uint64(math.MaxUint64) >> bits.LeadingZeros64(size)
	numLeft := size
	sumPrev := uint64(0)
	for peakSize != 0 {
		if numLeft >= peakSize {
			peaks = append(peaks, sumPrev+peakSize-1)
			sumPrev += peakSize
			numLeft -= peakSize
		}
		peakSize >>= 1
	}
	if numLeft > 0 {
		return nil, false
	}
	return peaks, true
}

// ValidSize reports whether a mountain range can have exactly size nodes.
func ValidSize(size uint64) bool {
	_, ok := FindPeaks(size)
	return ok
}
