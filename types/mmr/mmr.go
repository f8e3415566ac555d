// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"github.com/pkg/errors"
)

// MerkleMountainRange is an append-only accumulator: a list of perfect binary
// trees of strictly decreasing height, stored node by node in a Backend.
//
// The root is the left fold of the peaks in construction order:
//
//	root = HashChildren(...HashChildren(HashChildren(p0, p1), p2)..., pn)
//
// An empty range has the HashEmpty root and a single peak is the root itself.
// MerkleMountainRange is not safe for concurrent use.
type MerkleMountainRange struct {
	hasher  Hasher
	backend Backend
}

func NewMerkleMountainRange(hasher Hasher, backend Backend) *MerkleMountainRange {
	return &MerkleMountainRange{hasher: hasher, backend: backend}
}

func (m *MerkleMountainRange) Hasher() Hasher { return m.hasher }

func (m *MerkleMountainRange) Backend() Backend { return m.backend }

// Len returns the number of stored nodes.
func (m *MerkleMountainRange) Len() (uint64, error) {
	size, err := m.backend.Len()
	if err != nil {
		return 0, backendError("len", err)
	}
	if !ValidSize(size) {
		return 0, errors.Wrapf(ErrCorruptState, "backend holds %d nodes", size)
	}
	return size, nil
}

func (m *MerkleMountainRange) LeafCount() (uint64, error) {
	size, err := m.Len()
	if err != nil {
		return 0, err
	}
	return LeafCountForSize(size), nil
}

func (m *MerkleMountainRange) IsEmpty() (bool, error) {
	size, err := m.Len()
	return size == 0, err
}

// Push appends a leaf hash and every parent it completes.
// It returns the position of the leaf.
func (m *MerkleMountainRange) Push(hash Hash) (uint64, error) {
	size, err := m.Len()
	if err != nil {
		return 0, err
	}
	if LeafCountForSize(size) >= MaxLeafCount {
		return 0, errors.Wrap(ErrMathOverflow, "mountain range is full")
	}

	leafPos, err := m.backend.Push(hash)
	if err != nil {
		return 0, backendError("push", err)
	}
	if leafPos != size {
		return 0, errors.Wrapf(ErrCorruptState, "leaf stored at %d, expected %d", leafPos, size)
	}

	size++
	current := hash
	height := uint64(0)
	for NodeHeight(size) > height {
		left, err := m.node(size - (2 << height))
		if err != nil {
			return 0, err
		}
		current = m.hasher.HashChildren(left, current)
		if _, err = m.backend.Push(current); err != nil {
			return 0, backendError("push", err)
		}
		size++
		height++
	}
	return leafPos, nil
}

// node returns a stored hash, failing when it is absent.
func (m *MerkleMountainRange) node(pos uint64) (Hash, error) {
	h, err := m.backend.Get(pos)
	if err != nil {
		return Hash{}, backendError("get", err)
	}
	if h == nil {
		return Hash{}, errors.Wrapf(ErrNodePruned, "node %d", pos)
	}
	return *h, nil
}

// GetNodeHash returns the hash at the position. Nil is returned for
// positions past the end and for forgotten nodes.
func (m *MerkleMountainRange) GetNodeHash(pos uint64) (*Hash, error) {
	h, err := m.backend.Get(pos)
	return h, backendError("get", err)
}

// GetLeafHash returns the hash of the leaf or nil if there is no such leaf.
func (m *MerkleMountainRange) GetLeafHash(leafIndex uint64) (*Hash, error) {
	pos, err := LeafToNodeIndex(leafIndex)
	if err != nil {
		return nil, err
	}
	return m.GetNodeHash(pos)
}

// LeafHashes returns up to count leaf hashes starting at the leaf index.
// Forgotten leaves are returned as zero hashes.
func (m *MerkleMountainRange) LeafHashes(start, count uint64) ([]Hash, error) {
	leaves, err := m.LeafCount()
	if err != nil {
		return nil, err
	}
	if start >= leaves {
		return nil, nil
	}
	if count > leaves-start {
		count = leaves - start
	}
	res := make([]Hash, 0, count)
	for i := start; i < start+count; i++ {
		h, err := m.GetLeafHash(i)
		if err != nil {
			return nil, err
		}
		if h != nil {
			res = append(res, *h)
		} else {
			res = append(res, Hash{})
		}
	}
	return res, nil
}

// GetPeakHashes returns peaks in construction order.
func (m *MerkleMountainRange) GetPeakHashes() ([]Hash, error) {
	size, err := m.Len()
	if err != nil {
		return nil, err
	}
	return m.peakHashes(size)
}

func (m *MerkleMountainRange) peakHashes(size uint64) ([]Hash, error) {
	positions, ok := FindPeaks(size)
	if !ok {
		return nil, errors.Wrapf(ErrCorruptState, "invalid size %d", size)
	}
	res := make([]Hash, len(positions))
	for i, pos := range positions {
		h, err := m.node(pos)
		if err != nil {
			return nil, err
		}
		res[i] = h
	}
	return res, nil
}

// GetMerkleRoot bags the peaks into a single root.
func (m *MerkleMountainRange) GetMerkleRoot() (Hash, error) {
	peaks, err := m.GetPeakHashes()
	if err != nil {
		return Hash{}, err
	}
	return bagPeaks(m.hasher, peaks), nil
}

func bagPeaks(hasher Hasher, peaks []Hash) Hash {
	if len(peaks) == 0 {
		return hasher.HashEmpty()
	}
	acc := peaks[0]
	for _, p := range peaks[1:] {
		acc = hasher.HashChildren(acc, p)
	}
	return acc
}

// FindNodeIndex returns the position of the first node with the hash.
func (m *MerkleMountainRange) FindNodeIndex(hash Hash) (uint64, error) {
	var (
		found bool
		res   uint64
	)
	errStop := errors.New("stop")
	err := m.backend.ForEach(func(index uint64, h *Hash) error {
		if h != nil && *h == hash {
			found, res = true, index
			return errStop
		}
		return nil
	})
	if err != nil && err != errStop {
		return 0, backendError("for each", err)
	}
	if !found {
		return 0, errors.Wrapf(ErrLeafNotFound, "node %s", hash)
	}
	return res, nil
}

// FindLeafIndex returns the index of the first leaf with the hash.
func (m *MerkleMountainRange) FindLeafIndex(hash Hash) (uint64, error) {
	var (
		found bool
		res   uint64
	)
	errStop := errors.New("stop")
	err := m.backend.ForEach(func(index uint64, h *Hash) error {
		if h != nil && *h == hash && IsLeaf(index) {
			found, res = true, LeafCountForSize(index)
			return errStop
		}
		return nil
	})
	if err != nil && err != errStop {
		return 0, backendError("for each", err)
	}
	if !found {
		return 0, errors.Wrapf(ErrLeafNotFound, "leaf %s", hash)
	}
	return res, nil
}

// Validate recomputes every internal node whose children are still stored.
func (m *MerkleMountainRange) Validate() error {
	size, err := m.Len()
	if err != nil {
		return err
	}
	for pos := uint64(0); pos < size; pos++ {
		height := NodeHeight(pos)
		if height == 0 {
			continue
		}
		stored, err := m.GetNodeHash(pos)
		if err != nil {
			return err
		}
		right := pos - 1
		left := pos - (2 << (height - 1))
		lh, err := m.GetNodeHash(left)
		if err != nil {
			return err
		}
		rh, err := m.GetNodeHash(right)
		if err != nil {
			return err
		}
		if stored == nil || lh == nil || rh == nil {
			continue
		}
		if m.hasher.HashChildren(*lh, *rh) != *stored {
			return errors.Wrapf(ErrCorruptState, "node %d doesn't match its children", pos)
		}
	}
	return nil
}

// Assign replaces the content of the range with the leaves.
func (m *MerkleMountainRange) Assign(leaves []Hash) error {
	if err := m.backend.Truncate(0); err != nil {
		return backendError("truncate", err)
	}
	for _, leaf := range leaves {
		if _, err := m.Push(leaf); err != nil {
			return err
		}
	}
	return nil
}

// Truncate drops every leaf at index >= leafCount.
func (m *MerkleMountainRange) Truncate(leafCount uint64) error {
	size, err := NodeCountForLeaves(leafCount)
	if err != nil {
		return err
	}
	return backendError("truncate", m.backend.Truncate(size))
}
