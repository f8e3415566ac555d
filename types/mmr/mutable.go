// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"math"

	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"
)

// MaxMutableLeafCount is the capacity of a MutableMmr, limited by the 32-bit deletion bitmap.
const MaxMutableLeafCount = uint64(math.MaxUint32)

// MutableMmr is a mountain range whose leaves can be marked deleted.
//
// Deletion is logical: the stored hashes, and so the merkle root, don't change.
// Compaction may physically forget nodes of fully deleted subtrees when the
// backend implements Forgetter; peaks and ancestors of live leaves are always kept.
type MutableMmr struct {
	mmr     *MerkleMountainRange
	deleted *roaring.Bitmap
	size    uint32
}

// NewMutableMmr opens a MutableMmr over the backend, which may already hold nodes.
func NewMutableMmr(hasher Hasher, backend Backend) (*MutableMmr, error) {
	return NewMutableMmrWithDeleted(hasher, backend, roaring.New())
}

// NewMutableMmrWithDeleted opens a MutableMmr with a known deletion bitmap.
func NewMutableMmrWithDeleted(hasher Hasher, backend Backend, deleted *roaring.Bitmap) (*MutableMmr, error) {
	m := &MutableMmr{mmr: NewMerkleMountainRange(hasher, backend)}
	leaves, err := m.mmr.LeafCount()
	if err != nil {
		return nil, err
	}
	if leaves > MaxMutableLeafCount {
		return nil, errors.Wrapf(ErrMathOverflow, "backend holds %d leaves", leaves)
	}
	m.size = uint32(leaves)
	if err = m.SetDeleted(deleted); err != nil {
		return nil, err
	}
	return m, nil
}

// MMR gives read access to the underlying mountain range.
func (m *MutableMmr) MMR() *MerkleMountainRange { return m.mmr }

func (m *MutableMmr) Hasher() Hasher { return m.mmr.hasher }

// Len returns the number of leaves, deleted ones included.
func (m *MutableMmr) Len() uint32 { return m.size }

func (m *MutableMmr) DeletedCount() uint64 { return m.deleted.GetCardinality() }

// IsEmpty is true when every leaf is deleted.
func (m *MutableMmr) IsEmpty() bool {
	return uint64(m.size) == m.deleted.GetCardinality()
}

func (m *MutableMmr) IsDeleted(leafIndex uint32) bool {
	return m.deleted.Contains(leafIndex)
}

// Deleted returns a copy of the deletion bitmap.
func (m *MutableMmr) Deleted() *roaring.Bitmap {
	return m.deleted.Clone()
}

// SetDeleted replaces the deletion bitmap.
func (m *MutableMmr) SetDeleted(deleted *roaring.Bitmap) error {
	if deleted == nil {
		deleted = roaring.New()
	}
	if !deleted.IsEmpty() && uint64(deleted.Maximum()) >= uint64(m.size) {
		return errors.Wrapf(ErrIndexOutOfRange, "deleted leaf %d of %d", deleted.Maximum(), m.size)
	}
	m.deleted = deleted.Clone()
	return nil
}

// Push appends a leaf and returns its position.
func (m *MutableMmr) Push(hash Hash) (uint64, error) {
	if uint64(m.size) >= MaxMutableLeafCount {
		return 0, errors.Wrap(ErrMathOverflow, "mutable mountain range is full")
	}
	pos, err := m.mmr.Push(hash)
	if err != nil {
		return 0, err
	}
	m.size++
	return pos, nil
}

// Delete marks the leaf deleted. False is returned when the leaf doesn't
// exist or is deleted already.
func (m *MutableMmr) Delete(leafIndex uint32) bool {
	if leafIndex >= m.size {
		return false
	}
	return m.deleted.CheckedAdd(leafIndex)
}

// DeleteAndCompress marks the leaf deleted and optionally forgets
// the subtrees which became fully deleted.
func (m *MutableMmr) DeleteAndCompress(leafIndex uint32, compress bool) (bool, error) {
	if leafIndex >= m.size {
		return false, errors.Wrapf(ErrIndexOutOfRange, "leaf %d of %d", leafIndex, m.size)
	}
	if !m.deleted.CheckedAdd(leafIndex) {
		return false, nil
	}
	if compress {
		if _, err := m.compactFrom(uint64(leafIndex)); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Compress forgets all subtrees whose leaves are all deleted.
// It reports whether anything was forgotten.
func (m *MutableMmr) Compress() (bool, error) {
	m.deleted.RunOptimize()
	var (
		changed bool
		err     error
	)
	it := m.deleted.Iterator()
	for it.HasNext() {
		var forgot bool
		if forgot, err = m.compactFrom(uint64(it.Next())); err != nil {
			return changed, err
		}
		changed = changed || forgot
	}
	return changed, nil
}

// compactFrom walks from the deleted leaf towards its peak and forgets
// both children of every dead parent.
func (m *MutableMmr) compactFrom(leafIndex uint64) (bool, error) {
	forgetter, ok := m.mmr.backend.(Forgetter)
	if !ok {
		return false, nil
	}
	size, err := NodeCountForLeaves(uint64(m.size))
	if err != nil {
		return false, err
	}
	peaks, _ := FindPeaks(size)

	pos, err := LeafToNodeIndex(leafIndex)
	if err != nil {
		return false, err
	}
	changed := false
	for indexOf(peaks, pos) < 0 {
		parent, sibling := Family(pos)
		if !m.isDead(parent) {
			break
		}
		for _, p := range [2]uint64{pos, sibling} {
			h, err := m.mmr.backend.Get(p)
			if err != nil {
				return changed, backendError("get", err)
			}
			if h == nil {
				continue
			}
			if err = forgetter.Forget(p); err != nil {
				return changed, backendError("forget", err)
			}
			changed = true
		}
		pos = parent
	}
	return changed, nil
}

// isDead is true when every leaf under the node is deleted.
func (m *MutableMmr) isDead(pos uint64) bool {
	first, count := LeafRange(pos)
	last := first + count - 1
	if last >= uint64(m.size) {
		return false
	}
	deleted := m.deleted.Rank(uint32(last))
	if first > 0 {
		deleted -= m.deleted.Rank(uint32(first - 1))
	}
	return deleted == count
}

// GetMerkleRoot returns the root over the stored hashes. Deletions and
// compaction don't affect it.
func (m *MutableMmr) GetMerkleRoot() (Hash, error) {
	return m.mmr.GetMerkleRoot()
}

// GetStateRoot commits to both the stored hashes and the set of deleted leaves.
func (m *MutableMmr) GetStateRoot() (Hash, error) {
	root, err := m.mmr.GetMerkleRoot()
	if err != nil {
		return Hash{}, err
	}
	bitmap, err := canonicalBitmapBytes(m.deleted)
	if err != nil {
		return Hash{}, err
	}
	return m.mmr.hasher.HashChildren(root, m.mmr.hasher.HashLeaf(bitmap)), nil
}

// canonicalBitmapBytes serializes the bitmap so that equal sets give equal bytes.
// The containers are rebuilt from the sorted values: the layout of the passed
// bitmap depends on its history (run optimization, decoding) and must not leak.
func canonicalBitmapBytes(bitmap *roaring.Bitmap) ([]byte, error) {
	b := roaring.BitmapOf(bitmap.ToArray()...)
	b.RunOptimize()
	res, err := b.ToBytes()
	return res, errors.Wrap(err, "can't serialize bitmap")
}

func (m *MutableMmr) GetLeafHash(leafIndex uint32) (*Hash, error) {
	if leafIndex >= m.size {
		return nil, nil
	}
	return m.mmr.GetLeafHash(uint64(leafIndex))
}

// GetLeafStatus returns the leaf hash and whether the leaf is deleted.
// The hash is nil for compacted leaves.
func (m *MutableMmr) GetLeafStatus(leafIndex uint32) (*Hash, bool, error) {
	if leafIndex >= m.size {
		return nil, false, errors.Wrapf(ErrLeafNotFound, "leaf %d of %d", leafIndex, m.size)
	}
	h, err := m.mmr.GetLeafHash(uint64(leafIndex))
	return h, m.deleted.Contains(leafIndex), err
}

func (m *MutableMmr) LeafHashes(start, count uint64) ([]Hash, error) {
	return m.mmr.LeafHashes(start, count)
}

// FindLeafIndex returns the index of a live leaf with the hash.
func (m *MutableMmr) FindLeafIndex(hash Hash) (uint32, error) {
	for i := uint32(0); i < m.size; i++ {
		if m.deleted.Contains(i) {
			continue
		}
		h, err := m.mmr.GetLeafHash(uint64(i))
		if err != nil {
			return 0, err
		}
		if h != nil && *h == hash {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrLeafNotFound, "leaf %s", hash)
}

// GenerateProof proves a live leaf against GetMerkleRoot.
func (m *MutableMmr) GenerateProof(leafIndex uint32) (*MerkleProof, error) {
	if m.deleted.Contains(leafIndex) {
		return nil, errors.Wrapf(ErrLeafNotFound, "leaf %d is deleted", leafIndex)
	}
	return m.mmr.GenerateProof(uint64(leafIndex))
}

func (m *MutableMmr) Validate() error {
	return m.mmr.Validate()
}

// Truncate drops every leaf at index >= leafCount along with its deletion mark.
func (m *MutableMmr) Truncate(leafCount uint32) error {
	if leafCount >= m.size {
		return nil
	}
	if err := m.mmr.Truncate(uint64(leafCount)); err != nil {
		return err
	}
	m.deleted.RemoveRange(uint64(leafCount), uint64(m.size))
	m.size = leafCount
	return nil
}

// Assign replaces the content with the state of other, copying it node by node.
func (m *MutableMmr) Assign(other *MutableMmr) error {
	if err := copyBackend(m.mmr.backend, other.mmr.backend); err != nil {
		return err
	}
	m.size = other.size
	m.deleted = other.deleted.Clone()
	return nil
}
