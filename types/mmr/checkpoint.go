// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"
)

// Checkpoint is the change of a MutableMmr between two commits:
// leaves pushed in order and leaves marked deleted.
type Checkpoint struct {
	nodesAdded   []Hash
	nodesDeleted *roaring.Bitmap
}

func NewCheckpoint(added []Hash, deleted *roaring.Bitmap) *Checkpoint {
	cp := &Checkpoint{nodesAdded: append([]Hash{}, added...)}
	if deleted == nil {
		cp.nodesDeleted = roaring.New()
	} else {
		cp.nodesDeleted = deleted.Clone()
	}
	return cp
}

func (cp *Checkpoint) NodesAdded() []Hash {
	return append([]Hash{}, cp.nodesAdded...)
}

func (cp *Checkpoint) NodesDeleted() *roaring.Bitmap {
	return cp.nodesDeleted.Clone()
}

func (cp *Checkpoint) AddedCount() int { return len(cp.nodesAdded) }

func (cp *Checkpoint) IsEmpty() bool {
	return len(cp.nodesAdded) == 0 && cp.nodesDeleted.IsEmpty()
}

// Apply pushes the added leaves and merges the deletions into the MutableMmr.
func (cp *Checkpoint) Apply(m *MutableMmr) error {
	for _, h := range cp.nodesAdded {
		if _, err := m.Push(h); err != nil {
			return err
		}
	}
	if !cp.nodesDeleted.IsEmpty() && uint64(cp.nodesDeleted.Maximum()) >= uint64(m.size) {
		return errors.Wrapf(ErrIndexOutOfRange, "checkpoint deletes leaf %d of %d",
			cp.nodesDeleted.Maximum(), m.size)
	}
	m.deleted.Or(cp.nodesDeleted)
	return nil
}

func (cp *Checkpoint) Equal(other *Checkpoint) bool {
	if other == nil || len(cp.nodesAdded) != len(other.nodesAdded) {
		return false
	}
	for i := range cp.nodesAdded {
		if cp.nodesAdded[i] != other.nodesAdded[i] {
			return false
		}
	}
	return cp.nodesDeleted.Equals(other.nodesDeleted)
}

// MarshalBinary encodes the checkpoint as
//
//	uvarint(count) || count*32 bytes || uvarint(len) || portable roaring bitmap
func (cp *Checkpoint) MarshalBinary() ([]byte, error) {
	bitmap, err := canonicalBitmapBytes(cp.nodesDeleted)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, 2*binary.MaxVarintLen64+len(cp.nodesAdded)*HashSize+len(bitmap)))
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(len(cp.nodesAdded)))
	buf.Write(scratch[:n])
	for _, h := range cp.nodesAdded {
		buf.Write(h[:])
	}
	n = binary.PutUvarint(scratch[:], uint64(len(bitmap)))
	buf.Write(scratch[:n])
	buf.Write(bitmap)
	return buf.Bytes(), nil
}

func (cp *Checkpoint) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return errors.Wrap(err, "can't read added nodes count")
	}
	if count > uint64(r.Len())/HashSize {
		return errors.Errorf("checkpoint claims %d added nodes, only %d bytes left", count, r.Len())
	}
	added := make([]Hash, count)
	for i := range added {
		if _, err = io.ReadFull(r, added[i][:]); err != nil {
			return errors.Wrap(err, "can't read added node")
		}
	}

	bitmapLen, err := binary.ReadUvarint(r)
	if err != nil {
		return errors.Wrap(err, "can't read bitmap length")
	}
	if bitmapLen != uint64(r.Len()) {
		return errors.Errorf("bitmap length %d doesn't match %d remaining bytes", bitmapLen, r.Len())
	}
	deleted := roaring.New()
	if bitmapLen > 0 {
		if _, err = deleted.ReadFrom(r); err != nil {
			return errors.Wrap(err, "can't decode deletion bitmap")
		}
	}

	cp.nodesAdded = added
	cp.nodesDeleted = deleted
	return nil
}

// CheckpointLog is an append-only list of checkpoints which can be truncated.
type CheckpointLog interface {
	Len() (uint64, error)
	Push(cp *Checkpoint) error
	// Get returns nil without an error for indexes past the end.
	Get(index uint64) (*Checkpoint, error)
	Truncate(length uint64) error
}

// MemCheckpointLog keeps checkpoints in memory.
type MemCheckpointLog struct {
	checkpoints []*Checkpoint
}

func NewMemCheckpointLog() *MemCheckpointLog {
	return &MemCheckpointLog{}
}

func (l *MemCheckpointLog) Len() (uint64, error) {
	return uint64(len(l.checkpoints)), nil
}

func (l *MemCheckpointLog) Push(cp *Checkpoint) error {
	l.checkpoints = append(l.checkpoints, cp)
	return nil
}

func (l *MemCheckpointLog) Get(index uint64) (*Checkpoint, error) {
	if index >= uint64(len(l.checkpoints)) {
		return nil, nil
	}
	return l.checkpoints[index], nil
}

func (l *MemCheckpointLog) Truncate(length uint64) error {
	if length < uint64(len(l.checkpoints)) {
		l.checkpoints = l.checkpoints[:length]
	}
	return nil
}
