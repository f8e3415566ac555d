// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"
)

// MerkleChangeTracker wraps a MutableMmr with a history of checkpoints.
//
// The live accumulator always equals the base with checkpoints [merged, count)
// applied in order, followed by the pending operations since the last Commit.
// Rewind, Replay and Reset move the live accumulator back to an earlier commit.
type MerkleChangeTracker struct {
	base        *MutableMmr
	mmr         *MutableMmr
	checkpoints CheckpointLog
	merged      uint64

	additions []Hash
	deletions *roaring.Bitmap

	// compacted is set once nodes of the live accumulator were forgotten,
	// truncation alone can't restore an earlier state after that.
	compacted bool
	failure   error
}

type TrackerOption func(t *MerkleChangeTracker)

// WithMergedCheckpoints tells the tracker that the first n checkpoints of the
// log are already part of the base accumulator.
func WithMergedCheckpoints(n uint64) TrackerOption {
	return func(t *MerkleChangeTracker) {
		t.merged = n
	}
}

// NewMerkleChangeTracker builds the live accumulator in the live backend from the base
// and the checkpoints of the log. Anything held by the live backend is replaced.
func NewMerkleChangeTracker(base *MutableMmr, live Backend, checkpoints CheckpointLog,
	opts ...TrackerOption) (*MerkleChangeTracker, error) {
	t := &MerkleChangeTracker{
		base:        base,
		checkpoints: checkpoints,
		deletions:   roaring.New(),
	}
	for _, opt := range opts {
		opt(t)
	}

	count, err := t.checkpointCount()
	if err != nil {
		return nil, err
	}
	if t.merged > count {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "%d merged checkpoints of %d", t.merged, count)
	}

	t.mmr, err = NewMutableMmr(base.Hasher(), live)
	if err != nil {
		// the live backend is rebuilt anyway, start from scratch
		if err = live.Truncate(0); err != nil {
			return nil, backendError("truncate", err)
		}
		if t.mmr, err = NewMutableMmr(base.Hasher(), live); err != nil {
			return nil, err
		}
	}
	if err = t.rebuild(count); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *MerkleChangeTracker) checkpointCount() (uint64, error) {
	count, err := t.checkpoints.Len()
	return count, backendError("checkpoints len", err)
}

func (t *MerkleChangeTracker) checkpoint(index uint64) (*Checkpoint, error) {
	cp, err := t.checkpoints.Get(index)
	if err != nil {
		return nil, backendError("get checkpoint", err)
	}
	if cp == nil {
		return nil, errors.Wrapf(ErrCorruptState, "checkpoint %d is missing", index)
	}
	return cp, nil
}

type trackerFailure struct {
	err error
}

func (f *trackerFailure) Error() string {
	return ErrTrackerFailed.Error() + ": " + f.err.Error()
}

func (f *trackerFailure) Unwrap() error { return f.err }

func (f *trackerFailure) Is(target error) bool { return target == ErrTrackerFailed }

func (t *MerkleChangeTracker) fail(err error) error {
	t.failure = &trackerFailure{err: err}
	log.Error().Err(err).Msg("change tracker failed to restore state")
	return t.failure
}

// Err returns the fatal error which made the tracker unusable, if any.
func (t *MerkleChangeTracker) Err() error { return t.failure }

// Base gives read access to the base accumulator.
func (t *MerkleChangeTracker) Base() *MutableMmr { return t.base }

// Mmr gives read access to the live accumulator. Mutations must go through the tracker.
func (t *MerkleChangeTracker) Mmr() *MutableMmr { return t.mmr }

func (t *MerkleChangeTracker) MergedCheckpoints() uint64 { return t.merged }

func (t *MerkleChangeTracker) CheckpointCount() (uint64, error) {
	if t.failure != nil {
		return 0, t.failure
	}
	return t.checkpointCount()
}

// Push appends the leaf to the live accumulator and records it in the pending checkpoint.
func (t *MerkleChangeTracker) Push(hash Hash) (uint64, error) {
	if t.failure != nil {
		return 0, t.failure
	}
	pos, err := t.mmr.Push(hash)
	if err != nil {
		return 0, err
	}
	t.additions = append(t.additions, hash)
	return pos, nil
}

// Delete marks the leaf deleted and records it in the pending checkpoint.
func (t *MerkleChangeTracker) Delete(leafIndex uint32) bool {
	if t.failure != nil || !t.mmr.Delete(leafIndex) {
		return false
	}
	t.deletions.Add(leafIndex)
	return true
}

func (t *MerkleChangeTracker) DeleteAndCompress(leafIndex uint32, compress bool) (bool, error) {
	if t.failure != nil {
		return false, t.failure
	}
	ok, err := t.mmr.DeleteAndCompress(leafIndex, compress)
	if ok {
		t.deletions.Add(leafIndex)
		if compress {
			t.compacted = true
		}
	}
	return ok, err
}

func (t *MerkleChangeTracker) Compress() (bool, error) {
	if t.failure != nil {
		return false, t.failure
	}
	changed, err := t.mmr.Compress()
	if changed {
		t.compacted = true
	}
	return changed, err
}

// Commit seals the pending operations into a new checkpoint and returns the
// number of checkpoints. Committing with nothing pending is allowed.
func (t *MerkleChangeTracker) Commit() (uint64, error) {
	if t.failure != nil {
		return 0, t.failure
	}
	cp := NewCheckpoint(t.additions, t.deletions)
	if err := t.checkpoints.Push(cp); err != nil {
		return 0, backendError("push checkpoint", err)
	}
	t.clearPending()

	count, err := t.checkpointCount()
	if err != nil {
		return 0, err
	}
	log.Debug().Uint64("checkpoints", count).Int("added", cp.AddedCount()).
		Uint64("deleted", cp.nodesDeleted.GetCardinality()).Msg("checkpoint committed")
	return count, nil
}

func (t *MerkleChangeTracker) clearPending() {
	t.additions = nil
	t.deletions = roaring.New()
}

// HasPending reports whether there are operations since the last commit.
func (t *MerkleChangeTracker) HasPending() bool {
	return len(t.additions) > 0 || !t.deletions.IsEmpty()
}

// PendingLeafIndex returns the leaf index a pending leaf was pushed at.
func (t *MerkleChangeTracker) PendingLeafIndex(hash Hash) (uint32, bool) {
	first := t.mmr.Len() - uint32(len(t.additions))
	for i, h := range t.additions {
		if h == hash {
			return first + uint32(i), true
		}
	}
	return 0, false
}

// GetCheckpoint returns a committed checkpoint.
func (t *MerkleChangeTracker) GetCheckpoint(index uint64) (*Checkpoint, error) {
	if t.failure != nil {
		return nil, t.failure
	}
	count, err := t.checkpointCount()
	if err != nil {
		return nil, err
	}
	if index >= count {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "checkpoint %d of %d", index, count)
	}
	return t.checkpoint(index)
}

// Rewind drops the last steps checkpoints together with the pending operations.
func (t *MerkleChangeTracker) Rewind(steps uint64) error {
	if t.failure != nil {
		return t.failure
	}
	count, err := t.checkpointCount()
	if err != nil {
		return err
	}
	if steps > count-t.merged {
		return errors.Wrapf(ErrIndexOutOfRange, "can't rewind %d of %d checkpoints", steps, count-t.merged)
	}
	return t.replayTo(count - steps)
}

// RewindToStart drops every checkpoint which is not merged into the base.
func (t *MerkleChangeTracker) RewindToStart() error {
	if t.failure != nil {
		return t.failure
	}
	return t.replayTo(t.merged)
}

// Reset restores the state right after the last commit. The live accumulator
// is restored even without pending operations: a failed push leaves nodes behind
// which were never recorded.
func (t *MerkleChangeTracker) Reset() error {
	if t.failure != nil {
		return t.failure
	}
	count, err := t.checkpointCount()
	if err != nil {
		return err
	}
	return t.replayTo(count)
}

// Replay restores the state right after checkpoint index was committed.
// Later checkpoints are dropped.
func (t *MerkleChangeTracker) Replay(index uint64) error {
	if t.failure != nil {
		return t.failure
	}
	count, err := t.checkpointCount()
	if err != nil {
		return err
	}
	if index >= count || index+1 < t.merged {
		return errors.Wrapf(ErrIndexOutOfRange, "checkpoint %d of %d", index, count)
	}
	return t.replayTo(index + 1)
}

func (t *MerkleChangeTracker) replayTo(n uint64) error {
	if err := t.checkpoints.Truncate(n); err != nil {
		return t.fail(backendError("truncate checkpoints", err))
	}
	t.clearPending()

	var err error
	if t.compacted {
		err = t.rebuild(n)
	} else {
		err = t.truncateTo(n)
	}
	if err != nil {
		return t.fail(err)
	}
	log.Debug().Uint64("checkpoints", n).Uint32("leaves", t.mmr.Len()).Msg("change tracker restored")
	return nil
}

// truncateTo restores the state after n checkpoints by cutting the live backend.
// Valid only while nothing was forgotten in the live accumulator.
func (t *MerkleChangeTracker) truncateTo(n uint64) error {
	leaves := uint64(t.base.Len())
	deleted := t.base.Deleted()
	for i := t.merged; i < n; i++ {
		cp, err := t.checkpoint(i)
		if err != nil {
			return err
		}
		leaves += uint64(len(cp.nodesAdded))
		deleted.Or(cp.nodesDeleted)
	}
	if leaves > uint64(t.mmr.Len()) {
		return errors.Wrapf(ErrCorruptState, "checkpoints add up to %d leaves, live has %d", leaves, t.mmr.Len())
	}
	if err := t.mmr.mmr.Truncate(leaves); err != nil {
		return err
	}
	t.mmr.size = uint32(leaves)
	return t.mmr.SetDeleted(deleted)
}

// rebuild copies the base into the live backend and applies checkpoints [merged, n).
func (t *MerkleChangeTracker) rebuild(n uint64) error {
	if err := t.mmr.Assign(t.base); err != nil {
		return err
	}
	for i := t.merged; i < n; i++ {
		cp, err := t.checkpoint(i)
		if err != nil {
			return err
		}
		if err = cp.Apply(t.mmr); err != nil {
			return err
		}
	}
	t.compacted = false
	return nil
}

// MergeCheckpoints folds the oldest n unmerged checkpoints into the base.
// They stay in the log but can no longer be rewound.
func (t *MerkleChangeTracker) MergeCheckpoints(n uint64) error {
	if t.failure != nil {
		return t.failure
	}
	count, err := t.checkpointCount()
	if err != nil {
		return err
	}
	if n > count-t.merged {
		return errors.Wrapf(ErrIndexOutOfRange, "can't merge %d of %d checkpoints", n, count-t.merged)
	}
	for i := t.merged; i < t.merged+n; i++ {
		cp, err := t.checkpoint(i)
		if err != nil {
			return t.fail(err)
		}
		if err = cp.Apply(t.base); err != nil {
			return t.fail(err)
		}
	}
	t.merged += n
	log.Debug().Uint64("merged", t.merged).Uint32("base_leaves", t.base.Len()).Msg("checkpoints merged into base")
	return nil
}

// RootAt computes the merkle root after n committed checkpoints without
// touching the live accumulator.
func (t *MerkleChangeTracker) RootAt(n uint64) (Hash, error) {
	if t.failure != nil {
		return Hash{}, t.failure
	}
	count, err := t.checkpointCount()
	if err != nil {
		return Hash{}, err
	}
	if n > count || n < t.merged {
		return Hash{}, errors.Wrapf(ErrIndexOutOfRange, "state after %d of %d checkpoints", n, count)
	}

	scratch, err := NewMutableMmr(t.base.Hasher(), NewMemBackend())
	if err != nil {
		return Hash{}, err
	}
	if err = scratch.Assign(t.base); err != nil {
		return Hash{}, err
	}
	for i := t.merged; i < n; i++ {
		cp, err := t.checkpoint(i)
		if err != nil {
			return Hash{}, err
		}
		if err = cp.Apply(scratch); err != nil {
			return Hash{}, err
		}
	}
	return scratch.GetMerkleRoot()
}

func (t *MerkleChangeTracker) Len() uint32 { return t.mmr.Len() }

func (t *MerkleChangeTracker) GetMerkleRoot() (Hash, error) {
	if t.failure != nil {
		return Hash{}, t.failure
	}
	return t.mmr.GetMerkleRoot()
}

func (t *MerkleChangeTracker) GetStateRoot() (Hash, error) {
	if t.failure != nil {
		return Hash{}, t.failure
	}
	return t.mmr.GetStateRoot()
}

func (t *MerkleChangeTracker) GetLeafHash(leafIndex uint32) (*Hash, error) {
	if t.failure != nil {
		return nil, t.failure
	}
	return t.mmr.GetLeafHash(leafIndex)
}

func (t *MerkleChangeTracker) IsDeleted(leafIndex uint32) bool {
	return t.mmr.IsDeleted(leafIndex)
}

func (t *MerkleChangeTracker) GenerateProof(leafIndex uint32) (*MerkleProof, error) {
	if t.failure != nil {
		return nil, t.failure
	}
	return t.mmr.GenerateProof(leafIndex)
}
