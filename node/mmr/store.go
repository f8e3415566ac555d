/*
 * Copyright (c) 2021 The JaxNetwork developers
 * Use of this source code is governed by an ISC
 * license that can be found in the LICENSE file.
 */

package mmr

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"
	"gitlab.com/jaxnet/mmrengine/database"
	accum "gitlab.com/jaxnet/mmrengine/types/mmr"
)

const (
	metaDeleted = "deleted"
	metaMerged  = "merged"
)

// treeStorage binds the accumulators of one tree to their buckets.
// base is nil for memory-only accumulators.
type treeStorage struct {
	base        *database.Bucket
	live        accum.Backend
	checkpoints accum.CheckpointLog
	baseNodes   accum.Backend
}

func memoryStorage() *treeStorage {
	return &treeStorage{
		live:        accum.NewMemBackend(),
		checkpoints: accum.NewMemCheckpointLog(),
		baseNodes:   accum.NewMemBackend(),
	}
}

func bucketStorage(store database.Store, tree Tree) *treeStorage {
	root := database.NewBucket(store, tree.String())
	base := root.Sub("base")
	return &treeStorage{
		base:        &base,
		live:        database.NewHashBackend(root.Sub("live")),
		checkpoints: database.NewCheckpointStore(root.Sub("checkpoints")),
		baseNodes:   database.NewHashBackend(base),
	}
}

// open restores the change tracker of the tree.
func (s *treeStorage) open(hasher accum.Hasher) (*accum.MerkleChangeTracker, error) {
	deleted := roaring.New()
	var merged uint64
	if s.base != nil {
		raw, err := s.base.GetMeta(metaDeleted)
		if err != nil {
			return nil, err
		}
		if raw != nil {
			if err = deleted.UnmarshalBinary(raw); err != nil {
				return nil, errors.Wrapf(accum.ErrCorruptState, "base deletions of %s: %v", s.base.Name(), err)
			}
		}
		if merged, err = s.base.Uint64(metaMerged); err != nil {
			return nil, err
		}
	}

	base, err := accum.NewMutableMmrWithDeleted(hasher, s.baseNodes, deleted)
	if err != nil {
		return nil, err
	}
	return accum.NewMerkleChangeTracker(base, s.live, s.checkpoints, accum.WithMergedCheckpoints(merged))
}

// saveBase persists what the node buckets don't hold after a merge.
func (s *treeStorage) saveBase(tracker *accum.MerkleChangeTracker) error {
	if s.base == nil {
		return nil
	}
	deleted := tracker.Base().Deleted()
	deleted.RunOptimize()
	raw, err := deleted.ToBytes()
	if err != nil {
		return errors.Wrap(err, "can't encode base deletions")
	}
	if err = s.base.PutMeta(metaDeleted, raw); err != nil {
		return err
	}
	return s.base.PutUint64(metaMerged, tracker.MergedCheckpoints())
}
