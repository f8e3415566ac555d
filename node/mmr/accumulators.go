/*
 * Copyright (c) 2021 The JaxNetwork developers
 * Use of this source code is governed by an ISC
 * license that can be found in the LICENSE file.
 */

package mmr

import (
	"sync"

	"github.com/pkg/errors"
	"gitlab.com/jaxnet/mmrengine/database"
	accum "gitlab.com/jaxnet/mmrengine/types/mmr"
)

// ErrDoubleSpend is returned when a block spends an output which is already spent.
var ErrDoubleSpend = errors.New("output is already spent")

type Config struct {
	// RewindHorizon is the number of recent blocks that can be rewound.
	// Older blocks are merged into the base accumulators. Zero keeps all.
	RewindHorizon uint64
}

// ChainAccumulators owns the accumulators of a chain. A single writer
// applies and rewinds blocks, any number of readers can query it meanwhile.
type ChainAccumulators struct {
	sync.RWMutex

	hasher   accum.Hasher
	cfg      Config
	storage  [treeCount]*treeStorage
	trackers [treeCount]*accum.MerkleChangeTracker

	// tips maps the roots of every block which can still be rewound to its height.
	tips     map[Roots]uint64
	tipByHgt map[uint64]Roots
}

// NewChainAccumulators opens the accumulators kept in the store.
func NewChainAccumulators(hasher accum.Hasher, store database.Store, cfg Config) (*ChainAccumulators, error) {
	var storage [treeCount]*treeStorage
	for _, tree := range Trees {
		storage[tree] = bucketStorage(store, tree)
	}
	return newChainAccumulators(hasher, storage, cfg)
}

// NewMemoryChainAccumulators keeps everything in memory.
func NewMemoryChainAccumulators(hasher accum.Hasher, cfg Config) (*ChainAccumulators, error) {
	var storage [treeCount]*treeStorage
	for _, tree := range Trees {
		storage[tree] = memoryStorage()
	}
	return newChainAccumulators(hasher, storage, cfg)
}

func newChainAccumulators(hasher accum.Hasher, storage [treeCount]*treeStorage, cfg Config) (*ChainAccumulators, error) {
	if hasher == nil {
		return nil, accum.ErrInvalidHasher
	}
	c := &ChainAccumulators{
		hasher:   hasher,
		cfg:      cfg,
		storage:  storage,
		tips:     make(map[Roots]uint64),
		tipByHgt: make(map[uint64]Roots),
	}

	var height uint64
	for _, tree := range Trees {
		tracker, err := storage[tree].open(hasher)
		if err != nil {
			return nil, errors.Wrapf(err, "can't open %s accumulator", tree)
		}
		count, err := tracker.CheckpointCount()
		if err != nil {
			return nil, err
		}
		if tree == TreeUtxo {
			height = count
		} else if count != height {
			return nil, errors.Wrapf(accum.ErrCorruptState, "%s has %d blocks, utxo has %d", tree, count, height)
		}
		c.trackers[tree] = tracker
	}

	roots, err := c.roots()
	if err != nil {
		return nil, err
	}
	c.addTip(roots, height)
	log.Info().Uint64("height", height).Str("hasher", hasher.Name()).
		Str("utxo_root", roots.Utxo.String()).Msg("chain accumulators opened")
	return c, nil
}

func (c *ChainAccumulators) Hasher() accum.Hasher { return c.hasher }

// Height is the number of applied blocks.
func (c *ChainAccumulators) Height() uint64 {
	c.RLock()
	defer c.RUnlock()
	return c.height()
}

func (c *ChainAccumulators) height() uint64 {
	count, _ := c.trackers[TreeUtxo].CheckpointCount()
	return count
}

// ApplyBlock adds the block to every tree and returns the new roots.
// A block which fails to stage or commit leaves no trace.
func (c *ChainAccumulators) ApplyBlock(diff *BlockDiff) (Roots, error) {
	c.Lock()
	defer c.Unlock()

	roots, err := c.apply(diff)
	if err != nil {
		return Roots{}, err
	}
	if err = c.enforceHorizon(); err != nil {
		return Roots{}, err
	}
	return roots, nil
}

func (c *ChainAccumulators) apply(diff *BlockDiff) (Roots, error) {
	if err := c.stage(diff); err != nil {
		return Roots{}, c.discard(err)
	}
	if err := c.commit(); err != nil {
		return Roots{}, err
	}

	roots, err := c.roots()
	if err != nil {
		return Roots{}, err
	}
	height := c.height()
	c.addTip(roots, height)
	log.Debug().Uint64("height", height).Int("outputs", len(diff.Outputs)).
		Int("spent", len(diff.Spent)).Str("utxo_root", roots.Utxo.String()).Msg("block applied")
	return roots, nil
}

// CalculateRoots returns the roots the block would produce without applying it.
func (c *ChainAccumulators) CalculateRoots(diff *BlockDiff) (Roots, error) {
	c.Lock()
	defer c.Unlock()

	if err := c.stage(diff); err != nil {
		return Roots{}, c.discard(err)
	}
	roots, err := c.roots()
	if err != nil {
		return Roots{}, c.discard(err)
	}
	return roots, c.discard(nil)
}

// stage pushes the block into the trees without committing it.
func (c *ChainAccumulators) stage(diff *BlockDiff) error {
	for _, tree := range Trees {
		tracker := c.trackers[tree]
		for _, hash := range diff.additions(tree) {
			if _, err := tracker.Push(hash); err != nil {
				return errors.Wrapf(err, "can't push to %s", tree)
			}
		}
	}

	utxo := c.trackers[TreeUtxo]
	for _, leaf := range diff.Spent {
		ok, err := utxo.DeleteAndCompress(leaf, true)
		if err != nil {
			return errors.Wrapf(err, "can't spend output %d", leaf)
		}
		if !ok {
			return errors.Wrapf(ErrDoubleSpend, "output %d", leaf)
		}
	}
	return nil
}

// discard drops the staged changes of every tree and returns cause.
func (c *ChainAccumulators) discard(cause error) error {
	for _, tree := range Trees {
		if err := c.trackers[tree].Reset(); err != nil {
			log.Error().Err(err).Str("tree", tree.String()).Msg("can't discard staged block")
			if cause == nil {
				cause = err
			}
		}
	}
	return cause
}

// commit seals the staged block in every tree. A failure in the middle
// rewinds the trees which already committed.
func (c *ChainAccumulators) commit() error {
	for i, tree := range Trees {
		if _, err := c.trackers[tree].Commit(); err != nil {
			for _, done := range Trees[:i] {
				if rerr := c.trackers[done].Rewind(1); rerr != nil {
					log.Error().Err(rerr).Str("tree", done.String()).Msg("can't undo partial commit")
				}
			}
			return c.discard(errors.Wrapf(err, "can't commit %s", tree))
		}
	}
	return nil
}

// enforceHorizon merges blocks older than the rewind horizon into the base.
func (c *ChainAccumulators) enforceHorizon() error {
	if c.cfg.RewindHorizon == 0 {
		return nil
	}
	height := c.height()
	merged := c.trackers[TreeUtxo].MergedCheckpoints()
	if height-merged <= c.cfg.RewindHorizon {
		return nil
	}

	n := height - merged - c.cfg.RewindHorizon
	for _, tree := range Trees {
		tracker := c.trackers[tree]
		if err := tracker.MergeCheckpoints(n); err != nil {
			return errors.Wrapf(err, "can't merge %s checkpoints", tree)
		}
		if err := c.storage[tree].saveBase(tracker); err != nil {
			return errors.Wrapf(err, "can't save %s base", tree)
		}
	}
	c.dropTips(func(h uint64) bool { return h < merged+n })
	log.Debug().Uint64("merged", merged+n).Msg("blocks merged behind rewind horizon")
	return nil
}

// RewindBlocks undoes the last n blocks.
func (c *ChainAccumulators) RewindBlocks(n uint64) error {
	c.Lock()
	defer c.Unlock()
	current := c.height()
	if n > current {
		return errors.Wrapf(accum.ErrIndexOutOfRange, "can't rewind %d of %d blocks", n, current)
	}
	return c.rewindTo(current - n)
}

func (c *ChainAccumulators) rewindTo(height uint64) error {
	current := c.height()
	merged := c.trackers[TreeUtxo].MergedCheckpoints()
	if height < merged || height > current {
		return errors.Wrapf(accum.ErrIndexOutOfRange, "can't rewind to height %d, rewindable range [%d, %d]",
			height, merged, current)
	}
	steps := current - height
	for _, tree := range Trees {
		if err := c.trackers[tree].Rewind(steps); err != nil {
			return errors.Wrapf(err, "can't rewind %s", tree)
		}
	}
	c.dropTips(func(h uint64) bool { return h > height })
	roots, err := c.roots()
	if err != nil {
		return err
	}
	c.addTip(roots, height)
	log.Debug().Uint64("height", height).Uint64("rewound", steps).Msg("blocks rewound")
	return nil
}

func (c *ChainAccumulators) roots() (Roots, error) {
	var roots Roots
	for _, tree := range Trees {
		var root accum.Hash
		var err error
		if tree == TreeUtxo {
			root, err = c.trackers[tree].GetStateRoot()
		} else {
			root, err = c.trackers[tree].GetMerkleRoot()
		}
		if err != nil {
			return Roots{}, errors.Wrapf(err, "can't get %s root", tree)
		}
		roots.set(tree, root)
	}
	return roots, nil
}

// Roots returns the commitments of the tip. The utxo root also covers the
// set of spent outputs.
func (c *ChainAccumulators) Roots() (Roots, error) {
	c.RLock()
	defer c.RUnlock()
	return c.roots()
}

// MMROnlyRoots returns the mountain range roots of the tip, ignoring spends.
func (c *ChainAccumulators) MMROnlyRoots() (Roots, error) {
	c.RLock()
	defer c.RUnlock()

	var roots Roots
	for _, tree := range Trees {
		root, err := c.trackers[tree].GetMerkleRoot()
		if err != nil {
			return Roots{}, err
		}
		roots.set(tree, root)
	}
	return roots, nil
}

// MMROnlyRootsAt returns the mountain range roots right after the block at height.
func (c *ChainAccumulators) MMROnlyRootsAt(height uint64) (Roots, error) {
	c.RLock()
	defer c.RUnlock()

	var roots Roots
	for _, tree := range Trees {
		root, err := c.trackers[tree].RootAt(height)
		if err != nil {
			return Roots{}, errors.Wrapf(err, "%s root at %d", tree, height)
		}
		roots.set(tree, root)
	}
	return roots, nil
}

func (c *ChainAccumulators) tracker(tree Tree) (*accum.MerkleChangeTracker, error) {
	if tree >= treeCount {
		return nil, errors.Wrapf(ErrUnknownTree, "%d", tree)
	}
	return c.trackers[tree], nil
}

// Proof proves an unspent leaf against the mountain range root of the tree.
func (c *ChainAccumulators) Proof(tree Tree, leafIndex uint32) (*accum.MerkleProof, error) {
	c.RLock()
	defer c.RUnlock()
	tracker, err := c.tracker(tree)
	if err != nil {
		return nil, err
	}
	return tracker.GenerateProof(leafIndex)
}

// VerifyProof checks the proof against the current mountain range root of the tree.
func (c *ChainAccumulators) VerifyProof(tree Tree, proof *accum.MerkleProof, leaf accum.Hash) error {
	c.RLock()
	defer c.RUnlock()
	tracker, err := c.tracker(tree)
	if err != nil {
		return err
	}
	root, err := tracker.GetMerkleRoot()
	if err != nil {
		return err
	}
	return proof.Verify(c.hasher, leaf, root)
}

// FetchCheckpoint returns the changes the block at height made to the tree.
// Heights start at 1.
func (c *ChainAccumulators) FetchCheckpoint(tree Tree, height uint64) (*accum.Checkpoint, error) {
	c.RLock()
	defer c.RUnlock()
	tracker, err := c.tracker(tree)
	if err != nil {
		return nil, err
	}
	if height == 0 {
		return nil, errors.Wrap(accum.ErrIndexOutOfRange, "no checkpoint at height 0")
	}
	return tracker.GetCheckpoint(height - 1)
}

// FetchLeaf returns the leaf hash and whether it is spent. The hash is zero
// when the leaf was compacted away.
func (c *ChainAccumulators) FetchLeaf(tree Tree, leafIndex uint32) (accum.Hash, bool, error) {
	c.RLock()
	defer c.RUnlock()
	tracker, err := c.tracker(tree)
	if err != nil {
		return accum.Hash{}, false, err
	}
	hash, deleted, err := tracker.Mmr().GetLeafStatus(leafIndex)
	if err != nil || hash == nil {
		return accum.Hash{}, deleted, err
	}
	return *hash, deleted, nil
}

// FindLeaf returns the index of an unspent leaf with the hash.
func (c *ChainAccumulators) FindLeaf(tree Tree, hash accum.Hash) (uint32, error) {
	c.RLock()
	defer c.RUnlock()
	tracker, err := c.tracker(tree)
	if err != nil {
		return 0, err
	}
	return tracker.Mmr().FindLeafIndex(hash)
}

// Stats describes every tree.
func (c *ChainAccumulators) Stats() (Stats, error) {
	c.RLock()
	defer c.RUnlock()

	stats := Stats{Height: c.height()}
	for _, tree := range Trees {
		tracker := c.trackers[tree]
		nodes, err := tracker.Mmr().MMR().Len()
		if err != nil {
			return Stats{}, err
		}
		count, err := tracker.CheckpointCount()
		if err != nil {
			return Stats{}, err
		}
		stats.Trees = append(stats.Trees, TreeStats{
			Tree:        tree,
			Leaves:      tracker.Len(),
			Deleted:     tracker.Mmr().DeletedCount(),
			Nodes:       nodes,
			Checkpoints: count,
			Merged:      tracker.MergedCheckpoints(),
		})
	}
	return stats, nil
}

// Validate recomputes every stored parent node of every tree.
func (c *ChainAccumulators) Validate() error {
	c.RLock()
	defer c.RUnlock()
	for _, tree := range Trees {
		if err := c.trackers[tree].Mmr().Validate(); err != nil {
			return errors.Wrapf(err, "%s accumulator", tree)
		}
	}
	return nil
}
