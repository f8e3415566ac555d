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

// ErrUnknownFork is returned when the fork point of a reorganization is not
// one of the blocks which can still be rewound.
var ErrUnknownFork = errors.New("unknown fork point")

func (c *ChainAccumulators) addTip(roots Roots, height uint64) {
	if old, ok := c.tipByHgt[height]; ok && c.tips[old] == height {
		delete(c.tips, old)
	}
	c.tips[roots] = height
	c.tipByHgt[height] = roots
}

func (c *ChainAccumulators) dropTips(drop func(height uint64) bool) {
	for height, roots := range c.tipByHgt {
		if !drop(height) {
			continue
		}
		delete(c.tipByHgt, height)
		// blocks without changes share the roots of their parent
		if c.tips[roots] == height {
			delete(c.tips, roots)
		}
	}
}

// LookupRoots returns the height of the block which produced the roots.
// Only blocks applied since the accumulators were opened and not merged
// behind the rewind horizon are known, plus the tip.
func (c *ChainAccumulators) LookupRoots(roots Roots) (uint64, bool) {
	c.RLock()
	defer c.RUnlock()
	height, ok := c.tips[roots]
	return height, ok
}

// ConnectBlock applies the block on top of the state committed by prev.
//
// 1) Good Case: prev are the roots of the tip, the block is just applied.
//
// 2) Fork Case: prev belongs to an earlier block. Blocks after it are
// rewound and the block is applied on top of it.
func (c *ChainAccumulators) ConnectBlock(prev Roots, diff *BlockDiff) (Roots, error) {
	return c.ReorgTo(prev, []*BlockDiff{diff})
}

// ReorgTo rewinds to the block which produced fork and applies blocks on top
// of it. When one of the blocks fails the former branch is restored.
func (c *ChainAccumulators) ReorgTo(fork Roots, blocks []*BlockDiff) (Roots, error) {
	c.Lock()
	defer c.Unlock()

	forkHeight, ok := c.tips[fork]
	if !ok {
		return Roots{}, errors.Wrapf(ErrUnknownFork, "utxo root %s", fork.Utxo)
	}

	current := c.height()
	detached, err := c.branch(forkHeight, current)
	if err != nil {
		return Roots{}, err
	}
	if err = c.rewindTo(forkHeight); err != nil {
		return Roots{}, err
	}
	if len(detached) > 0 {
		log.Info().Uint64("fork_height", forkHeight).Int("detached", len(detached)).
			Int("attached", len(blocks)).Msg("reorganizing accumulators")
	}

	roots := fork
	for i, diff := range blocks {
		if roots, err = c.apply(diff); err != nil {
			log.Warn().Err(err).Int("block", i).Msg("new branch rejected, restoring former branch")
			if rerr := c.restore(forkHeight, detached); rerr != nil {
				return Roots{}, errors.Wrapf(rerr, "can't restore former branch after %v", err)
			}
			return Roots{}, err
		}
	}
	if err = c.enforceHorizon(); err != nil {
		return Roots{}, err
	}
	return roots, nil
}

// branch collects the blocks after from up to the height to.
func (c *ChainAccumulators) branch(from, to uint64) ([]*BlockDiff, error) {
	var blocks []*BlockDiff
	for h := from; h < to; h++ {
		diff := new(BlockDiff)
		for _, tree := range Trees {
			cp, err := c.trackers[tree].GetCheckpoint(h)
			if err != nil {
				return nil, errors.Wrapf(err, "can't read %s block %d", tree, h+1)
			}
			diff.setAdditions(tree, cp.NodesAdded())
			if tree == TreeUtxo {
				diff.Spent = cp.NodesDeleted().ToArray()
			}
		}
		blocks = append(blocks, diff)
	}
	return blocks, nil
}

func (c *ChainAccumulators) restore(height uint64, blocks []*BlockDiff) error {
	if err := c.rewindTo(height); err != nil {
		return err
	}
	for _, diff := range blocks {
		if _, err := c.apply(diff); err != nil {
			return err
		}
	}
	return nil
}

// BlockDiffAt rebuilds the changes of the block at height from the checkpoints.
func (c *ChainAccumulators) BlockDiffAt(height uint64) (*BlockDiff, error) {
	c.RLock()
	defer c.RUnlock()
	if height == 0 || height > c.height() {
		return nil, errors.Wrapf(accum.ErrIndexOutOfRange, "block %d of %d", height, c.height())
	}
	blocks, err := c.branch(height-1, height)
	if err != nil {
		return nil, err
	}
	return blocks[0], nil
}
