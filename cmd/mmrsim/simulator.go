// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"math/rand"

	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/mmrengine/config"
	chainmmr "gitlab.com/jaxnet/mmrengine/node/mmr"
	"gitlab.com/jaxnet/mmrengine/types/mmr"
)

// blockRecord is what the simulator needs to undo a block of its own.
type blockRecord struct {
	roots   chainmmr.Roots
	outputs uint32
	spent   []uint32
}

// Report summarizes a simulation run.
type Report struct {
	Blocks int
	Reorgs int
	Height uint64
	Tip    chainmmr.Roots
}

// Simulator produces random blocks and reorganizations on top of the accumulators.
type Simulator struct {
	cfg config.SimConfig
	acc *chainmmr.ChainAccumulators
	rnd *rand.Rand
	log zerolog.Logger

	leaves uint32
	spent  *roaring.Bitmap

	// history holds the blocks applied by this simulator, the first one
	// sitting on top of base.
	base      uint64
	baseRoots chainmmr.Roots
	history   []blockRecord

	blocks int
	reorgs int
}

// NewSimulator picks up the utxo set of the accumulators as they are.
func NewSimulator(acc *chainmmr.ChainAccumulators, cfg config.SimConfig, log zerolog.Logger) (*Simulator, error) {
	stats, err := acc.Stats()
	if err != nil {
		return nil, err
	}
	roots, err := acc.Roots()
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:       cfg,
		acc:       acc,
		rnd:       rand.New(rand.NewSource(cfg.Seed)),
		log:       log,
		leaves:    stats.Trees[chainmmr.TreeUtxo].Leaves,
		spent:     roaring.New(),
		base:      stats.Height,
		baseRoots: roots,
	}
	for i := uint32(0); i < s.leaves; i++ {
		_, deleted, err := acc.FetchLeaf(chainmmr.TreeUtxo, i)
		if err != nil {
			return nil, errors.Wrapf(err, "can't load utxo %d", i)
		}
		if deleted {
			s.spent.Add(i)
		}
	}
	return s, nil
}

// Run produces the configured number of blocks. Every ReorgEvery-th block
// replaces the last ReorgDepth blocks with a new branch one block longer.
func (s *Simulator) Run(ctx context.Context) error {
	for i := 1; i <= s.cfg.Blocks; i++ {
		select {
		case <-ctx.Done():
			s.log.Info().Int("blocks", s.blocks).Msg("simulation interrupted")
			return nil
		default:
		}

		var err error
		if s.cfg.ReorgEvery > 0 && i%s.cfg.ReorgEvery == 0 {
			err = s.reorg(s.cfg.ReorgDepth)
		} else {
			err = s.extend(s.tip())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) Report() Report {
	return Report{
		Blocks: s.blocks,
		Reorgs: s.reorgs,
		Height: s.height(),
		Tip:    s.tip(),
	}
}

func (s *Simulator) height() uint64 { return s.base + uint64(len(s.history)) }

func (s *Simulator) tip() chainmmr.Roots {
	return s.rootsAt(s.height())
}

func (s *Simulator) rootsAt(height uint64) chainmmr.Roots {
	if height == s.base {
		return s.baseRoots
	}
	return s.history[height-s.base-1].roots
}

// extend connects a new block on top of the block which produced prev.
func (s *Simulator) extend(prev chainmmr.Roots) error {
	diff := s.nextBlock()
	roots, err := s.acc.ConnectBlock(prev, diff)
	if err != nil {
		return errors.Wrapf(err, "can't connect block %d", s.height()+1)
	}
	s.record(diff, roots)
	s.log.Info().Uint64("height", s.height()).Int("outputs", len(diff.Outputs)).
		Int("spent", len(diff.Spent)).Str("utxo_root", roots.Utxo.String()).
		Str("kernel_root", roots.Kernel.String()).Msg("block connected")
	return nil
}

// reorg forks depth blocks below the tip. The fork point never goes below
// the blocks this simulator produced or the rewind horizon of the accumulators.
func (s *Simulator) reorg(depth int) error {
	stats, err := s.acc.Stats()
	if err != nil {
		return err
	}
	lowest := s.base
	if merged := stats.Trees[chainmmr.TreeUtxo].Merged; merged > lowest {
		lowest = merged
	}
	fork := s.height()
	for d := 0; d < depth && fork > lowest; d++ {
		fork--
	}
	if fork == s.height() {
		return s.extend(s.tip())
	}

	forkRoots := s.rootsAt(fork)
	detached := s.height() - fork
	for s.height() > fork {
		s.unwind()
	}
	s.log.Info().Uint64("fork_height", fork).Uint64("detached", detached).Msg("simulating reorganization")

	for i := uint64(0); i <= detached; i++ {
		prev := s.tip()
		if i == 0 {
			prev = forkRoots
		}
		if err = s.extend(prev); err != nil {
			return err
		}
	}
	s.reorgs++
	s.blocks -= int(detached)
	return nil
}

// nextBlock creates outputs, kernels and range proofs with random hashes
// and spends random unspent outputs of earlier blocks.
func (s *Simulator) nextBlock() *chainmmr.BlockDiff {
	diff := &chainmmr.BlockDiff{}
	for i := 0; i < s.cfg.OutputsPerBlock; i++ {
		diff.Outputs = append(diff.Outputs, s.randomHash())
		diff.RangeProofs = append(diff.RangeProofs, s.randomHash())
	}
	for i := 0; i < s.cfg.KernelsPerBlock; i++ {
		diff.Kernels = append(diff.Kernels, s.randomHash())
	}

	unspent := roaring.Flip(s.spent, 0, uint64(s.leaves))
	spends := int(s.cfg.SpendRate*float64(s.cfg.OutputsPerBlock) + 0.5)
	for ; spends > 0 && !unspent.IsEmpty(); spends-- {
		leaf, err := unspent.Select(uint32(s.rnd.Int63n(int64(unspent.GetCardinality()))))
		if err != nil {
			break
		}
		unspent.Remove(leaf)
		diff.Spent = append(diff.Spent, leaf)
	}
	return diff
}

func (s *Simulator) randomHash() mmr.Hash {
	var buf [32]byte
	s.rnd.Read(buf[:])
	return s.acc.Hasher().HashLeaf(buf[:])
}

func (s *Simulator) record(diff *chainmmr.BlockDiff, roots chainmmr.Roots) {
	s.history = append(s.history, blockRecord{
		roots:   roots,
		outputs: uint32(len(diff.Outputs)),
		spent:   diff.Spent,
	})
	s.leaves += uint32(len(diff.Outputs))
	for _, leaf := range diff.Spent {
		s.spent.Add(leaf)
	}
	s.blocks++
}

func (s *Simulator) unwind() {
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.leaves -= last.outputs
	for _, leaf := range last.spent {
		s.spent.Remove(leaf)
	}
}
