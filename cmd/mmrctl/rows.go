// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	chainmmr "gitlab.com/jaxnet/mmrengine/node/mmr"
)

type LeafRow struct {
	Index   uint32 `csv:"index"`
	Hash    string `csv:"hash"`
	Deleted bool   `csv:"deleted"`
}

type StatRow struct {
	Tree        string `csv:"tree"`
	Leaves      uint32 `csv:"leaves"`
	Deleted     uint64 `csv:"deleted"`
	Nodes       uint64 `csv:"nodes"`
	Checkpoints uint64 `csv:"checkpoints"`
	Merged      uint64 `csv:"merged"`
}

type CheckpointRow struct {
	Height  uint64
	Added   int
	Deleted uint64
}

// leafRows reads at most limit leaves starting at offset.
// Compacted leaves have an empty hash.
func leafRows(acc *chainmmr.ChainAccumulators, tree chainmmr.Tree, offset, limit uint64) ([]LeafRow, error) {
	stats, err := acc.Stats()
	if err != nil {
		return nil, err
	}
	leaves := uint64(stats.Trees[tree].Leaves)

	rows := make([]LeafRow, 0)
	for i := offset; i < leaves && uint64(len(rows)) < limit; i++ {
		hash, deleted, err := acc.FetchLeaf(tree, uint32(i))
		if err != nil {
			return nil, err
		}
		row := LeafRow{Index: uint32(i), Deleted: deleted}
		if !hash.IsZero() {
			row.Hash = hash.String()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func statRows(stats chainmmr.Stats) []StatRow {
	rows := make([]StatRow, 0, len(stats.Trees))
	for _, s := range stats.Trees {
		rows = append(rows, StatRow{
			Tree:        s.Tree.String(),
			Leaves:      s.Leaves,
			Deleted:     s.Deleted,
			Nodes:       s.Nodes,
			Checkpoints: s.Checkpoints,
			Merged:      s.Merged,
		})
	}
	return rows
}

// checkpointRows lists the checkpoints kept above the merged height.
// Offset is a block height.
func checkpointRows(acc *chainmmr.ChainAccumulators, tree chainmmr.Tree, offset, limit uint64) ([]CheckpointRow, error) {
	stats, err := acc.Stats()
	if err != nil {
		return nil, err
	}
	from := stats.Trees[tree].Merged + 1
	if offset > from {
		from = offset
	}

	rows := make([]CheckpointRow, 0)
	for h := from; h <= stats.Height && uint64(len(rows)) < limit; h++ {
		cp, err := acc.FetchCheckpoint(tree, h)
		if err != nil {
			return nil, err
		}
		rows = append(rows, CheckpointRow{
			Height:  h,
			Added:   cp.AddedCount(),
			Deleted: cp.NodesDeleted().GetCardinality(),
		})
	}
	return rows, nil
}
