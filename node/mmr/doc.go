/*
 * Copyright (c) 2021 The JaxNetwork developers
 * Use of this source code is governed by an ISC
 * license that can be found in the LICENSE file.
 */

// Package mmr keeps the accumulators of a chain.
//
// Every block commits to three trees:
// 	      utxo       - outputs, spent outputs are marked deleted and compacted
// 	      kernel     - append-only
// 	      rangeproof - append-only
//
// A block is one checkpoint in each tree, so the height of the chain is the
// number of checkpoints. Blocks newer than the rewind horizon can be undone,
// older ones are merged into the base accumulators.
//
// Store layout, one set of buckets per tree:
// 	      <tree>/base         base nodes, meta "deleted" and "merged"
// 	      <tree>/live         live nodes, rebuilt on open
// 	      <tree>/checkpoints  one checkpoint per block
package mmr
