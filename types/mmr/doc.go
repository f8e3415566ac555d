/*
 * Copyright (c) 2021 The JaxNetwork developers
 * Use of this source code is governed by an ISC
 * license that can be found in the LICENSE file.
 */

// Package mmr provides the Merkle accumulators used by chain storage.
//
// Leaves are hashes. Internal nodes are hashed with a different prefix:
// 	      leaf = H(0x00 | data)
// 	      node = H(0x01 | left | right)
//
// Mountain range topology, positions in creation order:
//
// For 3 leaves, peaks 2 and 3:
//	      1:       2
//	              / \
//	      0:     0   1   3
//	      root = H(n2, n3)
//
// For 5 leaves, peaks 6 and 7:
//	      2:             6
//	                   /   \
//	      1:         2       5
//	                / \     / \
//	      0:       0   1   3   4   7
//	      root = H(n6, n7)
//
// For 7 leaves, peaks 6, 9 and 10:
//	      root = H(H(n6, n9), n10)
//
// A MutableMmr adds a deletion bitmap on top of a MerkleMountainRange, a
// MerkleChangeTracker adds commit, rewind and replay on top of a MutableMmr.
// BalancedBinaryMerkleTree is a static tree for fixed sets of leaves.
//
// None of the types is safe for concurrent use, see node/mmr for a
// synchronized owner.
package mmr
