// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	chainmmr "gitlab.com/jaxnet/mmrengine/node/mmr"
	"gitlab.com/jaxnet/mmrengine/types/mmr"
)

// ProofFile is the document exchanged by the proof and verify commands.
type ProofFile struct {
	Tree  chainmmr.Tree    `json:"tree"`
	Leaf  mmr.Hash         `json:"leaf"`
	Root  mmr.Hash         `json:"root"`
	Proof *mmr.MerkleProof `json:"proof"`
}

func buildProofFile(acc *chainmmr.ChainAccumulators, tree chainmmr.Tree, leafIndex uint32) (*ProofFile, error) {
	leaf, _, err := acc.FetchLeaf(tree, leafIndex)
	if err != nil {
		return nil, err
	}
	proof, err := acc.Proof(tree, leafIndex)
	if err != nil {
		return nil, err
	}
	roots, err := acc.MMROnlyRoots()
	if err != nil {
		return nil, err
	}
	return &ProofFile{Tree: tree, Leaf: leaf, Root: roots.Get(tree), Proof: proof}, nil
}

func writeProofFile(w io.Writer, file *ProofFile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(file), "unable to encode proof")
}

func readProofFile(r io.Reader) (*ProofFile, error) {
	file := new(ProofFile)
	if err := json.NewDecoder(r).Decode(file); err != nil {
		return nil, errors.Wrap(err, "unable to decode proof")
	}
	if file.Proof == nil {
		return nil, errors.New("proof file carries no proof")
	}
	return file, nil
}
