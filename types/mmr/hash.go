// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// HashSize of array used to store hashes.
const HashSize = 32

// Hash is the digest stored in every node of the accumulators.
type Hash [HashSize]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the digest.
func (h Hash) Bytes() []byte {
	res := make([]byte, HashSize)
	copy(res, h[:])
	return res
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	res, err := NewHashFromStr(string(text))
	if err != nil {
		return err
	}
	*h = res
	return nil
}

// NewHash converts raw bytes into a Hash. The slice must be exactly HashSize long.
func NewHash(data []byte) (Hash, error) {
	var h Hash
	if len(data) != HashSize {
		return h, errors.Errorf("invalid hash length of %v, want %v", len(data), HashSize)
	}
	copy(h[:], data)
	return h, nil
}

// NewHashFromStr decodes a hex encoded hash.
func NewHashFromStr(str string) (Hash, error) {
	raw, err := hex.DecodeString(str)
	if err != nil {
		return Hash{}, errors.Wrap(err, "can't decode hash")
	}
	return NewHash(raw)
}
