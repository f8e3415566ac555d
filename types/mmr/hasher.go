// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"hash"
	"sort"
	"sync"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// Names of the built-in hashers.
const (
	SHA256     = "sha256"
	SHA3256    = "sha3-256"
	Blake2b256 = "blake2b-256"
)

// Hasher produces the digests of leaves and internal nodes.
// Leaf and node inputs are tagged with different prefixes,
// so a leaf can never be mistaken for an internal node.
type Hasher interface {
	Name() string
	// HashEmpty returns the digest of the empty input.
	// It is the root of every empty accumulator.
	HashEmpty() Hash
	HashLeaf(data []byte) Hash
	HashChildren(left, right Hash) Hash
}

type digestHasher struct {
	name  string
	newFn func() hash.Hash
	empty Hash
}

// NewHasher builds a Hasher on top of the hash function.
// Only functions with a 32 byte output are accepted.
func NewHasher(name string, newFn func() hash.Hash) (Hasher, error) {
	if newFn == nil {
		return nil, errors.Wrap(ErrInvalidHasher, "hash constructor is nil")
	}
	if size := newFn().Size(); size != HashSize {
		return nil, errors.Wrapf(ErrInvalidHasher, "%s produces %d byte digest, want %d", name, size, HashSize)
	}

	h := &digestHasher{name: name, newFn: newFn}
	h.empty = h.sum()
	return h, nil
}

func (h *digestHasher) Name() string { return h.name }

func (h *digestHasher) HashEmpty() Hash { return h.empty }

func (h *digestHasher) HashLeaf(data []byte) Hash {
	return h.sum([]byte{leafPrefix}, data)
}

func (h *digestHasher) HashChildren(left, right Hash) Hash {
	return h.sum([]byte{nodePrefix}, left[:], right[:])
}

func (h *digestHasher) sum(parts ...[]byte) (res Hash) {
	d := h.newFn()
	for _, p := range parts {
		d.Write(p)
	}
	copy(res[:], d.Sum(nil))
	return
}

var (
	hashersMtx sync.RWMutex
	// initialized with the var block so package level vars of any file can use them
	hashers = builtinHashers()
)

func newBlake2b() hash.Hash {
	d, _ := blake2b.New256(nil)
	return d
}

func builtinHashers() map[string]Hasher {
	res := make(map[string]Hasher)
	for name, fn := range map[string]func() hash.Hash{
		SHA256:     sha256.New,
		SHA3256:    sha3.New256,
		Blake2b256: newBlake2b,
	} {
		h, err := NewHasher(name, fn)
		if err != nil {
			panic(err)
		}
		res[name] = h
	}
	return res
}

// RegisterHasher makes the hasher available through HasherByName.
func RegisterHasher(h Hasher) error {
	hashersMtx.Lock()
	defer hashersMtx.Unlock()
	if _, exists := hashers[h.Name()]; exists {
		return errors.Errorf("hasher %q is already registered", h.Name())
	}
	hashers[h.Name()] = h
	return nil
}

// HasherByName returns a registered hasher.
func HasherByName(name string) (Hasher, error) {
	hashersMtx.RLock()
	defer hashersMtx.RUnlock()
	h, ok := hashers[name]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidHasher, "hasher %q not found", name)
	}
	return h, nil
}

// SupportedHashers returns names of all registered hashers.
func SupportedHashers() []string {
	hashersMtx.RLock()
	defer hashersMtx.RUnlock()
	res := make([]string, 0, len(hashers))
	for name := range hashers {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// MustHasherByName is like HasherByName but panics when the hasher is unknown.
func MustHasherByName(name string) Hasher {
	h, err := HasherByName(name)
	if err != nil {
		panic(err)
	}
	return h
}

// DefaultHasher returns the sha256 hasher.
func DefaultHasher() Hasher {
	return MustHasherByName(SHA256)
}
