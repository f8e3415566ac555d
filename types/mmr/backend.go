// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

// Backend is an append-only indexed sequence of hashes.
// Index i always refers to the i-th pushed hash.
type Backend interface {
	Len() (uint64, error)
	// Push appends the hash and returns its index.
	Push(hash Hash) (uint64, error)
	// Get returns nil without an error when the index is past the end
	// or the entry was forgotten.
	Get(index uint64) (*Hash, error)
	// Truncate drops every entry at index >= length.
	Truncate(length uint64) error
	// ForEach visits entries in index order and stops at the first error.
	ForEach(fn func(index uint64, hash *Hash) error) error
}

// Forgetter is implemented by backends which can physically drop the value
// of an entry while keeping its index occupied.
type Forgetter interface {
	Forget(index uint64) error
}

// MemBackend keeps hashes in a slice. A nil entry is a forgotten one.
type MemBackend struct {
	nodes []*Hash
}

func NewMemBackend() *MemBackend {
	return &MemBackend{}
}

func (m *MemBackend) Len() (uint64, error) {
	return uint64(len(m.nodes)), nil
}

func (m *MemBackend) Push(hash Hash) (uint64, error) {
	m.nodes = append(m.nodes, &hash)
	return uint64(len(m.nodes) - 1), nil
}

func (m *MemBackend) Get(index uint64) (*Hash, error) {
	if index >= uint64(len(m.nodes)) || m.nodes[index] == nil {
		return nil, nil
	}
	res := *m.nodes[index]
	return &res, nil
}

func (m *MemBackend) Truncate(length uint64) error {
	if length < uint64(len(m.nodes)) {
		for i := length; i < uint64(len(m.nodes)); i++ {
			m.nodes[i] = nil
		}
		m.nodes = m.nodes[:length]
	}
	return nil
}

func (m *MemBackend) ForEach(fn func(index uint64, hash *Hash) error) error {
	for i, h := range m.nodes {
		var value *Hash
		if h != nil {
			v := *h
			value = &v
		}
		if err := fn(uint64(i), value); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemBackend) Forget(index uint64) error {
	if index < uint64(len(m.nodes)) {
		m.nodes[index] = nil
	}
	return nil
}

// copyBackend replaces the content of dst with the content of src.
// Forgotten entries stay forgotten when dst can forget them.
func copyBackend(dst, src Backend) error {
	if err := dst.Truncate(0); err != nil {
		return backendError("truncate", err)
	}
	forgetter, canForget := dst.(Forgetter)
	err := src.ForEach(func(index uint64, hash *Hash) error {
		value := Hash{}
		if hash != nil {
			value = *hash
		}
		if _, err := dst.Push(value); err != nil {
			return backendError("push", err)
		}
		if hash == nil && canForget {
			return backendError("forget", forgetter.Forget(index))
		}
		return nil
	})
	return backendError("for each", err)
}
