// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMathOverflow is returned when an index or a size leaves the supported range.
	ErrMathOverflow = errors.New("arithmetic overflow")
	// ErrLeafNotFound is returned when a requested leaf does not exist or is deleted.
	ErrLeafNotFound = errors.New("leaf not found")
	// ErrProofVerificationFailed is returned when a well formed proof does not lead to the expected root.
	ErrProofVerificationFailed = errors.New("merkle proof verification failed")
	// ErrIndexOutOfRange is returned for out of range checkpoints, rewinds and deletes.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrMalformedProof is returned when a proof shape doesn't match the claimed tree.
	ErrMalformedProof = errors.New("malformed merkle proof")
	// ErrNodePruned is returned when an operation needs a node forgotten by compaction.
	ErrNodePruned = errors.New("node was pruned")
	// ErrInvalidHasher is returned for hash functions that don't produce 32 byte digests.
	ErrInvalidHasher = errors.New("invalid hasher")
	// ErrCorruptState reports broken internal invariants, e.g. a backend of impossible length.
	ErrCorruptState = errors.New("corrupt accumulator state")
	// ErrTrackerFailed is returned by a change tracker after a failed rebuild.
	ErrTrackerFailed = errors.New("change tracker is unusable")
)

// BackendError wraps any failure reported by a storage backend.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Cause() error { return e.Err }

func backendError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*BackendError); ok {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

// IsBackendError reports whether err was raised by a storage backend.
func IsBackendError(err error) bool {
	var target *BackendError
	return errors.As(err, &target)
}
