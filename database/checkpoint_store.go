// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"fmt"

	"gitlab.com/jaxnet/mmrengine/types/mmr"
)

// CheckpointStore keeps change tracker checkpoints in a bucket.
// It implements mmr.CheckpointLog.
type CheckpointStore struct {
	bucket Bucket
}

func NewCheckpointStore(bucket Bucket) *CheckpointStore {
	return &CheckpointStore{bucket: bucket}
}

func (c *CheckpointStore) Len() (uint64, error) {
	return c.bucket.Uint64(lengthKey)
}

func (c *CheckpointStore) Push(cp *mmr.Checkpoint) error {
	length, err := c.Len()
	if err != nil {
		return err
	}
	data, err := cp.MarshalBinary()
	if err != nil {
		return err
	}
	if err = c.bucket.PutEntry(length, data); err != nil {
		return err
	}
	return c.bucket.PutUint64(lengthKey, length+1)
}

func (c *CheckpointStore) Get(index uint64) (*mmr.Checkpoint, error) {
	length, err := c.Len()
	if err != nil || index >= length {
		return nil, err
	}
	data, err := c.bucket.GetEntry(index)
	if err != nil {
		return nil, err
	}
	if data == nil {
		str := fmt.Sprintf("checkpoint %d of %s is missing", index, c.bucket.Name())
		return nil, MakeError(ErrCorruption, str, nil)
	}
	cp := new(mmr.Checkpoint)
	if err = cp.UnmarshalBinary(data); err != nil {
		str := fmt.Sprintf("can't decode checkpoint %d of %s", index, c.bucket.Name())
		return nil, MakeError(ErrCorruption, str, err)
	}
	return cp, nil
}

func (c *CheckpointStore) Truncate(length uint64) error {
	current, err := c.Len()
	if err != nil || length >= current {
		return err
	}
	if err = c.bucket.PutUint64(lengthKey, length); err != nil {
		return err
	}
	return c.bucket.DeleteEntriesFrom(length)
}
