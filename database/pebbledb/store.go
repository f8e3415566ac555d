// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"gitlab.com/jaxnet/mmrengine/database"
)

type store struct {
	db *pebble.DB
}

func openDB(dbPath string, create bool) (database.Store, error) {
	opts := &pebble.Options{}
	if dbPath == MemoryPath {
		opts.FS = vfs.NewMem()
	} else {
		if err := database.CheckPath(dbPath, create); err != nil {
			return nil, err
		}
		opts.ErrorIfExists = create
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, convertErr("open "+dbPath, err)
	}
	log.Info().Str("path", dbPath).Bool("create", create).Msg("pebble opened")
	return &store{db: db}, nil
}

func convertErr(desc string, err error) error {
	return database.MakeError(database.ErrDriverSpecific, desc, err)
}

func (s *store) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, convertErr("get", err)
	}
	defer closer.Close()
	return append([]byte{}, value...), nil
}

func (s *store) Put(key, value []byte) error {
	if err := s.db.Set(key, value, pebble.Sync); err != nil {
		return convertErr("put", err)
	}
	return nil
}

func (s *store) Delete(key []byte) error {
	if err := s.db.Delete(key, pebble.Sync); err != nil {
		return convertErr("delete", err)
	}
	return nil
}

func (s *store) DeleteRange(start, limit []byte) error {
	if err := s.db.DeleteRange(start, limit, pebble.Sync); err != nil {
		return convertErr("delete range", err)
	}
	return nil
}

func (s *store) Close() error {
	if err := s.db.Close(); err != nil {
		return convertErr("close", err)
	}
	return nil
}
