// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ldb

import (
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/btcsuite/goleveldb/leveldb/filter"
	"github.com/btcsuite/goleveldb/leveldb/opt"
	"github.com/btcsuite/goleveldb/leveldb/storage"
	"github.com/btcsuite/goleveldb/leveldb/util"
	"gitlab.com/jaxnet/mmrengine/database"
)

// deleteBatchSize bounds the number of deletions per write batch.
const deleteBatchSize = 1000

var syncWrites = &opt.WriteOptions{Sync: true}

type store struct {
	ldb *leveldb.DB
}

func openDB(dbPath string, create bool) (database.Store, error) {
	if dbPath == MemoryPath {
		ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
		if err != nil {
			return nil, convertErr("open memory storage", err)
		}
		return &store{ldb: ldb}, nil
	}

	if err := database.CheckPath(dbPath, create); err != nil {
		return nil, err
	}
	opts := opt.Options{
		ErrorIfExist: create,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	}
	ldb, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, convertErr("open "+dbPath, err)
	}
	log.Info().Str("path", dbPath).Bool("create", create).Msg("leveldb opened")
	return &store{ldb: ldb}, nil
}

func convertErr(desc string, err error) error {
	return database.MakeError(database.ErrDriverSpecific, desc, err)
}

func (s *store) Get(key []byte) ([]byte, error) {
	value, err := s.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, convertErr("get", err)
	}
	return value, nil
}

func (s *store) Put(key, value []byte) error {
	if err := s.ldb.Put(key, value, syncWrites); err != nil {
		return convertErr("put", err)
	}
	return nil
}

func (s *store) Delete(key []byte) error {
	if err := s.ldb.Delete(key, syncWrites); err != nil {
		return convertErr("delete", err)
	}
	return nil
}

func (s *store) DeleteRange(start, limit []byte) error {
	iter := s.ldb.NewIterator(&util.Range{Start: start, Limit: limit}, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
		if batch.Len() < deleteBatchSize {
			continue
		}
		if err := s.ldb.Write(batch, syncWrites); err != nil {
			return convertErr("delete range", err)
		}
		batch.Reset()
	}
	if err := iter.Error(); err != nil {
		return convertErr("iterate range", err)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.ldb.Write(batch, syncWrites); err != nil {
		return convertErr("delete range", err)
	}
	return nil
}

func (s *store) Close() error {
	if err := s.ldb.Close(); err != nil {
		return convertErr("close", err)
	}
	return nil
}
