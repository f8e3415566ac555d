// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package badgerdb

import (
	"bytes"
	"fmt"

	badger "github.com/dgraph-io/badger"
	"gitlab.com/jaxnet/mmrengine/database"
)

// deleteTxnSize bounds the number of deletions per transaction.
const deleteTxnSize = 1000

type store struct {
	db *badger.DB
}

// badgerLogger routes badger messages to the package logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Error().Msg(fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Warn().Msg(fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Debug().Msg(fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Trace().Msg(fmt.Sprintf(format, args...))
}

func openDB(dbPath string, create bool) (database.Store, error) {
	if err := database.CheckPath(dbPath, create); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = badgerLogger{}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, convertErr("open "+dbPath, err)
	}
	log.Info().Str("path", dbPath).Bool("create", create).Msg("badger opened")
	return &store{db: db}, nil
}

func convertErr(desc string, err error) error {
	return database.MakeError(database.ErrDriverSpecific, desc, err)
}

func (s *store) Get(key []byte) (value []byte, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, convertErr("get", err)
	}
	return value, nil
}

func (s *store) Put(key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return convertErr("put", err)
	}
	return nil
}

func (s *store) Delete(key []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return convertErr("delete", err)
	}
	return nil
}

func (s *store) rangeKeys(start, limit []byte) (keys [][]byte, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(start); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Compare(key, limit) >= 0 {
				break
			}
			keys = append(keys, key)
		}
		return nil
	})
	return keys, err
}

func (s *store) DeleteRange(start, limit []byte) error {
	keys, err := s.rangeKeys(start, limit)
	if err != nil {
		return convertErr("iterate range", err)
	}
	for len(keys) > 0 {
		chunk := keys
		if len(chunk) > deleteTxnSize {
			chunk = chunk[:deleteTxnSize]
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			for _, key := range chunk {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return convertErr("delete range", err)
		}
		keys = keys[len(chunk):]
	}
	return nil
}

func (s *store) Close() error {
	if err := s.db.Close(); err != nil {
		return convertErr("close", err)
	}
	return nil
}
