// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package memdb implements a process-local database driver. Databases live
// as long as the process and are addressed by name, so a store created under
// a name can be closed and opened again.
package memdb

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/mmrengine/corelog"
	"gitlab.com/jaxnet/mmrengine/database"
)

var log = corelog.Disabled

const dbType = "memdb"

var (
	registryMtx sync.Mutex
	registry    = make(map[string]*store)
)

func openDBDriver(args ...interface{}) (database.Store, error) {
	name, err := database.ParsePathArgs(dbType, "Open", args...)
	if err != nil {
		return nil, err
	}

	registryMtx.Lock()
	defer registryMtx.Unlock()
	db, ok := registry[name]
	if !ok {
		str := fmt.Sprintf("database %q does not exist", name)
		return nil, database.MakeError(database.ErrDBDoesNotExist, str, nil)
	}
	return db.reopen(), nil
}

func createDBDriver(args ...interface{}) (database.Store, error) {
	name, err := database.ParsePathArgs(dbType, "Create", args...)
	if err != nil {
		return nil, err
	}

	registryMtx.Lock()
	defer registryMtx.Unlock()
	if _, ok := registry[name]; ok {
		str := fmt.Sprintf("database %q already exists", name)
		return nil, database.MakeError(database.ErrDBExists, str, nil)
	}
	db := newStore()
	registry[name] = db
	log.Debug().Str("name", name).Msg("memory database created")
	return db.reopen(), nil
}

// Drop forgets the named database.
func Drop(name string) {
	registryMtx.Lock()
	delete(registry, name)
	registryMtx.Unlock()
}

func useLogger(logger zerolog.Logger) {
	log = logger
}

func init() {
	driver := database.Driver{
		DBType:    dbType,
		Create:    createDBDriver,
		Open:      openDBDriver,
		UseLogger: useLogger,
	}
	if err := database.RegisterDriver(driver); err != nil {
		panic(fmt.Sprintf("Failed to regiser database driver '%s': %v",
			dbType, err))
	}
}
