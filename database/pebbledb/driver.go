// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pebbledb implements a database driver on top of pebble.
// The path ":memory:" opens a store on an in-memory filesystem.
package pebbledb

import (
	"fmt"

	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/mmrengine/corelog"
	"gitlab.com/jaxnet/mmrengine/database"
)

var log = corelog.Disabled

const (
	dbType = "pebble"

	// MemoryPath selects the in-memory filesystem.
	MemoryPath = ":memory:"
)

func openDBDriver(args ...interface{}) (database.Store, error) {
	dbPath, err := database.ParsePathArgs(dbType, "Open", args...)
	if err != nil {
		return nil, err
	}
	return openDB(dbPath, false)
}

func createDBDriver(args ...interface{}) (database.Store, error) {
	dbPath, err := database.ParsePathArgs(dbType, "Create", args...)
	if err != nil {
		return nil, err
	}
	return openDB(dbPath, true)
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
