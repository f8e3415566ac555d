// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package badgerdb implements a database driver on top of badger.
package badgerdb

import (
	"fmt"

	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/mmrengine/corelog"
	"gitlab.com/jaxnet/mmrengine/database"
)

var log = corelog.Disabled

const dbType = "badger"

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
