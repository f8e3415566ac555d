// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
)

// Driver defines a structure for backend drivers to use when they registered
// themselves as a backend which implements the Store interface.
type Driver struct {
	// DBType is the identifier used to uniquely identify a specific
	// database driver.  There can be only one driver with the same name.
	DBType string

	// Create is the function that will be invoked with all user-specified
	// arguments to create the database.  This function must return
	// ErrDBExists if the database already exists.
	Create func(args ...interface{}) (Store, error)

	// Open is the function that will be invoked with all user-specified
	// arguments to open the database.  This function must return
	// ErrDBDoesNotExist if the database has not already been created.
	Open func(args ...interface{}) (Store, error)

	// UseLogger uses a specified Logger to output package logging info.
	UseLogger func(logger zerolog.Logger)
}

// driverList holds all of the registered database backends.
var drivers = make(map[string]*Driver)

// RegisterDriver adds a backend database driver to available interfaces.
// ErrDBTypeRegistered will be returned if the database type for the driver has
// already been registered.
func RegisterDriver(driver Driver) error {
	if _, exists := drivers[driver.DBType]; exists {
		str := fmt.Sprintf("driver %q is already registered",
			driver.DBType)
		return MakeError(ErrDBTypeRegistered, str, nil)
	}

	drivers[driver.DBType] = &driver
	return nil
}

// SupportedDrivers returns a sorted slice of strings that represent the
// database drivers that have been registered and are therefore supported.
func SupportedDrivers() []string {
	supportedDBs := make([]string, 0, len(drivers))
	for _, drv := range drivers {
		supportedDBs = append(supportedDBs, drv.DBType)
	}
	sort.Strings(supportedDBs)
	return supportedDBs
}

// Create initializes and opens a database for the specified type.  The
// arguments are specific to the database type driver.  See the documentation
// for the database driver for further details.
//
// ErrDBUnknownType will be returned if the database type is not registered.
func Create(dbType string, args ...interface{}) (Store, error) {
	drv, exists := drivers[dbType]
	if !exists {
		str := fmt.Sprintf("driver %q is not registered", dbType)
		return nil, MakeError(ErrDBUnknownType, str, nil)
	}

	return drv.Create(args...)
}

// Open opens an existing database for the specified type.  The arguments are
// specific to the database type driver.  See the documentation for the
// database driver for further details.
//
// ErrDBUnknownType will be returned if the database type is not registered.
func Open(dbType string, args ...interface{}) (Store, error) {
	drv, exists := drivers[dbType]
	if !exists {
		str := fmt.Sprintf("driver %q is not registered", dbType)
		return nil, MakeError(ErrDBUnknownType, str, nil)
	}

	return drv.Open(args...)
}

// OpenOrCreate opens the database at the path or creates it when missing.
func OpenOrCreate(dbType, dbPath string) (Store, error) {
	store, err := Open(dbType, dbPath)
	if IsErrorCode(err, ErrDBDoesNotExist) {
		log.Info().Str("type", dbType).Str("path", dbPath).Msg("creating new database")
		return Create(dbType, dbPath)
	}
	return store, err
}

// ParsePathArgs extracts the database path from the Open/Create arguments.
func ParsePathArgs(dbType, funcName string, args ...interface{}) (string, error) {
	if len(args) != 1 {
		str := fmt.Sprintf("invalid arguments to %s.%s -- expected database path", dbType, funcName)
		return "", MakeError(ErrInvalid, str, nil)
	}

	dbPath, ok := args[0].(string)
	if !ok {
		str := fmt.Sprintf("first argument to %s.%s is invalid -- expected database path string",
			dbType, funcName)
		return "", MakeError(ErrInvalid, str, nil)
	}
	return dbPath, nil
}

// CheckPath enforces the create and open contracts for on-disk drivers.
func CheckPath(dbPath string, create bool) error {
	_, err := os.Stat(dbPath)
	exists := err == nil
	if create && exists {
		return MakeError(ErrDBExists, fmt.Sprintf("database %q already exists", dbPath), nil)
	}
	if !create && !exists {
		return MakeError(ErrDBDoesNotExist, fmt.Sprintf("database %q does not exist", dbPath), nil)
	}
	return nil
}
