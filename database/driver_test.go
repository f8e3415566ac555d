// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database_test

import (
	"fmt"
	"testing"

	"gitlab.com/jaxnet/mmrengine/database"
	_ "gitlab.com/jaxnet/mmrengine/database/badgerdb"
	_ "gitlab.com/jaxnet/mmrengine/database/ldb"
	_ "gitlab.com/jaxnet/mmrengine/database/memdb"
	_ "gitlab.com/jaxnet/mmrengine/database/pebbledb"
)

// checkDBError ensures the passed error is a database.Error with an error code
// that matches the passed  error code.
func checkDBError(t *testing.T, testName string, gotErr error, wantErrCode database.ErrorCode) bool {
	dbErr, ok := gotErr.(database.Error)
	if !ok {
		t.Errorf("%s: unexpected error type - got %T, want %T",
			testName, gotErr, database.Error{})
		return false
	}
	if dbErr.ErrorCode != wantErrCode {
		t.Errorf("%s: unexpected error code - got %s (%s), want %s",
			testName, dbErr.ErrorCode, dbErr.Description,
			wantErrCode)
		return false
	}

	return true
}

// TestAddDuplicateDriver ensures that adding a duplicate driver does not
// overwrite an existing one.
func TestAddDuplicateDriver(t *testing.T) {
	supportedDrivers := database.SupportedDrivers()
	if len(supportedDrivers) == 0 {
		t.Errorf("no backends to test")
		return
	}
	dbType := supportedDrivers[0]

	// bogusCreateDB is a function which acts as a bogus create and open
	// driver function and intentionally returns a failure that can be
	// detected if the interface allows a duplicate driver to overwrite an
	// existing one.
	bogusCreateDB := func(args ...interface{}) (database.Store, error) {
		return nil, fmt.Errorf("duplicate driver allowed for database type [%v]", dbType)
	}

	driver := database.Driver{
		DBType: dbType,
		Create: bogusCreateDB,
		Open:   bogusCreateDB,
	}
	testName := "duplicate driver registration"
	err := database.RegisterDriver(driver)
	if !checkDBError(t, testName, err, database.ErrDBTypeRegistered) {
		return
	}
}

// TestCreateOpenFail ensures that errors which occur while opening or closing
// a database are handled properly.
func TestCreateOpenFail(t *testing.T) {
	dbType := "createopenfail"
	openError := fmt.Errorf("failed to create or open database for "+
		"database type [%v]", dbType)
	bogusCreateDB := func(args ...interface{}) (database.Store, error) {
		return nil, openError
	}

	driver := database.Driver{
		DBType: dbType,
		Create: bogusCreateDB,
		Open:   bogusCreateDB,
	}
	if err := database.RegisterDriver(driver); err != nil {
		t.Fatalf("failed to register driver: %v", err)
	}

	_, err := database.Create(dbType)
	if err != openError {
		t.Errorf("expected error not received - got: %v, want %v", err, openError)
		return
	}

	_, err = database.Open(dbType)
	if err != openError {
		t.Errorf("expected error not received - got: %v, want %v", err, openError)
		return
	}
}

// TestCreateOpenUnsupported ensures that attempting to create or open an
// unsupported database type is handled properly.
func TestCreateOpenUnsupported(t *testing.T) {
	testName := "create with unsupported database type"
	dbType := "unsupported"
	_, err := database.Create(dbType)
	if !checkDBError(t, testName, err, database.ErrDBUnknownType) {
		return
	}

	testName = "open with unsupported database type"
	_, err = database.Open(dbType)
	if !checkDBError(t, testName, err, database.ErrDBUnknownType) {
		return
	}
}

// TestInvalidArgs ensures the drivers reject calls without a path.
func TestInvalidArgs(t *testing.T) {
	for _, dbType := range storeDrivers {
		_, err := database.Create(dbType)
		checkDBError(t, dbType+" create without args", err, database.ErrInvalid)

		_, err = database.Open(dbType, 42)
		checkDBError(t, dbType+" open with int path", err, database.ErrInvalid)
	}
}

func TestOpenMissing(t *testing.T) {
	for _, dbType := range storeDrivers {
		path := t.TempDir() + "/missing"
		if dbType == "memdb" {
			path = t.Name()
		}
		_, err := database.Open(dbType, path)
		checkDBError(t, dbType+" open missing", err, database.ErrDBDoesNotExist)
	}
}

func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   database.ErrorCode
		want string
	}{
		{database.ErrDBTypeRegistered, "ErrDBTypeRegistered"},
		{database.ErrDBUnknownType, "ErrDBUnknownType"},
		{database.ErrDBDoesNotExist, "ErrDBDoesNotExist"},
		{database.ErrDBExists, "ErrDBExists"},
		{database.ErrInvalid, "ErrInvalid"},
		{database.ErrCorruption, "ErrCorruption"},
		{database.ErrDriverSpecific, "ErrDriverSpecific"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}
