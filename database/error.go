// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import "fmt"

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific database Error.
const (
	// ErrDBTypeRegistered indicates two different database drivers
	// attempt to register with the name database type.
	ErrDBTypeRegistered ErrorCode = iota

	// ErrDBUnknownType indicates there is no driver registered for
	// the specified database type.
	ErrDBUnknownType

	// ErrDBDoesNotExist indicates open is called for a database that
	// does not exist.
	ErrDBDoesNotExist

	// ErrDBExists indicates create is called for a database that
	// already exists.
	ErrDBExists

	// ErrInvalid indicates the arguments of a driver call are invalid.
	ErrInvalid

	// ErrCorruption indicates a stored value can't be decoded.
	ErrCorruption

	// ErrDriverSpecific indicates the Err field is a driver-specific error.
	ErrDriverSpecific

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDBTypeRegistered: "ErrDBTypeRegistered",
	ErrDBUnknownType:    "ErrDBUnknownType",
	ErrDBDoesNotExist:   "ErrDBDoesNotExist",
	ErrDBExists:         "ErrDBExists",
	ErrInvalid:          "ErrInvalid",
	ErrCorruption:       "ErrCorruption",
	ErrDriverSpecific:   "ErrDriverSpecific",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen during database
// operation.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error, optional
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

func (e Error) Unwrap() error { return e.Err }

// MakeError creates an Error given a set of arguments.
func MakeError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsErrorCode reports whether err is an Error with the code.
func IsErrorCode(err error, c ErrorCode) bool {
	dbErr, ok := err.(Error)
	return ok && dbErr.ErrorCode == c
}
