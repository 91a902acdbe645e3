package store

import "fmt"

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message. Validation conflicts are NOT errors: they are
// reported as failed-request outcomes by the protocol package.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCInvalidConfig:
		errorCode = "InvalidConfig"
	case RetCCapacityExceeded:
		errorCode = "CapacityExceeded"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("StoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Operation completed successfully.
	RetCInternalError                   // 1: Operation failed due to an internal error.
	RetCInvalidConfig                   // 2: Invalid workload or store configuration.
	RetCCapacityExceeded                // 3: A channel's preallocated message log is full.
)
