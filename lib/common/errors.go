package common

import "fmt"

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code (of type RetCode) and an error message.
// The reclamation protocol itself has no error paths; Error is used by the
// tooling around it (configuration, stress runs, scenarios).
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("hzrd error (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
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
	RetCInvalidConfig RetCode = iota + 1 // 1: The configuration is invalid.
	RetCViolation                        // 2: A safety property was violated (e.g. a reader saw a reclaimed value).
	RetCTimeout                          // 3: A scenario did not finish in time.
)

func (c RetCode) String() string {
	switch c {
	case RetCInvalidConfig:
		return "InvalidConfig"
	case RetCViolation:
		return "Violation"
	case RetCTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}
