package index

import "fmt"

// ErrorCode classifies why an index operation failed. It mirrors the
// taxonomy every layer of lynx uses, from the index implementations up
// through the database façade, so callers can branch on Code(err)
// instead of matching against unstable error strings.
type ErrorCode int

const (
	Ok ErrorCode = iota
	InvalidArgument
	DimensionMismatch
	VectorNotFound
	InvalidState
	IOError
	IndexCorrupted
	NotSupported
)

func (c ErrorCode) String() string {
	switch c {
	case Ok:
		return "Ok"
	case InvalidArgument:
		return "InvalidArgument"
	case DimensionMismatch:
		return "DimensionMismatch"
	case VectorNotFound:
		return "VectorNotFound"
	case InvalidState:
		return "InvalidState"
	case IOError:
		return "IOError"
	case IndexCorrupted:
		return "IndexCorrupted"
	case NotSupported:
		return "NotSupported"
	default:
		return "Unknown"
	}
}

// Error carries an ErrorCode alongside a human-readable message so that
// callers can both log a clear diagnostic and branch on Code().
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// newErr constructs an *Error for the given code.
func newErr(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Code extracts the ErrorCode from err, returning Ok if err is nil and
// InvalidState if err does not carry a code of its own (a defensive
// default — every index-internal failure should be constructed via
// newErr so this branch should not be reachable in practice).
func Code(err error) ErrorCode {
	if err == nil {
		return Ok
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Code
	}
	return InvalidState
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
