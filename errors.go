package lynx

import (
	"errors"
	"fmt"

	"github.com/Alexk-195/lynx-vector-db-sub000/pkg/index"
)

// Re-export the index package's error taxonomy at the root so callers never
// need to import pkg/index directly for error handling (spec §7).
type ErrorCode = index.ErrorCode

const (
	Ok                = index.Ok
	InvalidArgument   = index.InvalidArgument
	DimensionMismatch = index.DimensionMismatch
	VectorNotFound    = index.VectorNotFound
	InvalidState      = index.InvalidState
	IOError           = index.IOError
	IndexCorrupted    = index.IndexCorrupted
	NotSupported      = index.NotSupported
)

// LynxError wraps an operation name around an underlying error, mirroring
// the teacher's StoreError{Op,Err} in errors.go.
type LynxError struct {
	Op   string
	Code ErrorCode
	Err  error
}

func (e *LynxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lynx: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("lynx: %s: %s", e.Op, e.Code)
}

func (e *LynxError) Unwrap() error { return e.Err }

func (e *LynxError) Is(target error) bool {
	var other *LynxError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return index.Code(e.Err) == index.Code(target)
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &LynxError{Op: op, Code: index.Code(err), Err: err}
}

// Code extracts the ErrorCode carried by err, or Ok if err is nil.
func Code(err error) ErrorCode { return index.Code(err) }

var ErrInvalidConfig = &index.Error{Code: InvalidArgument, Msg: "invalid configuration"}
