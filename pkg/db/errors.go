package db

import (
	"errors"
	"fmt"
)

// ErrStoreOperation marks failures reported by the underlying engine.
var ErrStoreOperation = errors.New("store operation failed")

// OpError wraps an engine error with the facade operation that produced it.
// It matches both ErrStoreOperation and the engine error under errors.Is.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() []error {
	return []error{ErrStoreOperation, e.Err}
}

func opError(op string, err error) error {
	return &OpError{Op: op, Err: err}
}
