package warehouse

import (
	"errors"
	"fmt"
)

var (
	// ErrTableMissing is returned when the destination table does not exist
	// and may not be created, or when exporting a table that does not exist.
	ErrTableMissing = errors.New("table does not exist")
	// ErrColumnMismatch is returned when CSV headers differ from the columns
	// of an existing table.
	ErrColumnMismatch = errors.New("CSV headers do not match existing table columns")
	// ErrInferenceLengthMismatch is returned when the inferred type list
	// cannot be paired with the CSV headers.
	ErrInferenceLengthMismatch = errors.New("inferred types length does not match CSV header count")
	// ErrDuplicateColumn is returned when two headers normalize to the same
	// column name.
	ErrDuplicateColumn = errors.New("duplicate column name after normalization")
	// ErrFileNotFound is returned when the CSV to import does not exist.
	ErrFileNotFound = errors.New("CSV file not found")
)

// MismatchError reports both column sequences of a failed header match.
type MismatchError struct {
	Table    string
	Existing []string
	Headers  []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: table %q has %v, CSV has %v", ErrColumnMismatch, e.Table, e.Existing, e.Headers)
}

func (e *MismatchError) Unwrap() error {
	return ErrColumnMismatch
}
