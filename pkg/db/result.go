package db

import (
	"fmt"
	"time"
)

// Column describes one column of a query result.
type Column struct {
	Name         string
	DatabaseType string
}

// Row holds one result row, cells in column order.
type Row []any

// Result is the full outcome of a read query.
type Result struct {
	Columns []Column
	Rows    []Row
	Elapsed time.Duration
}

// Names returns the column names in result order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Value returns the cell of row i under column name, and whether the column
// exists.
func (r *Result) Value(i int, name string) (any, bool) {
	for j, c := range r.Columns {
		if c.Name == name {
			return r.Rows[i][j], true
		}
	}
	return nil, false
}

type transformFunc func(columns []string, values Row) any

var transformFuncs = map[string]transformFunc{
	"array":   transformArray,
	"objects": transformObject,
}

// Shape renders the rows as arrays ("array") or as column-keyed objects
// ("objects").
func (r *Result) Shape(format string) ([]any, error) {
	transform, ok := transformFuncs[format]
	if !ok {
		return nil, fmt.Errorf("unknown result shape %q", format)
	}

	columns := r.Names()
	out := make([]any, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = transform(columns, row)
	}
	return out, nil
}

func transformArray(columns []string, values Row) any {
	arrRow := make([]any, len(columns))
	copy(arrRow, values)
	return arrRow
}

func transformObject(columns []string, values Row) any {
	objRow := make(map[string]any, len(columns))
	for i, col := range columns {
		objRow[col] = values[i]
	}
	return objRow
}
