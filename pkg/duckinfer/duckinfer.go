// Package duckinfer proposes column types for a CSV file with DuckDB's CSV
// sniffer, running in-process instead of through the external helper.
package duckinfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JayJamieson/csv-warehouse/pkg/ident"
	"github.com/JayJamieson/csv-warehouse/pkg/infer"
	_ "github.com/marcboeker/go-duckdb/v2"
)

// Inferrer runs read_csv_auto against a throwaway in-memory DuckDB.
type Inferrer struct {
	timeout time.Duration
}

// New returns an Inferrer whose runs are bounded by timeout, or by
// infer.DefaultTimeout when timeout is not positive.
func New(timeout time.Duration) *Inferrer {
	if timeout <= 0 {
		timeout = infer.DefaultTimeout
	}
	return &Inferrer{timeout: timeout}
}

// Timeout returns the bound applied to a single run.
func (inf *Inferrer) Timeout() time.Duration {
	return inf.timeout
}

// Infer describes the sniffed schema of csvPath and maps each DuckDB type to
// the store's type names. Failures are reported as
// infer.ErrHelperProcessFailed so callers treat both backends alike.
func (inf *Inferrer) Infer(ctx context.Context, csvPath string) (*infer.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, inf.timeout)
	defer cancel()

	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open DuckDB: %v", infer.ErrHelperProcessFailed, err)
	}
	defer conn.Close()

	query := fmt.Sprintf("DESCRIBE SELECT * FROM read_csv_auto('%s', header=true, strict_mode=false)",
		strings.ReplaceAll(csvPath, "'", "''"))

	rows, err := conn.QueryContext(ctx, query)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if rows != nil {
			rows.Close()
		}
		return nil, fmt.Errorf("%w: duckdb timed out after %v", infer.ErrHelperProcessFailed, inf.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: duckdb: %v", infer.ErrHelperProcessFailed, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: duckdb: %v", infer.ErrHelperProcessFailed, err)
	}
	if len(columns) < 2 {
		return nil, fmt.Errorf("%w: duckdb: unexpected DESCRIBE shape %v", infer.ErrHelperOutputInvalid, columns)
	}

	res := &infer.Result{}
	for rows.Next() {
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("%w: duckdb: %v", infer.ErrHelperProcessFailed, err)
		}

		res.Columns = append(res.Columns, ident.Normalize(fmt.Sprint(values[0])))
		res.Types = append(res.Types, StoreType(fmt.Sprint(values[1])))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: duckdb: %v", infer.ErrHelperProcessFailed, err)
	}
	return res, nil
}

// StoreType maps a DuckDB type name to INTEGER, REAL or TEXT.
func StoreType(duckType string) string {
	t := strings.ToUpper(strings.TrimSpace(duckType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}

	switch t {
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT",
		"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT", "UHUGEINT", "BOOLEAN":
		return infer.TypeInteger
	case "FLOAT", "DOUBLE", "REAL", "DECIMAL", "NUMERIC":
		return infer.TypeReal
	default:
		return infer.TypeText
	}
}
