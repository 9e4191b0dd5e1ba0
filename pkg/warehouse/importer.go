package warehouse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JayJamieson/csv-warehouse/pkg/db"
	"github.com/JayJamieson/csv-warehouse/pkg/ident"
	"github.com/JayJamieson/csv-warehouse/pkg/logging"
)

// DefaultBatchSize is the number of rows committed per bulk insert.
const DefaultBatchSize = 500

// Store is the subset of the store facade the import and export engine
// issues statements through.
type Store interface {
	Execute(ctx context.Context, stmt string, args ...any) (int64, error)
	ExecuteMany(ctx context.Context, stmt string, argSets [][]any) error
	Query(ctx context.Context, stmt string, args ...any) (*db.Result, error)
	TableColumns(ctx context.Context, table string) ([]string, error)
}

// RowReader yields CSV records until io.EOF. *csv.Reader satisfies it.
type RowReader interface {
	Read() ([]string, error)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewCSVReader returns a lenient CSV reader over r: a leading UTF-8 BOM is
// skipped, rows may be ragged and stray quotes are tolerated.
func NewCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

// Importer streams CSV rows into a table in fixed-size batches.
type Importer struct {
	store     Store
	batchSize int
}

// NewImporter returns an Importer. A non-positive batchSize selects
// DefaultBatchSize.
func NewImporter(store Store, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{store: store, batchSize: batchSize}
}

// Import applies plan to table and inserts every remaining row of rows.
//
// Rows shorter than the plan are padded with NULLs and longer rows are
// truncated; no row is rejected for its width. Each batch is one atomic
// ExecuteMany. Batches are not grouped in a transaction, so when a batch
// fails the earlier ones stay committed; their row count is returned with
// the error.
func (im *Importer) Import(ctx context.Context, table string, rows RowReader, plan Plan) (int64, error) {
	logger := logging.FromContext(ctx)

	if plan.Action == ActionCreate {
		if _, err := im.store.Execute(ctx, CreateTableSQL(table, plan)); err != nil {
			return 0, fmt.Errorf("failed to create table %s: %w", ident.Quote(table), err)
		}
		logger.Info("table created", "columns", len(plan.Columns))
	}

	width := len(plan.Columns)
	insertSQL := InsertSQL(table, plan.Names())

	var inserted int64
	batch := make([][]any, 0, im.batchSize)

	flush := func() error {
		if err := im.store.ExecuteMany(ctx, insertSQL, batch); err != nil {
			return fmt.Errorf("failed to insert batch after %d rows: %w", inserted, err)
		}
		inserted += int64(len(batch))
		logger.Debug("batch committed", "batch_rows", len(batch), "total_rows", inserted)
		batch = make([][]any, 0, im.batchSize)
		return nil
	}

	for {
		record, err := rows.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return inserted, fmt.Errorf("failed to read CSV row: %w", err)
		}

		batch = append(batch, fitRow(record, width))
		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return inserted, err
			}
		}
	}

	if len(batch) > 0 {
		if err := flush(); err != nil {
			return inserted, err
		}
	}

	return inserted, nil
}

// fitRow pads record with NULLs or truncates it to width cells.
func fitRow(record []string, width int) []any {
	row := make([]any, width)
	for i := range row {
		if i < len(record) {
			row[i] = record[i]
		}
	}
	return row
}
