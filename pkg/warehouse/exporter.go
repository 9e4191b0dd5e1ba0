package warehouse

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/JayJamieson/csv-warehouse/pkg/db"
	"github.com/JayJamieson/csv-warehouse/pkg/ident"
)

// Exporter writes whole tables out as CSV.
type Exporter struct {
	store Store
}

func NewExporter(store Store) *Exporter {
	return &Exporter{store: store}
}

// Export reads every row of table with one query and writes it to w,
// preceded by a header line when includeHeader is set. Column names and
// order come from the query result.
func (e *Exporter) Export(ctx context.Context, table string, w io.Writer, includeHeader bool) error {
	res, err := e.read(ctx, table)
	if err != nil {
		return err
	}
	return writeCSV(w, res, includeHeader)
}

// ExportFile exports table to the file at path. The file is only created
// once the table has been read.
func (e *Exporter) ExportFile(ctx context.Context, table, path string, includeHeader bool) error {
	res, err := e.read(ctx, table)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}

	if err := writeCSV(f, res, includeHeader); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (e *Exporter) read(ctx context.Context, table string) (*db.Result, error) {
	res, err := e.store.Query(ctx, fmt.Sprintf("SELECT * FROM %s", ident.Quote(table)))
	if err == nil {
		return res, nil
	}

	cols, colErr := e.store.TableColumns(ctx, table)
	if colErr == nil && len(cols) == 0 {
		return nil, fmt.Errorf("%w: %q: %w", ErrTableMissing, table, err)
	}
	return nil, fmt.Errorf("failed to read table %s: %w", ident.Quote(table), err)
}

func writeCSV(w io.Writer, res *db.Result, includeHeader bool) error {
	writer := csv.NewWriter(w)

	if includeHeader {
		if err := writer.Write(res.Names()); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
