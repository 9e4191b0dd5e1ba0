// Package warehouse imports CSV files into tables of the embedded store and
// exports tables back to CSV.
//
// A Session binds one open store to the import and export engine. Import
// runs in three steps: the Reconciler decides whether to create the table,
// append to it or fail; the Importer then streams rows in batches; the
// Exporter writes a table back out in the column order the store returns.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/JayJamieson/csv-warehouse/pkg/db"
	"github.com/JayJamieson/csv-warehouse/pkg/ident"
	"github.com/JayJamieson/csv-warehouse/pkg/logging"
	"github.com/JayJamieson/csv-warehouse/pkg/models"
	"github.com/google/uuid"
)

// Config tunes a Session.
type Config struct {
	// BatchSize is the number of rows per bulk insert (default 500).
	BatchSize int
	// Inferrer answers type inference requests; nil disables inference.
	Inferrer Inferrer
	// BusyTimeout is passed to the store when Open creates it.
	BusyTimeout time.Duration
}

// ImportOptions controls a single CSV import.
type ImportOptions struct {
	CreateIfMissing bool
	// Replace drops the table before creating it from the CSV.
	Replace bool
	// CheckTypes asks the inferrer for column types instead of TEXT.
	CheckTypes bool
	// Filename is recorded in the import record; defaults to the path's
	// base name.
	Filename string
}

// Session owns a store handle. Its operations are serialized, so two
// callers never interleave statements on the handle.
type Session struct {
	mu         sync.Mutex
	store      *db.DB
	reconciler *Reconciler
	importer   *Importer
	exporter   *Exporter
}

// Open opens the store at addr and wraps it in a Session.
func Open(addr string, cfg Config) (*Session, error) {
	store, err := db.New(addr, db.WithBusyTimeout(cfg.BusyTimeout))
	if err != nil {
		return nil, err
	}
	return NewSession(store, cfg), nil
}

// NewSession wraps an already open store. The Session takes ownership.
func NewSession(store *db.DB, cfg Config) *Session {
	return &Session{
		store:      store,
		reconciler: NewReconciler(cfg.Inferrer),
		importer:   NewImporter(store, cfg.BatchSize),
		exporter:   NewExporter(store),
	}
}

// Address returns the store address.
func (s *Session) Address() db.Address {
	return s.store.Address()
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Close()
}

// Execute runs a write statement and returns the last inserted row id.
func (s *Session) Execute(ctx context.Context, stmt string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Execute(ctx, stmt, args...)
}

// ExecuteMany runs stmt for every argument set in one transaction.
func (s *Session) ExecuteMany(ctx context.Context, stmt string, argSets [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ExecuteMany(ctx, stmt, argSets)
}

// Query runs a read statement and returns all rows.
func (s *Session) Query(ctx context.Context, stmt string, args ...any) (*db.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Query(ctx, stmt, args...)
}

// Schemas returns a fresh snapshot of every table's columns.
func (s *Session) Schemas(ctx context.Context) (models.SchemaSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Schemas(ctx)
}

// ExportTable writes table to a CSV file at path.
func (s *Session) ExportTable(ctx context.Context, table, path string, includeHeader bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.exporter.ExportFile(ctx, table, path, includeHeader); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("table exported", "table", table, "path", path)
	return nil
}

// ImportCSV imports the CSV at path into table, using its first row as
// headers. An empty file imports nothing and touches no table.
//
// With Replace set the table is reconciled as if it were absent and dropped
// right before it is recreated, so a failed reconciliation leaves it intact.
func (s *Session) ImportCSV(ctx context.Context, path, table string, opts ImportOptions) (*models.ImportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &models.ImportRecord{
		ID:        uuid.New().String(),
		Filename:  opts.Filename,
		TableName: table,
		StartedAt: time.Now().UTC(),
	}
	if record.Filename == "" {
		record.Filename = filepath.Base(path)
	}

	logger := logging.WithFields(ctx, "import_id", record.ID, "table", table)
	ctx = logging.NewContext(ctx, logger)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	logger.Info("import started", "path", path,
		"create_if_missing", opts.CreateIfMissing, "replace", opts.Replace, "check_types", opts.CheckTypes)

	reader := NewCSVReader(f)
	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		logger.Info("import skipped, CSV is empty")
		record.DurationMS = elapsedMS(record.StartedAt)
		return record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var existing []string
	if !opts.Replace {
		if existing, err = s.store.TableColumns(ctx, table); err != nil {
			return nil, err
		}
	}

	plan, err := s.reconciler.Reconcile(ctx, ReconcileInput{
		Table:           table,
		CSVPath:         path,
		Headers:         headers,
		Existing:        existing,
		CreateIfMissing: opts.CreateIfMissing,
		UseInference:    opts.CheckTypes,
	})
	if err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}
	logger.Info("import planned", "action", plan.Action.String(), "columns", len(plan.Columns))

	if opts.Replace {
		if _, err := s.store.Execute(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", ident.Quote(table))); err != nil {
			return nil, fmt.Errorf("failed to drop table %s: %w", ident.Quote(table), err)
		}
	}

	rows, err := s.importer.Import(ctx, table, reader, plan)
	record.Rows = rows
	record.Created = plan.Action == ActionCreate
	record.DurationMS = elapsedMS(record.StartedAt)
	if err != nil {
		logger.Error("import failed", "rows_committed", rows, "error", err)
		return record, err
	}

	logger.Info("import completed", "rows", rows, "duration_ms", record.DurationMS)
	return record, nil
}

// DeleteDatabaseFile removes the store file at path. It reports false,
// without error, when there is no plain file to delete.
func DeleteDatabaseFile(path string) (bool, error) {
	return db.DeleteFile(path)
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
