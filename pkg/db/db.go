package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/JayJamieson/csv-warehouse/pkg/ident"
	"github.com/JayJamieson/csv-warehouse/pkg/models"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

const defaultBusyTimeout = 5 * time.Second

// DB is the store facade. It owns the single connection to the embedded
// engine and serializes every statement issued through it.
type DB struct {
	mu   sync.Mutex
	conn *sql.DB
	addr Address
}

// Option configures New.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets how long the engine waits on a locked database file.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// New opens the store at addr. Plain file paths get their parent directory
// created so the engine can create the file.
func New(addr string, opts ...Option) (*DB, error) {
	o := options{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	a, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}

	if a.FileBacked() {
		if err := os.MkdirAll(filepath.Dir(a.Raw), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	var conn *sql.DB
	switch a.Kind {
	case KindRemote:
		conn, err = sql.Open("libsql", a.Raw)
	default:
		conn, err = sql.Open(sqliteDriver, sqliteDSN(a.Raw, o.busyTimeout))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: statements never interleave and :memory: stores stay
	// a single database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn, addr: a}, nil
}

// Address returns the address the store was opened with.
func (db *DB) Address() Address {
	return db.addr
}

func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Execute runs a single write statement in auto-commit mode and returns the
// last inserted row id (0 when the statement inserted nothing).
func (db *DB) Execute(ctx context.Context, stmt string, args ...any) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, opError("execute", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		// Not every driver reports it; the write itself succeeded.
		return 0, nil
	}
	return id, nil
}

// ExecuteMany runs stmt once per argument set inside one transaction. Either
// every set is applied or none is.
func (db *DB) ExecuteMany(ctx context.Context, stmt string, argSets [][]any) (err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return opError("begin transaction", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return opError("prepare statement", err)
	}
	defer prepared.Close()

	for i, args := range argSets {
		if _, err = prepared.ExecContext(ctx, args...); err != nil {
			return opError(fmt.Sprintf("execute argument set %d", i), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return opError("commit transaction", err)
	}
	return nil
}

// Query runs a read statement and returns every row. Column names and order
// come from the result set itself.
func (db *DB) Query(ctx context.Context, stmt string, args ...any) (*Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	startTime := time.Now()

	rows, err := db.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, opError("query", err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, opError("get columns", err)
	}

	result := &Result{Columns: make([]Column, len(columnTypes))}
	for i, ct := range columnTypes {
		result.Columns[i] = Column{Name: ct.Name(), DatabaseType: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		values := make([]any, len(columnTypes))

		scanArgs := make([]any, len(columnTypes))
		for i := range values {
			scanArgs[i] = &values[i]
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, opError("scan row", err)
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, Row(values))
	}

	if err := rows.Err(); err != nil {
		return nil, opError("iterate rows", err)
	}

	result.Elapsed = time.Since(startTime)
	return result, nil
}

// TableColumns returns the ordered column names of table. A table that does
// not exist yields an empty slice and no error.
func (db *DB) TableColumns(ctx context.Context, table string) ([]string, error) {
	cols, err := db.tableInfo(ctx, table)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}

// Schemas reads every table in the catalog together with its column
// descriptors. The snapshot is rebuilt on every call.
func (db *DB) Schemas(ctx context.Context) (models.SchemaSnapshot, error) {
	tables, err := db.Query(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, err
	}

	snapshot := make(models.SchemaSnapshot, len(tables.Rows))
	for _, row := range tables.Rows {
		name := fmt.Sprint(row[0])
		cols, err := db.tableInfo(ctx, name)
		if err != nil {
			return nil, err
		}
		snapshot[name] = cols
	}
	return snapshot, nil
}

func (db *DB) tableInfo(ctx context.Context, table string) ([]models.ColumnInfo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", ident.Quote(table)))
	if err != nil {
		return nil, opError("get table info", err)
	}
	defer rows.Close()

	var columns []models.ColumnInfo
	for rows.Next() {
		var (
			col     models.ColumnInfo
			notNull int64
			pk      int64
		)
		if err := rows.Scan(&col.CID, &col.Name, &col.Type, &notNull, &col.DefaultVal, &pk); err != nil {
			return nil, opError("scan column info", err)
		}
		if b, ok := col.DefaultVal.([]byte); ok {
			col.DefaultVal = string(b)
		}
		col.NotNull = notNull != 0
		col.PK = pk > 0
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, opError("iterate column rows", err)
	}
	return columns, nil
}
