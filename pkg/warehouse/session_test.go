package warehouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JayJamieson/csv-warehouse/pkg/db"
	"github.com/JayJamieson/csv-warehouse/pkg/infer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "warehouse.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeTestCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func countRows(t *testing.T, s *Session, table string) int64 {
	t.Helper()
	res, err := s.Query(context.Background(), fmt.Sprintf("SELECT COUNT(*) FROM %q", table))
	require.NoError(t, err)
	return res.Rows[0][0].(int64)
}

func TestImportCSV_FreshTableAllText(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()

	var b strings.Builder
	b.WriteString("id,unit price,name\n")
	for i := 0; i < 1234; i++ {
		fmt.Fprintf(&b, "%d,%d.5,item %d\n", i, i, i)
	}
	path := writeTestCSV(t, b.String())

	rec, err := s.ImportCSV(ctx, path, "items", ImportOptions{CreateIfMissing: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1234), rec.Rows)
	assert.True(t, rec.Created)
	assert.Equal(t, "data.csv", rec.Filename)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1234), countRows(t, s, "items"))

	snapshot, err := s.Schemas(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot["items"], 3)
	assert.Equal(t, "unit_price", snapshot["items"][1].Name)
	for _, col := range snapshot["items"] {
		assert.Equal(t, "TEXT", col.Type)
	}
}

func TestImportCSV_EmptyFile(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()

	rec, err := s.ImportCSV(ctx, writeTestCSV(t, ""), "items", ImportOptions{CreateIfMissing: true, Replace: true})
	require.NoError(t, err)
	assert.Zero(t, rec.Rows)
	assert.False(t, rec.Created)

	cols, err := s.store.TableColumns(ctx, "items")
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestImportCSV_FileNotFound(t *testing.T) {
	s := newTestSession(t, Config{})

	_, err := s.ImportCSV(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), "items", ImportOptions{CreateIfMissing: true})
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestImportCSV_CaseInsensitiveExistingTable(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()

	_, err := s.Execute(ctx, "CREATE TABLE t (a TEXT, b TEXT, c TEXT)")
	require.NoError(t, err)

	rec, err := s.ImportCSV(ctx, writeTestCSV(t, "A,b,C\n1,2,3\n4,5,6\n"), "t", ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Rows)
	assert.False(t, rec.Created)

	res, err := s.Query(ctx, "SELECT a, b, c FROM t ORDER BY a")
	require.NoError(t, err)
	assert.Equal(t, []db.Row{{"1", "2", "3"}, {"4", "5", "6"}}, res.Rows)
}

func TestImportCSV_ColumnMismatch(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()

	_, err := s.Execute(ctx, "CREATE TABLE t (a TEXT, b TEXT)")
	require.NoError(t, err)

	_, err = s.ImportCSV(ctx, writeTestCSV(t, "a,b,c\n1,2,3\n"), "t", ImportOptions{CreateIfMissing: true})
	assert.ErrorIs(t, err, ErrColumnMismatch)
	assert.Zero(t, countRows(t, s, "t"))
}

func TestImportCSV_TableMissing(t *testing.T) {
	s := newTestSession(t, Config{})

	_, err := s.ImportCSV(context.Background(), writeTestCSV(t, "a\n1\n"), "t", ImportOptions{})
	assert.ErrorIs(t, err, ErrTableMissing)
}

func TestImportCSV_PadAndTruncate(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()

	_, err := s.ImportCSV(ctx, writeTestCSV(t, "a,b,c\n1,2\n5,6,7,8\n"), "t", ImportOptions{CreateIfMissing: true})
	require.NoError(t, err)

	res, err := s.Query(ctx, "SELECT a, b, c FROM t ORDER BY a")
	require.NoError(t, err)
	assert.Equal(t, []db.Row{{"1", "2", nil}, {"5", "6", "7"}}, res.Rows)
}

func TestImportCSV_ReplaceRecreatesTable(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()

	_, err := s.Execute(ctx, "CREATE TABLE t (old TEXT)")
	require.NoError(t, err)
	_, err = s.Execute(ctx, "INSERT INTO t VALUES ('x')")
	require.NoError(t, err)

	rec, err := s.ImportCSV(ctx, writeTestCSV(t, "a,b\n1,2\n"), "t", ImportOptions{CreateIfMissing: true, Replace: true})
	require.NoError(t, err)
	assert.True(t, rec.Created)

	cols, err := s.store.TableColumns(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cols)
	assert.Equal(t, int64(1), countRows(t, s, "t"))
}

func TestImportCSV_ReplaceKeepsTableWhenReconcileFails(t *testing.T) {
	s := newTestSession(t, Config{Inferrer: infer.NewClient(filepath.Join(t.TempDir(), "absent"), 0)})
	ctx := context.Background()

	_, err := s.Execute(ctx, "CREATE TABLE t (old TEXT)")
	require.NoError(t, err)

	_, err = s.ImportCSV(ctx, writeTestCSV(t, "a\n1\n"), "t", ImportOptions{CreateIfMissing: true, Replace: true, CheckTypes: true})
	require.ErrorIs(t, err, infer.ErrHelperNotFound)

	cols, err := s.store.TableColumns(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, cols)
}

func TestImportCSV_HelperAbsentCreatesNothing(t *testing.T) {
	s := newTestSession(t, Config{Inferrer: infer.NewClient(filepath.Join(t.TempDir(), "csv_type_infer"), 0)})
	ctx := context.Background()

	_, err := s.ImportCSV(ctx, writeTestCSV(t, "id,price\n1,2.5\n"), "items", ImportOptions{CreateIfMissing: true, CheckTypes: true})
	require.ErrorIs(t, err, infer.ErrHelperNotFound)

	snapshot, err := s.Schemas(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestImportCSV_InferredTypes(t *testing.T) {
	inf := &fakeInferrer{result: &infer.Result{Columns: []string{"id", "price"}, Types: []string{"INTEGER", "REAL"}}}
	s := newTestSession(t, Config{Inferrer: inf})
	ctx := context.Background()

	path := writeTestCSV(t, "id,price\n1,2.5\n2,3\n")
	rec, err := s.ImportCSV(ctx, path, "items", ImportOptions{CreateIfMissing: true, CheckTypes: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Rows)
	assert.Equal(t, []string{path}, inf.calls)

	snapshot, err := s.Schemas(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INTEGER", snapshot["items"][0].Type)
	assert.Equal(t, "REAL", snapshot["items"][1].Type)

	res, err := s.Query(ctx, "SELECT id, price FROM items ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []db.Row{{int64(1), 2.5}, {int64(2), 3.0}}, res.Rows)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestSession(t, Config{})
	ctx := context.Background()

	input := "id,name,note\n1,alpha,\"has, comma\"\n2,beta,\"line\nbreak\"\n3,gamma,\"quote \"\"q\"\"\"\n"
	_, err := src.ImportCSV(ctx, writeTestCSV(t, input), "items", ImportOptions{CreateIfMissing: true})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "items.csv")
	require.NoError(t, src.ExportTable(ctx, "items", out, true))

	dst := newTestSession(t, Config{})
	rec, err := dst.ImportCSV(ctx, out, "items", ImportOptions{CreateIfMissing: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Rows)

	want, err := src.Query(ctx, "SELECT * FROM items ORDER BY id")
	require.NoError(t, err)
	got, err := dst.Query(ctx, "SELECT * FROM items ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, want.Names(), got.Names())
	assert.Equal(t, want.Rows, got.Rows)
}

func TestExportTable_Missing(t *testing.T) {
	s := newTestSession(t, Config{})
	out := filepath.Join(t.TempDir(), "out.csv")

	err := s.ExportTable(context.Background(), "nope", out, true)
	require.ErrorIs(t, err, ErrTableMissing)
	assert.ErrorIs(t, err, db.ErrStoreOperation)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no file is created for a missing table")
}

func TestExportTable_WithoutHeader(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()

	_, err := s.Execute(ctx, "CREATE TABLE t (n INTEGER, r REAL, s TEXT)")
	require.NoError(t, err)
	_, err = s.Execute(ctx, "INSERT INTO t VALUES (1, 0.25, NULL)")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "t.csv")
	require.NoError(t, s.ExportTable(ctx, "t", out, false))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "1,0.25,\n", string(data))
}

func TestDeleteDatabaseFile_Missing(t *testing.T) {
	deleted, err := DeleteDatabaseFile(filepath.Join(t.TempDir(), "missing.db"))
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestImportCSV_BlankLinesSkipped(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()

	rec, err := s.ImportCSV(ctx, writeTestCSV(t, "a,b\n1,2\n\n3,4\n"), "t", ImportOptions{CreateIfMissing: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Rows)

	res, err := s.Query(ctx, "SELECT a, b FROM t ORDER BY a")
	require.NoError(t, err)
	assert.Equal(t, []db.Row{{"1", "2"}, {"3", "4"}}, res.Rows)
}

func TestImportCSV_ReplaceWithoutCreateKeepsTable(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()

	_, err := s.Execute(ctx, "CREATE TABLE t (a TEXT)")
	require.NoError(t, err)
	_, err = s.Execute(ctx, "INSERT INTO t VALUES ('kept')")
	require.NoError(t, err)

	_, err = s.ImportCSV(ctx, writeTestCSV(t, "a\n1\n"), "t", ImportOptions{Replace: true})
	require.ErrorIs(t, err, ErrTableMissing)

	cols, err := s.store.TableColumns(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cols)
	assert.Equal(t, int64(1), countRows(t, s, "t"))
}
