package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/JayJamieson/csv-warehouse/pkg/infer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,price,name,blank\n1,2.5,x,\n2,3,y,\n"), 0644))

	var stdout, stderr bytes.Buffer
	code := run(path, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.JSONEq(t, `{"columns":["id","price","name","blank"],"types":["INTEGER","REAL","TEXT","TEXT"]}`, stdout.String())

	// The output is exactly what the inference client accepts.
	res, err := infer.ParseOutput(stdout.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"INTEGER", "REAL", "TEXT", "TEXT"}, res.Types)
}

func TestRun_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run(path, &stdout, &stderr))
	assert.JSONEq(t, `{"columns":[],"types":[]}`, stdout.String())
}

func TestRun_Unreadable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(filepath.Join(t.TempDir(), "missing.csv"), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "csv_type_infer:")
}
