package duckinfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JayJamieson/csv-warehouse/pkg/infer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreType(t *testing.T) {
	tests := map[string]string{
		"BIGINT":        infer.TypeInteger,
		"integer":       infer.TypeInteger,
		"BOOLEAN":       infer.TypeInteger,
		"DOUBLE":        infer.TypeReal,
		"DECIMAL(18,3)": infer.TypeReal,
		"VARCHAR":       infer.TypeText,
		"DATE":          infer.TypeText,
		"TIMESTAMP":     infer.TypeText,
		"":              infer.TypeText,
	}

	for in, want := range tests {
		assert.Equal(t, want, StoreType(in), in)
	}
}

func TestInfer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,unit price,name\n1,2.5,widget\n2,3.75,gadget\n"), 0644))

	res, err := New(0).Infer(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "unit_price", "name"}, res.Columns)
	assert.Equal(t, []string{infer.TypeInteger, infer.TypeReal, infer.TypeText}, res.Types)
}

func TestInfer_MissingFile(t *testing.T) {
	_, err := New(0).Infer(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, infer.ErrHelperProcessFailed)
}

func TestNew_DefaultTimeout(t *testing.T) {
	assert.Equal(t, infer.DefaultTimeout, New(0).Timeout())
	assert.Equal(t, 2*time.Second, New(2*time.Second).Timeout())
}

func TestInfer_Timeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\n1\n"), 0644))

	_, err := New(time.Nanosecond).Infer(context.Background(), path)
	require.ErrorIs(t, err, infer.ErrHelperProcessFailed)
	assert.Contains(t, err.Error(), "timed out")
}
