package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) *DuckDBAdapter {
	t.Helper()
	a := NewDuckDBAdapter()
	require.NoError(t, a.Connect(context.Background(), Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestConnectAndExec(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Exec(ctx, "CREATE TABLE t (id INTEGER, name VARCHAR)"))
	require.NoError(t, a.Exec(ctx, "INSERT INTO t VALUES (1, 'one'), (2, 'two')"))

	rows, err := a.Query(ctx, "SELECT COUNT(*) FROM t")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var count int
	require.NoError(t, rows.Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, rows.Err())
}

func TestOperationsRequireConnection(t *testing.T) {
	a := NewDuckDBAdapter()
	ctx := context.Background()

	assert.Error(t, a.Exec(ctx, "SELECT 1"))
	_, err := a.Query(ctx, "SELECT 1")
	assert.Error(t, err)
	assert.Error(t, a.LoadCSV(ctx, "t", "file.csv"))
}

func TestLoadCSV(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	csvPath := filepath.Join(t.TempDir(), "data.data")
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("Time,acc_x\n0.0,1.5\n0.1,2.5\n0.2,3.5\n"), 0600))

	require.NoError(t, a.LoadCSV(ctx, "raw_session", csvPath))

	rows, err := a.Query(ctx, "SELECT Time, acc_x FROM raw_session ORDER BY Time")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var times, values []float64
	for rows.Next() {
		var tm, v float64
		require.NoError(t, rows.Scan(&tm, &v))
		times = append(times, tm)
		values = append(values, v)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []float64{0.0, 0.1, 0.2}, times)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, values)

	t.Run("replaces existing table", func(t *testing.T) {
		require.NoError(t, a.LoadCSV(ctx, "raw_session", csvPath))
	})
}

func TestGetTableMetadata(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Exec(ctx, "CREATE TABLE sensors (Time DOUBLE, acc_x DOUBLE)"))
	require.NoError(t, a.Exec(ctx, "INSERT INTO sensors VALUES (0, 1), (1, 2)"))

	meta, err := a.GetTableMetadata(ctx, "sensors")
	require.NoError(t, err)

	assert.Equal(t, "main", meta.Schema)
	assert.Equal(t, "sensors", meta.Name)
	assert.Equal(t, int64(2), meta.RowCount)
	require.Len(t, meta.Columns, 2)
	assert.Equal(t, "Time", meta.Columns[0].Name)

	t.Run("missing table", func(t *testing.T) {
		_, err := a.GetTableMetadata(ctx, "nope")
		assert.Error(t, err)
	})
}

func TestWriteCSV(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Exec(ctx, "CREATE TABLE t AS SELECT 1 AS id, 'one' AS name"))

	outPath := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, a.WriteCSV(ctx, "t", outPath))

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "id,name")
	assert.Contains(t, string(content), "1,one")
}
