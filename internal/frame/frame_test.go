package frame

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddColumn(t *testing.T) {
	f := New(3)

	require.NoError(t, f.AddColumn("Time", []float64{0, 1, 2}))
	require.NoError(t, f.AddColumn("acc_x", []float64{0.1, 0.2, 0.3}))

	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, []string{"Time", "acc_x"}, f.Columns())
	assert.True(t, f.HasColumn("acc_x"))
	assert.False(t, f.HasColumn("acc_y"))

	t.Run("length mismatch", func(t *testing.T) {
		err := f.AddColumn("bad", []float64{1})
		assert.Error(t, err)
	})

	t.Run("duplicate name", func(t *testing.T) {
		err := f.AddColumn("acc_x", []float64{1, 2, 3})
		assert.Error(t, err)
	})
}

func TestFeatureColumns(t *testing.T) {
	f := New(1)
	require.NoError(t, f.AddColumn("Time", []float64{0}))
	require.NoError(t, f.AddColumn("acc_x", []float64{1}))
	require.NoError(t, f.AddColumn("gyro_z", []float64{2}))

	assert.Equal(t, []string{"acc_x", "gyro_z"}, f.FeatureColumns())
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, f *Frame)
	}{
		{
			name:  "basic numeric csv",
			input: "Time,acc_x\n0.0,1.5\n0.1,2.5\n",
			check: func(t *testing.T, f *Frame) {
				assert.Equal(t, 2, f.NumRows())
				assert.Equal(t, []float64{0.0, 0.1}, f.Column("Time"))
				assert.Equal(t, []float64{1.5, 2.5}, f.Column("acc_x"))
			},
		},
		{
			name:  "missing cells become NaN",
			input: "Time,acc_x\n0.0,\n0.1,NaN\n0.2,na\n",
			check: func(t *testing.T, f *Frame) {
				vals := f.Column("acc_x")
				require.Len(t, vals, 3)
				for i, v := range vals {
					assert.True(t, math.IsNaN(v), "row %d should be NaN", i)
				}
			},
		},
		{
			name:  "short records pad with NaN",
			input: "Time,acc_x,acc_y\n0.0,1.0\n",
			check: func(t *testing.T, f *Frame) {
				require.Equal(t, 1, f.NumRows())
				assert.Equal(t, 1.0, f.Column("acc_x")[0])
				assert.True(t, math.IsNaN(f.Column("acc_y")[0]))
			},
		},
		{
			name:  "extra fields are ignored",
			input: "Time,acc_x\n0.0,1.0,9.9\n",
			check: func(t *testing.T, f *Frame) {
				assert.Equal(t, []string{"Time", "acc_x"}, f.Columns())
				assert.Equal(t, 1.0, f.Column("acc_x")[0])
			},
		},
		{
			name:  "label column is read as labels",
			input: "Time,acc_x,label\n0.0,1.0,NotReady\n0.1,2.0,Ready\n",
			check: func(t *testing.T, f *Frame) {
				assert.Equal(t, []string{"Time", "acc_x"}, f.Columns())
				assert.Equal(t, []string{"NotReady", "Ready"}, f.Labels())
			},
		},
		{
			name:  "headers are trimmed",
			input: "Time, acc_x\n0.0,1.0\n",
			check: func(t *testing.T, f *Frame) {
				assert.True(t, f.HasColumn("acc_x"))
			},
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "non-numeric cell",
			input:   "Time,acc_x\n0.0,hello\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ReadCSV(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, f)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	f := New(2)
	require.NoError(t, f.AddColumn("Time", []float64{0, 0.5}))
	require.NoError(t, f.AddColumn("acc_x", []float64{1.25, math.NaN()}))
	require.NoError(t, f.SetLabels([]string{"NotReady", "Ready"}))

	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Time,acc_x,label", lines[0])
	assert.Equal(t, "0,1.25,NotReady", lines[1])
	assert.Equal(t, "0.5,,Ready", lines[2])
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := New(3)
	require.NoError(t, f.AddColumn("Time", []float64{0, 1, 2}))
	require.NoError(t, f.AddColumn("acc_x", []float64{-0.5, math.NaN(), 1e6}))
	require.NoError(t, f.SetLabels([]string{"NotReady", "Whisking", "Ready"}))

	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)

	assert.Equal(t, f.Columns(), got.Columns())
	assert.Equal(t, -0.5, got.Column("acc_x")[0])
	assert.True(t, math.IsNaN(got.Column("acc_x")[1]))
	assert.Equal(t, 1e6, got.Column("acc_x")[2])
	assert.Equal(t, f.Labels(), got.Labels())
}
