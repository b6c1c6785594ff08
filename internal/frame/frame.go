// Package frame provides a column-oriented table for sensor time series.
// Numeric columns are float64 slices with NaN marking missing values; an
// optional string label column rides alongside.
package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// TimeColumn is the name of the timestamp column every session carries.
const TimeColumn = "Time"

// LabelColumn is the name of the label column added during preprocessing.
const LabelColumn = "label"

// Frame holds named float64 columns of equal length plus an optional
// label column.
type Frame struct {
	cols   []string
	data   map[string][]float64
	labels []string
	rows   int
}

// New creates an empty frame with the given row count.
func New(rows int) *Frame {
	return &Frame{
		data: make(map[string][]float64),
		rows: rows,
	}
}

// NumRows returns the number of rows in the frame.
func (f *Frame) NumRows() int {
	return f.rows
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// HasColumn reports whether a numeric column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns the values of a numeric column, or nil if absent.
// The returned slice is the backing storage; callers that mutate it
// mutate the frame.
func (f *Frame) Column(name string) []float64 {
	return f.data[name]
}

// AddColumn appends a numeric column. The length must match the frame's
// row count and the name must be unused.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != f.rows {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(values), f.rows)
	}
	if _, exists := f.data[name]; exists {
		return fmt.Errorf("column %s already exists", name)
	}
	f.cols = append(f.cols, name)
	f.data[name] = values
	return nil
}

// SetLabels attaches the label column.
func (f *Frame) SetLabels(labels []string) error {
	if len(labels) != f.rows {
		return fmt.Errorf("label column has %d values, frame has %d rows", len(labels), f.rows)
	}
	f.labels = labels
	return nil
}

// Labels returns the label column, or nil when none is set.
func (f *Frame) Labels() []string {
	return f.labels
}

// FeatureColumns returns all numeric columns except Time, preserving order.
func (f *Frame) FeatureColumns() []string {
	var out []string
	for _, c := range f.cols {
		if c != TimeColumn {
			out = append(out, c)
		}
	}
	return out
}

// missing values in CSV cells: empty, NA, NaN (case-insensitive)
func isMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}

// ReadCSV parses a headered CSV into a frame. A column named label is
// read as the label column; every other column must be numeric. Missing
// cells become NaN, and short records are padded with NaN.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // tolerate ragged rows, pad below

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv input")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	labelIdx := -1
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == LabelColumn {
			labelIdx = i
		}
	}

	raw := make([][]float64, len(header))
	var labels []string
	rows := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", rows+2, err)
		}
		for i := range header {
			var cell string
			if i < len(record) {
				cell = record[i]
			}
			if i == labelIdx {
				labels = append(labels, strings.TrimSpace(cell))
				continue
			}
			if isMissing(cell) {
				raw[i] = append(raw[i], math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", rows+2, header[i], err)
			}
			raw[i] = append(raw[i], v)
		}
		rows++
	}

	f := New(rows)
	for i, name := range header {
		if i == labelIdx {
			continue
		}
		if err := f.AddColumn(name, raw[i]); err != nil {
			return nil, err
		}
	}
	if labelIdx >= 0 {
		if err := f.SetLabels(labels); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteCSV writes the frame as a headered CSV. NaN values become empty
// cells; the label column, when present, is written last.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := f.Columns()
	if f.labels != nil {
		header = append(header, LabelColumn)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(header))
	for i := 0; i < f.rows; i++ {
		for j, name := range f.cols {
			v := f.data[name][i]
			if math.IsNaN(v) {
				record[j] = ""
			} else {
				record[j] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if f.labels != nil {
			record[len(record)-1] = f.labels[i]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
