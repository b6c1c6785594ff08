// Package prep implements the session preprocessing pipeline: missing
// value imputation, IQR outlier clipping, min-max normalization, and
// label assignment.
package prep

import (
	"math"
	"sort"

	"github.com/mixsense-labs/mixsense/internal/dataset"
	"github.com/mixsense-labs/mixsense/internal/frame"
)

// DefaultLabel is assigned to rows not covered by any label span.
const DefaultLabel = "NotReady"

// Options controls which preprocessing stages run.
type Options struct {
	Clean       bool
	Normalize   bool
	ApplyLabels bool
}

// DefaultOptions enables every stage.
func DefaultOptions() Options {
	return Options{Clean: true, Normalize: true, ApplyLabels: true}
}

// Preprocess runs the configured stages over the frame in place.
func Preprocess(f *frame.Frame, spans []dataset.LabelSpan, opts Options) {
	if opts.Clean {
		Clean(f)
	}
	if opts.Normalize {
		Normalize(f)
	}
	if opts.ApplyLabels && spans != nil {
		ApplyLabels(f, spans)
	}
}

// Clean fills missing values (forward fill, then backward fill for leading
// gaps) on every column and clips outliers to the IQR fences on every
// column except Time.
func Clean(f *frame.Frame) {
	for _, col := range f.Columns() {
		values := f.Column(col)
		forwardFill(values)
		backwardFill(values)
		if col != frame.TimeColumn {
			clipIQR(values)
		}
	}
}

func forwardFill(values []float64) {
	last := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = last
		} else {
			last = v
		}
	}
}

func backwardFill(values []float64) {
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if math.IsNaN(values[i]) {
			values[i] = next
		} else {
			next = values[i]
		}
	}
}

// clipIQR clamps values outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
func clipIQR(values []float64) {
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	if math.IsNaN(q1) || math.IsNaN(q3) {
		return
	}
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr
	for i, v := range values {
		switch {
		case v < lower:
			values[i] = lower
		case v > upper:
			values[i] = upper
		}
	}
}

// Quantile computes the q-th quantile (0..1) with linear interpolation
// between order statistics, ignoring NaN values. Returns NaN for an
// all-NaN or empty input.
func Quantile(values []float64, q float64) float64 {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			xs = append(xs, v)
		}
	}
	if len(xs) == 0 {
		return math.NaN()
	}
	sort.Float64s(xs)

	if q <= 0 {
		return xs[0]
	}
	if q >= 1 {
		return xs[len(xs)-1]
	}

	pos := q * float64(len(xs)-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo+1 >= len(xs) {
		return xs[lo]
	}
	return xs[lo] + frac*(xs[lo+1]-xs[lo])
}

// Normalize scales every column except Time to [0, 1] with min-max
// scaling. Constant columns are left unchanged.
func Normalize(f *frame.Frame) {
	for _, col := range f.Columns() {
		if col == frame.TimeColumn {
			continue
		}
		values := f.Column(col)

		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		if !(maxV > minV) {
			continue
		}

		span := maxV - minV
		for i, v := range values {
			if !math.IsNaN(v) {
				values[i] = (v - minV) / span
			}
		}
	}
}

// ApplyLabels attaches a label column. Every row starts as DefaultLabel;
// spans are applied in file order with inclusive bounds, so a later span
// overrides earlier ones where they overlap.
func ApplyLabels(f *frame.Frame, spans []dataset.LabelSpan) {
	times := f.Column(frame.TimeColumn)
	labels := make([]string, f.NumRows())
	for i := range labels {
		labels[i] = DefaultLabel
	}

	if times != nil {
		for _, span := range spans {
			for i, t := range times {
				if t >= span.Start && t <= span.End() {
					labels[i] = span.Label
				}
			}
		}
	}

	_ = f.SetLabels(labels)
}
