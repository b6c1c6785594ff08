// Package features derives model features from preprocessed sensor
// frames: trailing-window statistics, time derivatives, and optional
// spectral features.
package features

import (
	"fmt"
	"math"

	"github.com/mixsense-labs/mixsense/internal/frame"
)

// DefaultWindow is the trailing window size for rolling statistics.
const DefaultWindow = 20

// spectralWindowFactor scales the rolling window for spectral analysis,
// which needs longer stretches of signal to resolve frequencies.
const spectralWindowFactor = 5

// Options selects which feature families to compute.
type Options struct {
	Rolling     bool
	Derivatives bool
	Spectral    bool
	Window      int
}

// DefaultOptions computes rolling statistics and derivatives. Spectral
// features are opt-in because of their cost.
func DefaultOptions() Options {
	return Options{Rolling: true, Derivatives: true, Spectral: false, Window: DefaultWindow}
}

// Engineer adds the configured feature columns to the frame. Source
// columns are every numeric column except Time, captured before any
// feature columns are appended.
func Engineer(f *frame.Frame, opts Options) error {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	cols := f.FeatureColumns()

	if opts.Rolling {
		if err := RollingStatistics(f, window, cols); err != nil {
			return err
		}
	}
	if opts.Derivatives {
		if err := Derivatives(f, cols); err != nil {
			return err
		}
	}
	if opts.Spectral {
		if err := SpectralFeatures(f, window*spectralWindowFactor, cols); err != nil {
			return err
		}
	}
	return nil
}

// RollingStatistics adds <col>_rolling_mean, _rolling_std, _rolling_min
// and _rolling_max over a trailing window. Windows shorter than the full
// size still produce values (minimum one point); the sample standard
// deviation of fewer than two points is 0.
func RollingStatistics(f *frame.Frame, window int, cols []string) error {
	n := f.NumRows()
	for _, col := range cols {
		src := f.Column(col)
		if src == nil {
			return fmt.Errorf("column %s not found", col)
		}

		mean := make([]float64, n)
		std := make([]float64, n)
		minV := make([]float64, n)
		maxV := make([]float64, n)

		for i := 0; i < n; i++ {
			start := i - window + 1
			if start < 0 {
				start = 0
			}
			mean[i], std[i], minV[i], maxV[i] = windowStats(src[start : i+1])
		}

		if err := f.AddColumn(col+"_rolling_mean", mean); err != nil {
			return err
		}
		if err := f.AddColumn(col+"_rolling_std", std); err != nil {
			return err
		}
		if err := f.AddColumn(col+"_rolling_min", minV); err != nil {
			return err
		}
		if err := f.AddColumn(col+"_rolling_max", maxV); err != nil {
			return err
		}
	}
	return nil
}

// windowStats computes mean, sample std, min and max over a window,
// skipping NaN values.
func windowStats(window []float64) (mean, std, minV, maxV float64) {
	count := 0
	sum := 0.0
	minV, maxV = math.Inf(1), math.Inf(-1)
	for _, v := range window {
		if math.IsNaN(v) {
			continue
		}
		count++
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if count == 0 {
		return math.NaN(), 0, math.NaN(), math.NaN()
	}

	mean = sum / float64(count)
	if count >= 2 {
		var ss float64
		for _, v := range window {
			if math.IsNaN(v) {
				continue
			}
			d := v - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(count-1))
	}
	return mean, std, minV, maxV
}

// Derivatives adds <col>_deriv1 (rate of change over Time) and
// <col>_deriv2 (its rate of change). Undefined values become 0: the
// first row of deriv1, the first two rows of deriv2, and rows with no
// Time increment.
func Derivatives(f *frame.Frame, cols []string) error {
	times := f.Column(frame.TimeColumn)
	if times == nil {
		return fmt.Errorf("column %s not found", frame.TimeColumn)
	}

	n := f.NumRows()
	for _, col := range cols {
		src := f.Column(col)
		if src == nil {
			return fmt.Errorf("column %s not found", col)
		}

		d1 := make([]float64, n)
		d2 := make([]float64, n)
		for i := 1; i < n; i++ {
			dt := times[i] - times[i-1]
			d1[i] = safeRate(src[i]-src[i-1], dt)
		}
		// d1[0] is undefined, not zero, so the second difference only
		// exists from row 2 on.
		for i := 2; i < n; i++ {
			dt := times[i] - times[i-1]
			d2[i] = safeRate(d1[i]-d1[i-1], dt)
		}

		if err := f.AddColumn(col+"_deriv1", d1); err != nil {
			return err
		}
		if err := f.AddColumn(col+"_deriv2", d2); err != nil {
			return err
		}
	}
	return nil
}

func safeRate(delta, dt float64) float64 {
	if dt == 0 || math.IsNaN(delta) || math.IsNaN(dt) {
		return 0
	}
	return delta / dt
}
