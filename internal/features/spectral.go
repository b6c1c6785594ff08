package features

import (
	"fmt"
	"math"

	"github.com/mixsense-labs/mixsense/internal/frame"
)

// minSpectralPoints is the smallest window worth transforming; shorter
// windows yield zero features.
const minSpectralPoints = 10

// SpectralFeatures adds <col>_dom_freq and <col>_dom_mag: the dominant
// non-DC frequency (in cycles per sample) and its magnitude, computed
// from the real-input discrete Fourier transform of a trailing window.
func SpectralFeatures(f *frame.Frame, window int, cols []string) error {
	n := f.NumRows()
	for _, col := range cols {
		src := f.Column(col)
		if src == nil {
			return fmt.Errorf("column %s not found", col)
		}

		domFreq := make([]float64, n)
		domMag := make([]float64, n)

		for i := 0; i < n; i++ {
			start := i - window + 1
			if start < 0 {
				start = 0
			}
			slice := src[start : i+1]
			if len(slice) <= minSpectralPoints {
				continue
			}
			freq, mag := dominantFrequency(slice)
			domFreq[i] = freq
			domMag[i] = mag
		}

		if err := f.AddColumn(col+"_dom_freq", domFreq); err != nil {
			return err
		}
		if err := f.AddColumn(col+"_dom_mag", domMag); err != nil {
			return err
		}
	}
	return nil
}

// dominantFrequency returns the frequency bin (k/n cycles per sample)
// with the largest magnitude in the one-sided spectrum, skipping the DC
// component. NaN samples contribute as zero.
func dominantFrequency(signal []float64) (freq, mag float64) {
	n := len(signal)
	half := n / 2

	bestK := -1
	bestMag := 0.0
	for k := 1; k <= half; k++ {
		re, im := 0.0, 0.0
		w := -2 * math.Pi * float64(k) / float64(n)
		for t, v := range signal {
			if math.IsNaN(v) {
				continue
			}
			angle := w * float64(t)
			re += v * math.Cos(angle)
			im += v * math.Sin(angle)
		}
		m := math.Hypot(re, im)
		if bestK < 0 || m > bestMag {
			bestK = k
			bestMag = m
		}
	}

	if bestK < 0 {
		return 0, 0
	}
	return float64(bestK) / float64(n), bestMag
}
