package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixsense-labs/mixsense/internal/frame"
)

func newFrame(t *testing.T, times, values []float64) *frame.Frame {
	t.Helper()
	f := frame.New(len(times))
	require.NoError(t, f.AddColumn(frame.TimeColumn, times))
	require.NoError(t, f.AddColumn("acc_x", values))
	return f
}

func TestRollingStatistics(t *testing.T) {
	f := newFrame(t,
		[]float64{0, 1, 2, 3},
		[]float64{1, 2, 3, 4},
	)

	require.NoError(t, RollingStatistics(f, 3, []string{"acc_x"}))

	assert.Equal(t, []float64{1, 1.5, 2, 3}, f.Column("acc_x_rolling_mean"))
	assert.Equal(t, []float64{1, 1, 1, 2}, f.Column("acc_x_rolling_min"))
	assert.Equal(t, []float64{1, 2, 3, 4}, f.Column("acc_x_rolling_max"))

	std := f.Column("acc_x_rolling_std")
	assert.Equal(t, 0.0, std[0], "single point has zero sample std")
	assert.InDelta(t, math.Sqrt(0.5), std[1], 1e-12)
	assert.InDelta(t, 1.0, std[2], 1e-12)
	assert.InDelta(t, 1.0, std[3], 1e-12)
}

func TestRollingStatisticsSkipsNaN(t *testing.T) {
	f := newFrame(t,
		[]float64{0, 1, 2},
		[]float64{1, math.NaN(), 3},
	)

	require.NoError(t, RollingStatistics(f, 3, []string{"acc_x"}))

	mean := f.Column("acc_x_rolling_mean")
	assert.Equal(t, 1.0, mean[1], "NaN does not contribute to the mean")
	assert.Equal(t, 2.0, mean[2])
}

func TestRollingStatisticsUnknownColumn(t *testing.T) {
	f := newFrame(t, []float64{0}, []float64{1})
	assert.Error(t, RollingStatistics(f, 3, []string{"missing"}))
}

func TestDerivatives(t *testing.T) {
	// Position grows quadratically: velocity rises, acceleration constant.
	f := newFrame(t,
		[]float64{0, 1, 2, 3},
		[]float64{0, 1, 4, 9},
	)

	require.NoError(t, Derivatives(f, []string{"acc_x"}))

	d1 := f.Column("acc_x_deriv1")
	assert.Equal(t, []float64{0, 1, 3, 5}, d1, "first row is 0, then delta over dt")

	d2 := f.Column("acc_x_deriv2")
	assert.Equal(t, []float64{0, 0, 2, 2}, d2, "second difference needs two prior deltas")
}

func TestDerivativesSecondRowOfDeriv2IsUndefined(t *testing.T) {
	// deriv1 has no value at row 0, so deriv2 at row 1 has nothing to
	// difference against and stays 0 rather than deriv1[1]/dt.
	f := newFrame(t,
		[]float64{0, 1, 2},
		[]float64{0, 10, 10},
	)

	require.NoError(t, Derivatives(f, []string{"acc_x"}))

	d2 := f.Column("acc_x_deriv2")
	assert.Equal(t, 0.0, d2[1])
	assert.Equal(t, -10.0, d2[2])
}

func TestDerivativesZeroTimeStep(t *testing.T) {
	f := newFrame(t,
		[]float64{0, 0, 1},
		[]float64{0, 5, 6},
	)

	require.NoError(t, Derivatives(f, []string{"acc_x"}))

	d1 := f.Column("acc_x_deriv1")
	assert.Equal(t, 0.0, d1[1], "zero dt yields 0 instead of infinity")
	assert.Equal(t, 1.0, d1[2])
}

func TestDerivativesRequireTime(t *testing.T) {
	f := frame.New(2)
	require.NoError(t, f.AddColumn("acc_x", []float64{1, 2}))

	assert.Error(t, Derivatives(f, []string{"acc_x"}))
}

func TestSpectralFeaturesSine(t *testing.T) {
	// 64 samples of a sine with period 8 samples: dominant frequency 1/8.
	n := 64
	times := make([]float64, n)
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i)
		values[i] = math.Sin(2 * math.Pi * float64(i) / 8)
	}
	f := newFrame(t, times, values)

	require.NoError(t, SpectralFeatures(f, n, []string{"acc_x"}))

	freq := f.Column("acc_x_dom_freq")
	mag := f.Column("acc_x_dom_mag")

	assert.InDelta(t, 1.0/8.0, freq[n-1], 1e-9, "full window resolves the sine period")
	assert.Greater(t, mag[n-1], 0.0)
}

func TestSpectralFeaturesShortWindow(t *testing.T) {
	f := newFrame(t,
		[]float64{0, 1, 2, 3, 4},
		[]float64{1, 2, 1, 2, 1},
	)

	require.NoError(t, SpectralFeatures(f, 100, []string{"acc_x"}))

	// Fewer points than the spectral minimum: features stay zero.
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, f.Column("acc_x_dom_freq"))
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, f.Column("acc_x_dom_mag"))
}

func TestEngineer(t *testing.T) {
	f := newFrame(t,
		[]float64{0, 1, 2, 3},
		[]float64{1, 2, 3, 4},
	)

	opts := Options{Rolling: true, Derivatives: true, Window: 2}
	require.NoError(t, Engineer(f, opts))

	want := []string{
		"acc_x_rolling_mean", "acc_x_rolling_std",
		"acc_x_rolling_min", "acc_x_rolling_max",
		"acc_x_deriv1", "acc_x_deriv2",
	}
	for _, col := range want {
		assert.True(t, f.HasColumn(col), "expected column %s", col)
	}
	assert.False(t, f.HasColumn("acc_x_dom_freq"), "spectral features are opt-in")

	// Derived columns never become sources for further features.
	assert.False(t, f.HasColumn("acc_x_rolling_mean_deriv1"))
}

func TestEngineerDefaultWindow(t *testing.T) {
	f := newFrame(t, []float64{0, 1}, []float64{1, 2})

	require.NoError(t, Engineer(f, Options{Rolling: true, Window: 0}))

	assert.True(t, f.HasColumn("acc_x_rolling_mean"))
}
