package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	f := NewCVFilter(DefaultConfig())
	assert.False(t, f.Initialized())

	f.Initialize(1, 2, 3, 0.1, 0.2, 0.3, 42)
	require.True(t, f.Initialized())
	assert.Equal(t, []float64{1, 2, 3, 0.1, 0.2, 0.3}, f.State())
	assert.Equal(t, 42.0, f.LastTime())

	// Covariance stays at its identity default.
	cov := f.Covariance()
	for i := 0; i < StateDim; i++ {
		assert.Equal(t, 1.0, cov.At(i, i))
	}
}

func TestPredictZeroDt(t *testing.T) {
	cfg := DefaultConfig()
	f := NewCVFilter(cfg)
	f.Initialize(5, -3, 7, 1, 2, 3, 100)
	before := f.Covariance()

	f.Predict(100)

	// Predicted state equals the prior state.
	require.NotNil(t, f.predicted)
	for i := 0; i < StateDim; i++ {
		assert.InDelta(t, f.state.AtVec(i), f.predicted.AtVec(i), 1e-12)
	}

	// Covariance grows by exactly q on the diagonal and is otherwise
	// unchanged.
	after := f.Covariance()
	for i := 0; i < StateDim; i++ {
		for j := 0; j < StateDim; j++ {
			want := before.At(i, j)
			if i == j {
				want += cfg.PlantNoise
			}
			assert.InDelta(t, want, after.At(i, j), 1e-12, "P[%d,%d]", i, j)
		}
	}
}

func TestPredictPropagatesPosition(t *testing.T) {
	f := NewCVFilter(DefaultConfig())
	f.Initialize(0, 0, 0, 1, -2, 0.5, 0)

	f.Predict(10)

	assert.InDelta(t, 10.0, f.predicted.AtVec(0), 1e-12)
	assert.InDelta(t, -20.0, f.predicted.AtVec(1), 1e-12)
	assert.InDelta(t, 5.0, f.predicted.AtVec(2), 1e-12)
	// Velocity is unchanged by the constant-velocity transition.
	assert.InDelta(t, 1.0, f.predicted.AtVec(3), 1e-12)
}

func TestUpdateZeroNoiseMatchesReport(t *testing.T) {
	cfg := Config{PlantNoise: 20, MeasurementNoise: 0, InnovationReference: InnovationPredicted}
	f := NewCVFilter(cfg)
	f.Initialize(0, 0, 0, 0, 0, 0, 0)

	require.NoError(t, f.Update([]float64{3, 4, 5}, 0))

	x, y, z := f.Position()
	assert.InDelta(t, 3, x, 1e-9)
	assert.InDelta(t, 4, y, 1e-9)
	assert.InDelta(t, 5, z, 1e-9)
}

func TestUpdateSingularInnovation(t *testing.T) {
	cfg := Config{PlantNoise: 20, MeasurementNoise: 0, InnovationReference: InnovationPredicted}
	f := NewCVFilter(cfg)
	f.Initialize(0, 0, 0, 0, 0, 0, 0)

	// First exact update collapses the position covariance block to
	// zero; with R = 0 the next innovation covariance is singular.
	require.NoError(t, f.Update([]float64{1, 1, 1}, 0))

	err := f.Update([]float64{2, 2, 2}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSingularInnovation)

	var numErr *NumericalError
	require.ErrorAs(t, err, &numErr)
	assert.Equal(t, "update", numErr.Op)
	assert.Equal(t, 1.0, numErr.Time)

	// The failed cycle keeps the previous estimate.
	x, y, z := f.Position()
	assert.InDelta(t, 1, x, 1e-9)
	assert.InDelta(t, 1, y, 1e-9)
	assert.InDelta(t, 1, z, 1e-9)
}

func TestUpdateSkipAdoptsPredictionAndAdvancesTime(t *testing.T) {
	// With zero plant and measurement noise an exact update collapses
	// the position covariance block, so the following update cycle has
	// a singular innovation covariance.
	cfg := Config{PlantNoise: 0, MeasurementNoise: 0, InnovationReference: InnovationPredicted}
	f := NewCVFilter(cfg)
	f.Initialize(1, 2, 3, 0, 0, 0, 0)
	require.NoError(t, f.Update([]float64{1, 2, 3}, 0))

	f.Predict(0)
	err := f.Update([]float64{9, 9, 9}, 7)
	require.ErrorIs(t, err, ErrSingularInnovation)

	// The skipped cycle folds the prediction into the state and still
	// advances the filter clock.
	x, y, z := f.Position()
	assert.InDelta(t, 1, x, 1e-9)
	assert.InDelta(t, 2, y, 1e-9)
	assert.InDelta(t, 3, z, 1e-9)
	assert.Equal(t, 7.0, f.LastTime())
	assert.Nil(t, f.predicted)
}

func TestPredictUpdateEstimatesVelocity(t *testing.T) {
	// Two reports 10 units apart in y over 10 time units: vy ≈ 1.
	f := NewCVFilter(DefaultConfig())
	f.Initialize(0, 0, 0, 0, 0, 0, 0)

	f.Predict(10)
	require.NoError(t, f.Update([]float64{0, 10, 0}, 10))

	_, vy, _ := f.Velocity()
	assert.InDelta(t, 1.0, vy, 0.25)
	assert.Equal(t, 10.0, f.LastTime())
}

func TestInnovationReferencePrior(t *testing.T) {
	run := func(ref InnovationReference) []float64 {
		f := NewCVFilter(Config{PlantNoise: 20, MeasurementNoise: 1, InnovationReference: ref})
		f.Initialize(0, 0, 0, 1, 0, 0, 0)
		f.Predict(10)
		require.NoError(t, f.Update([]float64{10, 0, 0}, 10))
		return f.State()
	}

	predicted := run(InnovationPredicted)
	prior := run(InnovationPrior)

	// With the prediction exactly matching the measurement, the
	// predicted ordering keeps vx = 1; the prior ordering re-derives a
	// smaller velocity from the raw innovation.
	assert.InDelta(t, 1.0, predicted[3], 1e-9)
	assert.Less(t, prior[3], 0.95)
	assert.Greater(t, prior[3], 0.5)
}

func TestUpdateBadMeasurementLength(t *testing.T) {
	f := NewCVFilter(DefaultConfig())
	f.Initialize(0, 0, 0, 0, 0, 0, 0)
	assert.Error(t, f.Update([]float64{1, 2}, 0))
}

func TestCovarianceStaysSymmetric(t *testing.T) {
	f := NewCVFilter(DefaultConfig())
	f.Initialize(0, 0, 0, 0, 0, 0, 0)

	ts := []float64{5, 12, 30, 31, 55}
	for _, tm := range ts {
		f.Predict(tm)
		require.NoError(t, f.Update([]float64{tm, -tm, tm / 2}, tm))

		cov := f.Covariance()
		for i := 0; i < StateDim; i++ {
			require.GreaterOrEqual(t, cov.At(i, i), 0.0)
			for j := i + 1; j < StateDim; j++ {
				require.InDelta(t, cov.At(i, j), cov.At(j, i), 1e-12)
			}
		}
	}
}

func TestNumericalErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &NumericalError{Op: "update", Time: 3, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "t=3")
}
