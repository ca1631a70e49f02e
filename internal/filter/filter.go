// Package filter implements the constant-velocity Kalman filter that
// estimates one target's kinematic state from a sequence of position
// reports.
//
// The state vector is [x y z vx vy vz]; the measurement vector is the
// Cartesian position [x y z]. Predict and Update mutate the filter in
// place; each tracked target owns exactly one filter instance.
package filter

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dimensions of the state and measurement vectors.
const (
	StateDim = 6
	MeasDim  = 3
)

// ErrSingularInnovation reports that the innovation covariance could not
// be inverted during an update. The update is skipped, never retried.
var ErrSingularInnovation = errors.New("singular innovation covariance")

// NumericalError wraps a linear-algebra failure with enough context for
// the caller to log which update cycle was skipped.
type NumericalError struct {
	Op   string  // operation that failed, e.g. "update"
	Time float64 // measurement timestamp of the failed cycle
	Err  error
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("filter %s at t=%v: %v", e.Op, e.Time, e.Err)
}

func (e *NumericalError) Unwrap() error { return e.Err }

// InnovationReference selects which state the update innovation is
// computed against.
type InnovationReference string

const (
	// InnovationPredicted computes the innovation against the predicted
	// state from the preceding Predict call. Statistically correct and
	// the default.
	InnovationPredicted InnovationReference = "predicted"
	// InnovationPrior computes the innovation against the pre-predict
	// state. Matches the legacy processing chain; kept for comparison.
	InnovationPrior InnovationReference = "prior"
)

// Config holds the fixed noise model of a CVFilter.
type Config struct {
	// PlantNoise is the scalar q of the process noise Q = q·I6.
	PlantNoise float64
	// MeasurementNoise is the scalar r of the measurement noise R = r·I3.
	MeasurementNoise float64
	// InnovationReference selects the update innovation ordering.
	InnovationReference InnovationReference
}

// DefaultConfig returns the production-default filter configuration.
func DefaultConfig() Config {
	return Config{
		PlantNoise:          20,
		MeasurementNoise:    1,
		InnovationReference: InnovationPredicted,
	}
}

// CVFilter is a constant-velocity Kalman filter over a 6-dimensional
// state. The zero value is not usable; construct with NewCVFilter.
type CVFilter struct {
	cfg Config

	state     *mat.VecDense // S, 6x1
	predicted *mat.VecDense // Sp, nil until Predict is called
	cov       *mat.Dense    // P, 6x6

	h *mat.Dense // measurement matrix H, 3x6 position selector
	r *mat.Dense // measurement noise R, 3x3

	lastTime    float64
	initialized bool
}

// NewCVFilter creates a filter with identity initial covariance.
func NewCVFilter(cfg Config) *CVFilter {
	h := mat.NewDense(MeasDim, StateDim, nil)
	for i := 0; i < MeasDim; i++ {
		h.Set(i, i, 1)
	}
	r := mat.NewDense(MeasDim, MeasDim, nil)
	for i := 0; i < MeasDim; i++ {
		r.Set(i, i, cfg.MeasurementNoise)
	}
	return &CVFilter{
		cfg:   cfg,
		state: mat.NewVecDense(StateDim, nil),
		cov:   eye(StateDim, 1),
		h:     h,
		r:     r,
	}
}

// Initialize sets the state vector directly from the first report of a
// group. The covariance is left untouched.
func (f *CVFilter) Initialize(x, y, z, vx, vy, vz, t float64) {
	f.state = mat.NewVecDense(StateDim, []float64{x, y, z, vx, vy, vz})
	f.predicted = nil
	f.lastTime = t
	f.initialized = true
}

// Predict propagates the state and covariance to time t using the
// constant-velocity transition. The predicted state is held separately;
// the prior state vector is kept until Update folds the prediction in.
// With dt = 0 the predicted state equals the prior and the covariance
// grows by exactly Q.
func (f *CVFilter) Predict(t float64) {
	dt := t - f.lastTime

	// Φ = I6 with dt coupling position to velocity.
	phi := eye(StateDim, 1)
	for i := 0; i < MeasDim; i++ {
		phi.Set(i, i+MeasDim, dt)
	}

	sp := mat.NewVecDense(StateDim, nil)
	sp.MulVec(phi, f.state)
	f.predicted = sp

	// P ← Φ·P·Φᵀ + q·I6
	newCov := mat.NewDense(StateDim, StateDim, nil)
	newCov.Product(phi, f.cov, phi.T())
	newCov.Add(newCov, eye(StateDim, f.cfg.PlantNoise))
	f.cov = newCov
}

// Update fuses the measurement z = [x y z] observed at time t into the
// state. On a singular or ill-conditioned innovation covariance it
// adopts the predicted state for this cycle and returns a
// NumericalError wrapping ErrSingularInnovation; the caller skips the
// update and carries on.
func (f *CVFilter) Update(z []float64, t float64) error {
	if len(z) != MeasDim {
		return fmt.Errorf("measurement has %d components, want %d", len(z), MeasDim)
	}

	ref := f.state
	if f.cfg.InnovationReference != InnovationPrior && f.predicted != nil {
		ref = f.predicted
	}

	// Innovation Inn = z − H·ref
	zv := mat.NewVecDense(MeasDim, z)
	inn := mat.NewVecDense(MeasDim, nil)
	inn.MulVec(f.h, ref)
	inn.SubVec(zv, inn)

	// Innovation covariance Sᵢ = H·P·Hᵀ + R
	sInn := mat.NewDense(MeasDim, MeasDim, nil)
	sInn.Product(f.h, f.cov, f.h.T())
	sInn.Add(sInn, f.r)

	var sInnInv mat.Dense
	if err := sInnInv.Inverse(sInn); err != nil {
		// Keep the predicted state for this cycle.
		f.adoptPrediction(t)
		return &NumericalError{Op: "update", Time: t, Err: fmt.Errorf("%w: %v", ErrSingularInnovation, err)}
	}

	// Gain K = P·Hᵀ·Sᵢ⁻¹
	gain := mat.NewDense(StateDim, MeasDim, nil)
	gain.Product(f.cov, f.h.T(), &sInnInv)

	// S ← ref + K·Inn
	corr := mat.NewVecDense(StateDim, nil)
	corr.MulVec(gain, inn)
	newState := mat.NewVecDense(StateDim, nil)
	newState.AddVec(ref, corr)

	// P ← (I − K·H)·P
	kh := mat.NewDense(StateDim, StateDim, nil)
	kh.Mul(gain, f.h)
	ikh := eye(StateDim, 1)
	ikh.Sub(ikh, kh)
	newCov := mat.NewDense(StateDim, StateDim, nil)
	newCov.Mul(ikh, f.cov)
	symmetrize(newCov)

	f.state = newState
	f.cov = newCov
	f.predicted = nil
	f.lastTime = t
	return nil
}

// adoptPrediction promotes the predicted state to the filter state when
// an update cycle is skipped.
func (f *CVFilter) adoptPrediction(t float64) {
	if f.predicted != nil {
		f.state = f.predicted
		f.predicted = nil
	}
	f.lastTime = t
}

// Initialized reports whether Initialize has been called.
func (f *CVFilter) Initialized() bool { return f.initialized }

// LastTime returns the timestamp of the last initialize or update.
func (f *CVFilter) LastTime() float64 { return f.lastTime }

// State returns a copy of the 6-element state vector.
func (f *CVFilter) State() []float64 {
	out := make([]float64, StateDim)
	copy(out, f.state.RawVector().Data)
	return out
}

// Position returns the position components of the state.
func (f *CVFilter) Position() (x, y, z float64) {
	return f.state.AtVec(0), f.state.AtVec(1), f.state.AtVec(2)
}

// Velocity returns the velocity components of the state.
func (f *CVFilter) Velocity() (vx, vy, vz float64) {
	return f.state.AtVec(3), f.state.AtVec(4), f.state.AtVec(5)
}

// Covariance returns a copy of the 6×6 covariance matrix.
func (f *CVFilter) Covariance() *mat.Dense {
	return mat.DenseCopyOf(f.cov)
}

func eye(n int, scale float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, scale)
	}
	return m
}

// symmetrize averages a matrix with its transpose in place, guarding
// the covariance symmetry invariant against floating-point drift.
func symmetrize(m *mat.Dense) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		for j := i + 1; j < rows; j++ {
			avg := (m.At(i, j) + m.At(j, i)) / 2
			m.Set(i, j, avg)
			m.Set(j, i, avg)
		}
	}
}
