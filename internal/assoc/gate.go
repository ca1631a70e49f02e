// Package assoc implements the multi-hypothesis probabilistic
// association engine: statistical gating of (track, report) pairs,
// clustering, joint assignment hypothesis enumeration, probability
// scoring and per-report resolution.
package assoc

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Point is a Cartesian position entering gating and scoring: either a
// track's filtered position estimate or a report position.
type Point [3]float64

// Config holds the association engine parameters.
type Config struct {
	// GateConfidence is the chi-square confidence level for the gate.
	GateConfidence float64
	// GateDOF is the chi-square degrees of freedom (position dimensions).
	GateDOF int
	// CovarianceScale scales the fixed gating covariance s·I3.
	CovarianceScale float64
	// MaxClusterSize bounds hypothesis enumeration; clusters larger
	// than this fall back to greedy nearest-neighbour assignment.
	MaxClusterSize int
	// MaxHypotheses bounds the enumeration space (R+1)^N per cluster;
	// clusters exceeding it use the greedy fallback as well.
	MaxHypotheses int
}

// DefaultConfig returns the production-default engine configuration:
// a 95% chi-square gate over 3 degrees of freedom (≈7.815) with an
// identity gating covariance.
func DefaultConfig() Config {
	return Config{
		GateConfidence:  0.95,
		GateDOF:         3,
		CovarianceScale: 1,
		MaxClusterSize:  8,
		MaxHypotheses:   1 << 16,
	}
}

// Engine performs gating, clustering, hypothesis scoring and
// resolution over immutable snapshots of track and report positions.
type Engine struct {
	cfg    Config
	gate   float64    // chi-square quantile, compared against d²
	covInv *mat.Dense // inverse of the fixed 3×3 gating covariance
}

// NewEngine creates an association engine, computing the chi-square
// gate threshold once from the configured confidence and DOF.
func NewEngine(cfg Config) *Engine {
	if cfg.GateDOF < 1 {
		cfg.GateDOF = 3
	}
	if cfg.GateConfidence <= 0 || cfg.GateConfidence >= 1 {
		cfg.GateConfidence = 0.95
	}
	if cfg.CovarianceScale <= 0 {
		cfg.CovarianceScale = 1
	}
	if cfg.MaxClusterSize < 1 {
		cfg.MaxClusterSize = 8
	}
	if cfg.MaxHypotheses < 1 {
		cfg.MaxHypotheses = 1 << 16
	}

	gate := distuv.ChiSquared{K: float64(cfg.GateDOF)}.Quantile(cfg.GateConfidence)

	covInv := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		covInv.Set(i, i, 1/cfg.CovarianceScale)
	}

	return &Engine{cfg: cfg, gate: gate, covInv: covInv}
}

// Gate returns the squared-distance gating threshold.
func (e *Engine) Gate() float64 { return e.gate }

// DistanceSquared returns the squared Mahalanobis distance between a
// track position and a report position under the fixed gating
// covariance.
func (e *Engine) DistanceSquared(track, report Point) float64 {
	var d2 float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d2 += (report[i] - track[i]) * e.covInv.At(i, j) * (report[j] - track[j])
		}
	}
	return d2
}

// Cluster is the set of track indices statistically reachable from a
// report. Recomputed per association batch.
type Cluster struct {
	Tracks []int
}

// FormClusters gates every (track, report) pair and groups each report
// with its nearest track passing the gate. Tracks failing the gate for
// every report form no cluster; duplicate clusters over the same track
// set are merged so a track's hypotheses are enumerated once.
func (e *Engine) FormClusters(tracks, reports []Point) []Cluster {
	var clusters []Cluster
	seen := make(map[int]bool)
	for _, report := range reports {
		best := -1
		bestD2 := 0.0
		for ti, track := range tracks {
			d2 := e.DistanceSquared(track, report)
			if d2 >= e.gate {
				continue
			}
			if best < 0 || d2 < bestD2 {
				best = ti
				bestD2 = d2
			}
		}
		if best < 0 || seen[best] {
			continue
		}
		seen[best] = true
		clusters = append(clusters, Cluster{Tracks: []int{best}})
	}
	return clusters
}
