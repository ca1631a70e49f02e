// Package pipeline orchestrates the batch tracking run: grouping
// reports by time, sweeping each group through a constant-velocity
// filter, then associating all active tracks against the report batch.
// Execution is single-threaded and runs to completion; the association
// stage reads immutable snapshots of track and report state.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/yogzz2023/jn3/internal/assoc"
	"github.com/yogzz2023/jn3/internal/config"
	"github.com/yogzz2023/jn3/internal/filter"
	"github.com/yogzz2023/jn3/internal/monitoring"
	"github.com/yogzz2023/jn3/internal/sensor"
)

// Snapshot is the filter output for one processed report: the updated
// (or initialized) state vector and covariance.
type Snapshot struct {
	Time       float64
	State      []float64
	Covariance *mat.Dense
}

// Track owns one target's filter and its per-report state history.
// Tracks live for the duration of a processing session.
type Track struct {
	ID     string
	Filter *filter.CVFilter

	// History holds one snapshot per report processed.
	History []Snapshot

	// SkippedUpdates counts update cycles skipped on numerical failure.
	SkippedUpdates int
}

// Position returns the track's current filtered position estimate.
func (t *Track) Position() assoc.Point {
	x, y, z := t.Filter.Position()
	return assoc.Point{x, y, z}
}

// Result is the outcome of one batch run.
type Result struct {
	Tracks  []*Track
	Reports []sensor.Report

	// Associations holds one entry per report in the batch; Track is
	// an index into Tracks or assoc.Unassigned.
	Associations []assoc.Association

	// Diagnostic dump of the enumerated hypotheses and their
	// normalized probabilities.
	Hypotheses    []assoc.Hypothesis
	Probabilities []float64
	Degenerate    bool
}

// Pipeline runs batches against a fixed tuning configuration.
type Pipeline struct {
	cfg    *config.TuningConfig
	engine *assoc.Engine
}

// New creates a pipeline. A nil cfg uses the built-in defaults.
func New(cfg *config.TuningConfig) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultTuningConfig()
	}
	engine := assoc.NewEngine(assoc.Config{
		GateConfidence:  cfg.GetGateConfidence(),
		GateDOF:         cfg.GetGateDOF(),
		CovarianceScale: cfg.GetGateCovarianceScale(),
		MaxClusterSize:  cfg.GetMaxClusterSize(),
		MaxHypotheses:   cfg.GetMaxHypotheses(),
	})
	return &Pipeline{cfg: cfg, engine: engine}
}

// Run processes a batch of reports end to end. An empty batch is a
// recoverable no-op yielding no tracks and no associations.
func (p *Pipeline) Run(reports []sensor.Report) (*Result, error) {
	res := &Result{Reports: reports}
	if len(reports) == 0 {
		return res, nil
	}

	groups := sensor.GroupByTime(reports, p.cfg.GetGroupingWindow())
	monitoring.Logf("processing %d reports in %d groups", len(reports), len(groups))

	for gi, group := range groups {
		track, err := p.sweepGroup(group)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", gi, err)
		}
		res.Tracks = append(res.Tracks, track)
	}

	// Associate all active tracks against the whole report batch using
	// the filtered position estimates.
	trackPoints := make([]assoc.Point, len(res.Tracks))
	for i, tr := range res.Tracks {
		trackPoints[i] = tr.Position()
	}
	reportPoints := make([]assoc.Point, len(reports))
	for i, r := range reports {
		reportPoints[i] = assoc.Point{r.X, r.Y, r.Z}
	}

	ar := p.engine.Associate(trackPoints, reportPoints)
	res.Associations = ar.Associations
	res.Hypotheses = ar.Hypotheses
	res.Probabilities = ar.Probabilities
	res.Degenerate = ar.Degenerate
	return res, nil
}

// sweepGroup runs one report group through a fresh filter: the first
// report initializes the state with zero velocity, each subsequent
// report is a predict-then-update cycle. Numerically failed updates are
// logged and skipped, keeping the predicted state for that cycle.
func (p *Pipeline) sweepGroup(group []sensor.Report) (*Track, error) {
	track := &Track{
		ID: fmt.Sprintf("trk_%s", uuid.NewString()),
		Filter: filter.NewCVFilter(filter.Config{
			PlantNoise:          p.cfg.GetPlantNoise(),
			MeasurementNoise:    p.cfg.GetMeasurementNoise(),
			InnovationReference: filter.InnovationReference(p.cfg.GetInnovationReference()),
		}),
	}

	for _, r := range group {
		if !track.Filter.Initialized() {
			track.Filter.Initialize(r.X, r.Y, r.Z, 0, 0, 0, r.Time)
		} else {
			track.Filter.Predict(r.Time)
			if err := track.Filter.Update(r.Position(), r.Time); err != nil {
				if !errors.Is(err, filter.ErrSingularInnovation) {
					return nil, fmt.Errorf("track %s: %w", track.ID, err)
				}
				track.SkippedUpdates++
				monitoring.Logf("track %s: skipping update for report at t=%v: %v", track.ID, r.Time, err)
			}
		}
		track.History = append(track.History, Snapshot{
			Time:       r.Time,
			State:      track.Filter.State(),
			Covariance: track.Filter.Covariance(),
		})
	}
	return track, nil
}
