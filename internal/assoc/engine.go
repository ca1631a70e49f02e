package assoc

import (
	"math"
	"sort"

	"github.com/yogzz2023/jn3/internal/monitoring"
)

// Association is the resolved outcome for one report: the most probable
// track (or Unassigned) and its posterior probability.
type Association struct {
	Report      int
	Track       int
	Probability float64
}

// Result carries the associations for a batch plus the full enumerated
// hypothesis list with per-hypothesis probabilities for diagnostics.
type Result struct {
	Associations  []Association
	Hypotheses    []Hypothesis
	Probabilities []float64
	// Degenerate is true when every hypothesis scored exactly zero; the
	// associations then carry zero confidence rather than an arithmetic
	// fault.
	Degenerate bool
}

// Associate runs the full batch association: gating and clustering,
// hypothesis enumeration per cluster (with a greedy fallback above the
// configured bounds), probability scoring with normalization, and
// per-report resolution. tracks and reports are read-only snapshots;
// nothing is mutated during enumeration.
func (e *Engine) Associate(tracks, reports []Point) Result {
	res := Result{Associations: make([]Association, len(reports))}
	for i := range res.Associations {
		res.Associations[i] = Association{Report: i, Track: Unassigned}
	}
	if len(tracks) == 0 || len(reports) == 0 {
		return res
	}

	clusters := e.FormClusters(tracks, reports)
	for _, cluster := range clusters {
		res.Hypotheses = append(res.Hypotheses, e.enumerate(cluster, tracks, reports)...)
	}
	if len(res.Hypotheses) == 0 {
		return res
	}

	res.Probabilities, res.Degenerate = e.score(res.Hypotheses, tracks, reports)
	resolve(res.Hypotheses, res.Probabilities, res.Associations)
	return res
}

// enumerate produces the valid hypotheses for one cluster. Clusters
// whose enumeration space exceeds the configured bounds fall back to a
// single greedy nearest-neighbour hypothesis instead of enumerating
// (R+1)^N combinations.
func (e *Engine) enumerate(cluster Cluster, tracks, reports []Point) []Hypothesis {
	n := len(cluster.Tracks)
	space, ok := HypothesisSpace(n, len(reports), e.cfg.MaxHypotheses)
	if n > e.cfg.MaxClusterSize || !ok {
		monitoring.Logf("cluster of %d tracks exceeds enumeration bounds (max size %d, max hypotheses %d); using greedy fallback",
			n, e.cfg.MaxClusterSize, e.cfg.MaxHypotheses)
		if h := e.greedyHypothesis(cluster, tracks, reports); h != nil {
			return []Hypothesis{h}
		}
		return nil
	}

	// The valid subset is at most the full space; pre-size for it.
	hyps := make([]Hypothesis, 0, space)
	it := NewHypothesisIter(cluster.Tracks, len(reports))
	for it.Next() {
		hyps = append(hyps, it.Hypothesis())
	}
	return hyps
}

// greedyHypothesis builds one hypothesis by assigning each cluster
// track its nearest gated report, nearest pairs first, without report
// reuse. Returns nil when no track can claim any report.
func (e *Engine) greedyHypothesis(cluster Cluster, tracks, reports []Point) Hypothesis {
	type pair struct {
		pos, report int
		d2          float64
	}
	var pairs []pair
	for pos, ti := range cluster.Tracks {
		for ri := range reports {
			d2 := e.DistanceSquared(tracks[ti], reports[ri])
			if d2 < e.gate {
				pairs = append(pairs, pair{pos: pos, report: ri, d2: d2})
			}
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].d2 < pairs[j].d2 })

	h := make(Hypothesis, len(cluster.Tracks))
	for pos, ti := range cluster.Tracks {
		h[pos] = Assignment{Track: ti, Report: Unassigned}
	}
	usedTrack := make(map[int]bool)
	usedReport := make(map[int]bool)
	for _, p := range pairs {
		if usedTrack[p.pos] || usedReport[p.report] {
			continue
		}
		h[p.pos].Report = p.report
		usedTrack[p.pos] = true
		usedReport[p.report] = true
	}
	if !h.Valid() {
		return nil
	}
	return h
}

// score computes the probability of every hypothesis as the product of
// exp(−0.5·d²) over its assigned pairs and normalizes the batch to sum
// to one. When every probability is exactly zero the batch is flagged
// degenerate and left at zero instead of dividing by zero.
func (e *Engine) score(hyps []Hypothesis, tracks, reports []Point) (probs []float64, degenerate bool) {
	probs = make([]float64, len(hyps))
	var sum float64
	for i, h := range hyps {
		p := 1.0
		for _, a := range h {
			if a.Report == Unassigned {
				continue
			}
			d2 := e.DistanceSquared(tracks[a.Track], reports[a.Report])
			p *= math.Exp(-0.5 * d2)
		}
		probs[i] = p
		sum += p
	}
	if sum == 0 {
		monitoring.Logf("all %d hypothesis probabilities are zero; reporting zero-confidence associations", len(hyps))
		return probs, true
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, false
}

// resolve records, for each report, the track of the highest-probability
// hypothesis in which the report appears assigned. Reports never
// claimed by any hypothesis keep Unassigned with probability 0.
func resolve(hyps []Hypothesis, probs []float64, out []Association) {
	for i, h := range hyps {
		for _, a := range h {
			if a.Report == Unassigned {
				continue
			}
			if probs[i] > out[a.Report].Probability {
				out[a.Report].Track = a.Track
				out[a.Report].Probability = probs[i]
			}
		}
	}
}
