package assoc

// Unassigned marks a track entry with no report claimed (or a report
// resolved to no track).
const Unassigned = -1

// Assignment pairs a track index with the report index it claims, or
// Unassigned.
type Assignment struct {
	Track  int
	Report int
}

// Hypothesis is one candidate joint assignment: one entry per track in
// a cluster. Valid hypotheses assign at least one report and never
// claim the same report twice.
type Hypothesis []Assignment

// Valid reports whether the hypothesis satisfies the validity
// invariant: at least one track is assigned a report and no report
// index is reused across entries.
func (h Hypothesis) Valid() bool {
	assigned := 0
	seen := make(map[int]bool, len(h))
	for _, a := range h {
		if a.Report == Unassigned {
			continue
		}
		if seen[a.Report] {
			return false
		}
		seen[a.Report] = true
		assigned++
	}
	return assigned > 0
}

// HypothesisSpace returns the total enumeration space (R+1)^N for a
// cluster of n tracks and r reports. The count overflows quickly; the
// second return is false when it exceeds limit.
func HypothesisSpace(n, r, limit int) (int, bool) {
	space := 1
	base := r + 1
	for i := 0; i < n; i++ {
		if space > limit/base {
			return 0, false
		}
		space *= base
	}
	return space, true
}

// HypothesisIter lazily enumerates the valid hypotheses for one cluster
// as a finite, restartable sequence, using a mixed-radix counter in
// base (R+1) with one digit per cluster track. Digit value 0 denotes
// "unassigned"; values 1..R denote report index value−1.
type HypothesisIter struct {
	cluster    []int
	numReports int
	space      int
	counter    int
	current    Hypothesis
}

// NewHypothesisIter creates an iterator over the valid hypotheses of
// cluster against a pool of numReports reports.
func NewHypothesisIter(cluster []int, numReports int) *HypothesisIter {
	space, ok := HypothesisSpace(len(cluster), numReports, int(^uint(0)>>2))
	if !ok {
		// Callers bound cluster sizes before enumerating; saturate so a
		// runaway iterator still terminates.
		space = 0
	}
	return &HypothesisIter{
		cluster:    cluster,
		numReports: numReports,
		space:      space,
	}
}

// Next advances to the next valid hypothesis, returning false when the
// sequence is exhausted.
func (it *HypothesisIter) Next() bool {
	base := it.numReports + 1
	for ; it.counter < it.space; it.counter++ {
		h := make(Hypothesis, len(it.cluster))
		count := it.counter
		for i, trackIdx := range it.cluster {
			digit := count % base
			count /= base
			h[i] = Assignment{Track: trackIdx, Report: digit - 1}
		}
		if h.Valid() {
			it.current = h
			it.counter++
			return true
		}
	}
	it.current = nil
	return false
}

// Hypothesis returns the hypothesis produced by the last successful
// Next call.
func (it *HypothesisIter) Hypothesis() Hypothesis { return it.current }

// Reset restarts the sequence from the beginning.
func (it *HypothesisIter) Reset() {
	it.counter = 0
	it.current = nil
}
