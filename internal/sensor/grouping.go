package sensor

import "math"

// DefaultGroupingWindow is the default temporal window, in the same
// time units as the reports, within which two reports are considered to
// come from the same target sweep.
const DefaultGroupingWindow = 50.0

// GroupByTime partitions reports into groups using single-link
// clustering over the time axis: a report joins a group when its
// timestamp is within window of the group's seed report. Input order is
// preserved within each group; every report lands in exactly one group.
// An empty input yields no groups.
func GroupByTime(reports []Report, window float64) [][]Report {
	if window <= 0 {
		window = DefaultGroupingWindow
	}

	var groups [][]Report
	used := make([]bool, len(reports))
	for i, seed := range reports {
		if used[i] {
			continue
		}
		group := []Report{seed}
		used[i] = true
		for j := i + 1; j < len(reports); j++ {
			if used[j] {
				continue
			}
			if math.Abs(reports[j].Time-seed.Time) < window {
				group = append(group, reports[j])
				used[j] = true
			}
		}
		groups = append(groups, group)
	}
	return groups
}
