package anomaly

import "sort"

// PartitionByAircraft groups admissible reports by aircraft identifier.
// Order within each partition preserves arrival order; sorting happens in
// LinkReports so ties on time stay deterministic.
func PartitionByAircraft(reports []Report) map[string][]Report {
	partitions := make(map[string][]Report)
	for _, r := range reports {
		partitions[r.AircraftID] = append(partitions[r.AircraftID], r)
	}
	return partitions
}

// LinkReports sorts one aircraft's reports ascending by time (stable, so
// ties keep arrival order) and attaches to each report an immutable copy of
// its immediate neighbors. Neighbors are attached regardless of whether they
// carry coordinates; downstream detectors decide what a neighbor is good for.
func LinkReports(reports []Report) []LinkedReport {
	if len(reports) == 0 {
		return nil
	}

	sorted := make([]Report, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})

	linked := make([]LinkedReport, len(sorted))
	for i := range sorted {
		linked[i] = LinkedReport{Report: sorted[i]}
		if i > 0 {
			prev := sorted[i-1]
			linked[i].Prev = &prev
		}
		if i < len(sorted)-1 {
			next := sorted[i+1]
			linked[i].Next = &next
		}
	}
	return linked
}
