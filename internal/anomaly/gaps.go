package anomaly

import "github.com/skyfence/gpswatch/pkg/geo"

// gapRun tracks one open run of null-coordinate reports for a single
// aircraft. It holds copies of the first and last member, which carry the
// neighbor links needed to resolve the run's boundaries at close.
type gapRun struct {
	first    LinkedReport
	last     LinkedReport
	hour     int64
	callsign string
}

// DetectGapSessions scans one aircraft's linked reports in time order and
// collapses qualifying runs of null-coordinate records into gap sessions.
//
// A run opens at a null record whose predecessor carried coordinates; a
// window-leading null record has no predecessor and therefore never opens a
// run. A run closes at the next record with coordinates, at the end of the
// stream, or when the hour partition or callsign changes mid-run — runs are
// never merged across either, matching how the warehouse aggregation keyed
// its groups. Split segments fail boundary resolution (their inner boundary
// is a null record) and are discarded like any other non-qualifying run.
func DetectGapSessions(linked []LinkedReport) []GapSession {
	var sessions []GapSession
	var run *gapRun

	for _, rec := range linked {
		if rec.HasPosition() {
			if run != nil {
				if s, ok := closeRun(run); ok {
					sessions = append(sessions, s)
				}
				run = nil
			}
			continue
		}

		if run != nil {
			if hourPartition(rec.Time) != run.hour || rec.Callsign != run.callsign {
				if s, ok := closeRun(run); ok {
					sessions = append(sessions, s)
				}
				run = &gapRun{first: rec, last: rec, hour: hourPartition(rec.Time), callsign: rec.Callsign}
				continue
			}
			run.last = rec
			continue
		}

		// Entering a run requires a predecessor that still had coordinates.
		if rec.Prev != nil && rec.Prev.HasPosition() {
			run = &gapRun{first: rec, last: rec, hour: hourPartition(rec.Time), callsign: rec.Callsign}
		}
	}

	if run != nil {
		if s, ok := closeRun(run); ok {
			sessions = append(sessions, s)
		}
	}

	return sessions
}

// closeRun evaluates a finished run against the qualification rules and
// materializes a GapSession when it passes. Non-qualifying runs are simply
// not materialized; that is policy, not an error.
func closeRun(run *gapRun) (GapSession, bool) {
	duration := run.last.Time - run.first.Time
	if duration < MinGapDurationSeconds {
		return GapSession{}, false
	}

	before, ok := resolveBoundary(run.first.Prev)
	if !ok {
		return GapSession{}, false
	}
	after, ok := resolveBoundary(run.last.Next)
	if !ok {
		return GapSession{}, false
	}

	return GapSession{
		AircraftID:              run.first.AircraftID,
		Callsign:                run.callsign,
		StartTime:               run.first.Time,
		EndTime:                 run.last.Time,
		DurationSeconds:         duration,
		Before:                  before,
		After:                   after,
		BoundaryDistanceM:       geo.HaversineMeters(before.Lat, before.Lon, after.Lat, after.Lon),
		BoundaryDurationSeconds: after.Time - before.Time,
	}, true
}

// resolveBoundary accepts a neighbor as a gap boundary only if it carries
// coordinates backed by a fresh position fix.
func resolveBoundary(r *Report) (Boundary, bool) {
	if r == nil || !r.HasPosition() {
		return Boundary{}, false
	}
	if absInt64(r.Time-r.LastPosTime) > BoundaryFreshnessSeconds {
		return Boundary{}, false
	}
	return Boundary{Time: r.Time, Lat: *r.Lat, Lon: *r.Lon}, true
}

// hourPartition is the coarse time-partition value the source keys on.
func hourPartition(t int64) int64 {
	return t / 3600
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
