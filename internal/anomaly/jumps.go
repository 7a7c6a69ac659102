package anomaly

import "github.com/skyfence/gpswatch/pkg/geo"

// DetectJumpEvents scans one aircraft's linked reports for adjacent pairs
// whose implied displacement cannot be flown. A pair is eligible only when
// both fixes carry in-range coordinates backed by a position update strictly
// less than 2 seconds from the message timestamp; stale fixes routinely
// repeat an old position and would fake enormous displacements.
//
// A pair is flagged when the great-circle distance exceeds both the
// speed-relative ceiling (elapsed seconds times 600 m/s) and the absolute
// 2000 m floor. The floor exists because near-zero elapsed time turns tiny
// distances into absurd implied speeds.
func DetectJumpEvents(linked []LinkedReport) []JumpEvent {
	var events []JumpEvent

	for _, rec := range linked {
		if !jumpEligible(&rec.Report) || rec.Prev == nil || !jumpEligible(rec.Prev) {
			continue
		}

		distance := geo.HaversineMeters(*rec.Prev.Lat, *rec.Prev.Lon, *rec.Lat, *rec.Lon)
		timeDiff := rec.Time - rec.Prev.Time
		maxAllowed := timeDiff * MaxPlausibleSpeedMPS

		if distance > maxAllowed && distance > MinJumpDistanceMeters {
			events = append(events, JumpEvent{
				AircraftID:            rec.AircraftID,
				Callsign:              rec.Callsign,
				TimeBefore:            rec.Prev.Time,
				LatBefore:             *rec.Prev.Lat,
				LonBefore:             *rec.Prev.Lon,
				TimeAt:                rec.Time,
				LatAt:                 *rec.Lat,
				LonAt:                 *rec.Lon,
				DistanceMeters:        distance,
				TimeDifferenceSeconds: timeDiff,
			})
		}
	}

	return events
}

// jumpEligible reports whether a fix may participate in a displacement pair.
func jumpEligible(r *Report) bool {
	if !r.HasPosition() {
		return false
	}
	if !geo.InCoordinateRange(*r.Lat, *r.Lon) {
		return false
	}
	return absInt64(r.Time-r.LastPosTime) < BoundaryFreshnessSeconds
}
