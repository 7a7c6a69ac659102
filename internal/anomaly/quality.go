package anomaly

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AggregateQuality computes NIC summary statistics for one aircraft over the
// union of its gap-session windows. A signal contributes when its NIC is
// present and within [0, 11] and its measurement time falls inside
// [StartTime, EndTime] of at least one session.
//
// Stats are keyed per aircraft, not per session: an aircraft with several
// disjoint gaps gets one merged summary shared by all of them, so a
// measurement taken inside one gap's window colors every other gap of that
// aircraft. Preserved as observed upstream; a per-session keying would
// change reported numbers.
//
// An empty eligible set yields all-nil stats, never zeros.
func AggregateQuality(sessions []GapSession, signals []QualitySignal) QualityStats {
	if len(sessions) == 0 {
		return QualityStats{}
	}

	var nics []float64
	for _, sig := range signals {
		if sig.NIC == nil || *sig.NIC < MinNIC || *sig.NIC > MaxNIC {
			continue
		}
		for _, s := range sessions {
			if sig.MeasurementTime >= s.StartTime && sig.MeasurementTime <= s.EndTime {
				nics = append(nics, float64(*sig.NIC))
				break
			}
		}
	}

	if len(nics) == 0 {
		return QualityStats{}
	}

	avg := stat.Mean(nics, nil)
	min := int64(floats.Min(nics))
	max := int64(floats.Max(nics))

	return QualityStats{AvgNIC: &avg, MinNIC: &min, MaxNIC: &max}
}
