package anomaly

import (
	"strings"

	"github.com/skyfence/gpswatch/pkg/geo"
)

// AdmitReport validates and normalizes one raw state-vector row against the
// half-open window [from, until). It returns the admissible Report and true,
// or the zero Report and false when the row is rejected.
//
// Rejection reasons: timestamp outside the window, report from the ground,
// or an aircraft identifier that is not exactly a 6-character hex string
// after trimming. Coordinates are deliberately not validated here: null
// coordinates are exactly what the gap sessionizer looks for, and the jump
// detector applies its own range and freshness checks.
func AdmitReport(raw RawReport, from, until int64) (Report, bool) {
	if raw.Time < from || raw.Time >= until {
		return Report{}, false
	}
	if raw.OnGround {
		return Report{}, false
	}
	if raw.ICAO == nil {
		return Report{}, false
	}

	icao := strings.TrimSpace(*raw.ICAO)
	if !geo.IsICAOHex(icao) {
		return Report{}, false
	}

	var callsign string
	if raw.Callsign != nil {
		// Pass-through apart from identifier canonicalization elsewhere;
		// callsigns may legitimately be blank or padded.
		callsign = *raw.Callsign
	}

	return Report{
		AircraftID:  strings.ToLower(icao),
		Time:        raw.Time,
		Callsign:    callsign,
		Lat:         raw.Lat,
		Lon:         raw.Lon,
		LastPosTime: raw.LastPosTime,
		NIC:         raw.NIC,
	}, true
}

// FilterReports applies AdmitReport to a batch of raw rows, preserving the
// arrival order of the survivors.
func FilterReports(raws []RawReport, from, until int64) []Report {
	reports := make([]Report, 0, len(raws))
	for _, raw := range raws {
		if report, ok := AdmitReport(raw, from, until); ok {
			reports = append(reports, report)
		}
	}
	return reports
}
