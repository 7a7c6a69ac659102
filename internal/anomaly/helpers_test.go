package anomaly

// Shared builders for detector tests.

func f64(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }

func str(v string) *string { return &v }

// posReport builds a report carrying coordinates backed by a fresh fix.
func posReport(id string, t int64, lat, lon float64) Report {
	return Report{
		AircraftID:  id,
		Time:        t,
		Lat:         f64(lat),
		Lon:         f64(lon),
		LastPosTime: t,
	}
}

// nullReport builds a report with missing coordinates.
func nullReport(id string, t int64) Report {
	return Report{
		AircraftID: id,
		Time:       t,
	}
}
