package anomaly

// Detection thresholds. These mirror the characteristics of the two
// interference signatures: a jamming gap must persist for at least a minute,
// and a spoofed displacement must exceed both the speed a real airframe can
// sustain and an absolute floor that suppresses noise from near-zero elapsed
// time between messages.
const (
	// MinGapDurationSeconds is the minimum null-coordinate run duration for
	// a run to qualify as a gap session.
	MinGapDurationSeconds = 60

	// BoundaryFreshnessSeconds is the maximum allowed distance between a
	// boundary report's message timestamp and the position fix backing it.
	BoundaryFreshnessSeconds = 2

	// MaxPlausibleSpeedMPS is the assumed maximum aircraft ground speed in
	// meters per second used by the jump detector.
	MaxPlausibleSpeedMPS = 600

	// MinJumpDistanceMeters is the absolute displacement floor below which
	// a pair is never flagged, regardless of implied speed.
	MinJumpDistanceMeters = 2000

	// Valid NIC range per the ADS-B specification.
	MinNIC = 0
	MaxNIC = 11
)

// RawReport is one state-vector row as it arrives from a report source,
// before admissibility filtering. Optional columns are pointers.
type RawReport struct {
	ICAO        *string  `json:"icao24"`
	Time        int64    `json:"time"`
	Callsign    *string  `json:"callsign"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	LastPosTime int64    `json:"lastposupdate"`
	OnGround    bool     `json:"onground"`
	NIC         *int64   `json:"nic"`
}

// Report is an admissible position report for one airborne aircraft. It is
// immutable once produced by the filter.
type Report struct {
	AircraftID  string   `json:"aircraft_id"`
	Time        int64    `json:"time"`
	Callsign    string   `json:"callsign"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	LastPosTime int64    `json:"last_position_update_time"`
	NIC         *int64   `json:"nic,omitempty"`
}

// HasPosition reports whether the record carries usable coordinates. A
// record missing either coordinate is a null-coordinate record.
func (r *Report) HasPosition() bool {
	return r.Lat != nil && r.Lon != nil
}

// LinkedReport is a Report together with copies of the nearest previous and
// next reports of the same aircraft in time order, or nil at the ends.
type LinkedReport struct {
	Report
	Prev *Report `json:"prev,omitempty"`
	Next *Report `json:"next,omitempty"`
}

// Boundary is a valid, freshness-checked coordinate fix bracketing a gap.
type Boundary struct {
	Time int64   `json:"time"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// GapSession is a qualified run of null-coordinate reports for one aircraft,
// bounded by fresh valid fixes on both sides.
type GapSession struct {
	AircraftID      string   `json:"aircraft_id"`
	Callsign        string   `json:"callsign"`
	StartTime       int64    `json:"start_time"`
	EndTime         int64    `json:"end_time"`
	DurationSeconds int64    `json:"duration_seconds"`
	Before          Boundary `json:"boundary_before"`
	After           Boundary `json:"boundary_after"`

	// Distance and elapsed time between the bracketing fixes.
	BoundaryDistanceM       int64 `json:"boundary_distance_m"`
	BoundaryDurationSeconds int64 `json:"boundary_duration_seconds"`

	Quality QualityStats `json:"quality"`
}

// QualityStats summarizes NIC over the gap windows of one aircraft. All
// fields are nil when no eligible signal matched.
type QualityStats struct {
	AvgNIC *float64 `json:"avg_nic"`
	MinNIC *int64   `json:"min_nic"`
	MaxNIC *int64   `json:"max_nic"`
}

// QualitySignal is one NIC measurement from the quality-signal source.
type QualitySignal struct {
	AircraftID      string `json:"aircraft_id"`
	MeasurementTime int64  `json:"measurement_time"`
	NIC             *int64 `json:"nic"`
}

// JumpEvent is one adjacent-report pair whose implied displacement is
// physically implausible.
type JumpEvent struct {
	AircraftID            string  `json:"aircraft_id"`
	Callsign              string  `json:"callsign"`
	TimeBefore            int64   `json:"time_before"`
	LatBefore             float64 `json:"lat_before"`
	LonBefore             float64 `json:"lon_before"`
	TimeAt                int64   `json:"time_at"`
	LatAt                 float64 `json:"lat_at"`
	LonAt                 float64 `json:"lon_at"`
	DistanceMeters        int64   `json:"distance_meters"`
	TimeDifferenceSeconds int64   `json:"time_difference_seconds"`
}

// WindowResult holds everything one pipeline invocation produced for one
// [FromTime, UntilTime) window.
type WindowResult struct {
	FromTime    int64        `json:"from_time"`
	UntilTime   int64        `json:"until_time"`
	GapSessions []GapSession `json:"gap_sessions"`
	JumpEvents  []JumpEvent  `json:"jump_events"`
}
