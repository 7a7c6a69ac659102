package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/skyfence/gpswatch/internal/anomaly"
	"github.com/skyfence/gpswatch/pkg/logger"
)

// ReportStore reads state-vector rows from a local snapshot table. It backs
// both the report source and the quality-signal source for self-contained
// runs where a warehouse extract has been loaded into SQLite.
type ReportStore struct {
	db     *sql.DB
	table  string
	logger *logger.Logger
}

// NewReportStore creates a report store reading from the given table.
func NewReportStore(db *sql.DB, table string, log *logger.Logger) *ReportStore {
	return &ReportStore{
		db:     db,
		table:  table,
		logger: log.Named("sqlite-reports"),
	}
}

// FetchReports returns the raw rows with time in [from, until). The hour
// column is the coarse partition value; bounding it lets the snapshot index
// prune before the exact time bounds apply.
func (s *ReportStore) FetchReports(ctx context.Context, from, until int64) ([]anomaly.RawReport, error) {
	query := fmt.Sprintf(
		`SELECT icao24, time, callsign, lat, lon, lastposupdate, onground, nic
		FROM %s
		WHERE hour >= ? AND hour < ? AND time >= ? AND time < ?
		ORDER BY icao24, time`,
		s.table,
	)

	rows, err := s.db.QueryContext(ctx, query, hourFloor(from), until, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query state vectors: %w", err)
	}
	defer rows.Close()

	return scanRawReports(rows)
}

// FetchQualitySignals returns NIC measurements for one aircraft with
// measurement time in [minTime, maxTime].
func (s *ReportStore) FetchQualitySignals(ctx context.Context, aircraftID string, minTime, maxTime int64) ([]anomaly.QualitySignal, error) {
	query := fmt.Sprintf(
		`SELECT icao24, time, nic
		FROM %s
		WHERE icao24 = ? AND hour >= ? AND hour <= ? AND time >= ? AND time <= ?
		ORDER BY time`,
		s.table,
	)

	rows, err := s.db.QueryContext(ctx, query, aircraftID, hourFloor(minTime), maxTime, minTime, maxTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query quality signals: %w", err)
	}
	defer rows.Close()

	var signals []anomaly.QualitySignal
	for rows.Next() {
		var sig anomaly.QualitySignal
		var icao sql.NullString
		var nic sql.NullInt64

		if err := rows.Scan(&icao, &sig.MeasurementTime, &nic); err != nil {
			return nil, fmt.Errorf("failed to scan quality signal: %w", err)
		}

		sig.AircraftID = icao.String
		if nic.Valid {
			v := nic.Int64
			sig.NIC = &v
		}

		signals = append(signals, sig)
	}

	return signals, rows.Err()
}

// scanRawReports scans state-vector rows into RawReport values, keeping
// nullable columns nullable.
func scanRawReports(rows *sql.Rows) ([]anomaly.RawReport, error) {
	var reports []anomaly.RawReport
	for rows.Next() {
		var raw anomaly.RawReport
		var icao, callsign sql.NullString
		var lat, lon sql.NullFloat64
		var lastPos sql.NullInt64
		var nic sql.NullInt64

		if err := rows.Scan(&icao, &raw.Time, &callsign, &lat, &lon, &lastPos, &raw.OnGround, &nic); err != nil {
			return nil, fmt.Errorf("failed to scan state vector: %w", err)
		}

		if icao.Valid {
			v := icao.String
			raw.ICAO = &v
		}
		if callsign.Valid {
			v := callsign.String
			raw.Callsign = &v
		}
		if lat.Valid {
			v := lat.Float64
			raw.Lat = &v
		}
		if lon.Valid {
			v := lon.Float64
			raw.Lon = &v
		}
		raw.LastPosTime = lastPos.Int64
		if nic.Valid {
			v := nic.Int64
			raw.NIC = &v
		}

		reports = append(reports, raw)
	}

	return reports, rows.Err()
}

// hourFloor aligns a timestamp down to its hour partition value.
func hourFloor(t int64) int64 {
	return t - t%3600
}
