// Package postgres reads state vectors from an OpenSky-style PostgreSQL
// warehouse.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/skyfence/gpswatch/internal/anomaly"
	"github.com/skyfence/gpswatch/internal/config"
	"github.com/skyfence/gpswatch/pkg/logger"
)

// ReportStore reads state-vector rows from the warehouse. It implements
// both the report source and the quality-signal source.
type ReportStore struct {
	db     *sql.DB
	table  string
	logger *logger.Logger
}

// Connect establishes a connection to the PostgreSQL warehouse.
func Connect(cfg config.PostgresConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewReportStore creates a report store reading from the given table.
func NewReportStore(db *sql.DB, table string, log *logger.Logger) *ReportStore {
	return &ReportStore{
		db:     db,
		table:  table,
		logger: log.Named("postgres-reports"),
	}
}

// FetchReports returns the raw rows with time in [from, until). The hour
// column is the warehouse's partition key; bounding it keeps the scan to
// the partitions the window touches.
func (s *ReportStore) FetchReports(ctx context.Context, from, until int64) ([]anomaly.RawReport, error) {
	query := fmt.Sprintf(
		`SELECT icao24, time, callsign, lat, lon, lastposupdate, onground, nic
		FROM %s
		WHERE hour >= $1 AND hour < $2 AND time >= $3 AND time < $4
		ORDER BY icao24, time`,
		s.table,
	)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, hourFloor(from), until, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query state vectors: %w", err)
	}
	defer rows.Close()

	reports, err := scanRawReports(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("State vectors fetched",
		logger.Int64("from", from),
		logger.Int64("until", until),
		logger.Int("rows", len(reports)),
		logger.Duration("elapsed", time.Since(start)),
	)

	return reports, nil
}

// FetchQualitySignals returns NIC measurements for one aircraft with
// measurement time in [minTime, maxTime].
func (s *ReportStore) FetchQualitySignals(ctx context.Context, aircraftID string, minTime, maxTime int64) ([]anomaly.QualitySignal, error) {
	query := fmt.Sprintf(
		`SELECT icao24, time, nic
		FROM %s
		WHERE icao24 = $1 AND hour >= $2 AND hour <= $3 AND time >= $4 AND time <= $5
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

func scanRawReports(rows *sql.Rows) ([]anomaly.RawReport, error) {
	var reports []anomaly.RawReport
	for rows.Next() {
		var raw anomaly.RawReport
		var icao, callsign sql.NullString
		var lat, lon sql.NullFloat64
		var lastPos sql.NullFloat64
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
		// The warehouse stores lastposupdate with sub-second precision; the
		// detectors work in integer seconds.
		raw.LastPosTime = int64(lastPos.Float64)
		if nic.Valid {
			v := nic.Int64
			raw.NIC = &v
		}

		reports = append(reports, raw)
	}

	return reports, rows.Err()
}

func hourFloor(t int64) int64 {
	return t - t%3600
}
