package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/skyfence/gpswatch/internal/anomaly"
	"github.com/skyfence/gpswatch/pkg/logger"
)

// ResultStore persists and serves detection results
type ResultStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// WindowSummary describes one processed window
type WindowSummary struct {
	FromTime    int64     `json:"from_time"`
	UntilTime   int64     `json:"until_time"`
	GapSessions int       `json:"gap_sessions"`
	JumpEvents  int       `json:"jump_events"`
	ProcessedAt time.Time `json:"processed_at"`
}

// NewResultStore creates a new SQLite result store
func NewResultStore(db *sql.DB, log *logger.Logger) (*ResultStore, error) {
	store := &ResultStore{
		db:     db,
		logger: log.Named("sqlite-results"),
	}

	if err := store.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize result store: %w", err)
	}

	return store, nil
}

// initDB initializes the database tables
func (s *ResultStore) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_windows (
			from_time INTEGER PRIMARY KEY,
			until_time INTEGER NOT NULL,
			gap_sessions INTEGER NOT NULL,
			jump_events INTEGER NOT NULL,
			processed_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create processed_windows table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS gap_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			window_from INTEGER NOT NULL,
			aircraft_id TEXT NOT NULL,
			callsign TEXT,
			start_time INTEGER NOT NULL,
			end_time INTEGER NOT NULL,
			duration_seconds INTEGER NOT NULL,
			before_time INTEGER NOT NULL,
			before_lat REAL NOT NULL,
			before_lon REAL NOT NULL,
			after_time INTEGER NOT NULL,
			after_lat REAL NOT NULL,
			after_lon REAL NOT NULL,
			boundary_distance_m INTEGER NOT NULL,
			boundary_duration_seconds INTEGER NOT NULL,
			avg_nic REAL,
			min_nic INTEGER,
			max_nic INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create gap_sessions table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jump_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			window_from INTEGER NOT NULL,
			aircraft_id TEXT NOT NULL,
			callsign TEXT,
			time_before INTEGER NOT NULL,
			lat_before REAL NOT NULL,
			lon_before REAL NOT NULL,
			time_at INTEGER NOT NULL,
			lat_at REAL NOT NULL,
			lon_at REAL NOT NULL,
			distance_meters INTEGER NOT NULL,
			time_difference_seconds INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create jump_events table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_gap_sessions_aircraft ON gap_sessions(aircraft_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_gap_sessions_window ON gap_sessions(window_from)`,
		`CREATE INDEX IF NOT EXISTS idx_jump_events_aircraft ON jump_events(aircraft_id, time_at)`,
		`CREATE INDEX IF NOT EXISTS idx_jump_events_window ON jump_events(window_from)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// SaveWindow persists one window's gap sessions and jump events atomically.
// Re-running a window replaces its previous rows, so a retried window never
// leaves duplicates or partial output behind.
func (s *ResultStore) SaveWindow(result *anomaly.WindowResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM gap_sessions WHERE window_from = ?`, result.FromTime); err != nil {
		return fmt.Errorf("failed to clear previous gap sessions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM jump_events WHERE window_from = ?`, result.FromTime); err != nil {
		return fmt.Errorf("failed to clear previous jump events: %w", err)
	}

	for _, gs := range result.GapSessions {
		_, err := tx.Exec(
			`INSERT INTO gap_sessions
			(window_from, aircraft_id, callsign, start_time, end_time, duration_seconds,
			before_time, before_lat, before_lon, after_time, after_lat, after_lon,
			boundary_distance_m, boundary_duration_seconds, avg_nic, min_nic, max_nic)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.FromTime,
			gs.AircraftID,
			gs.Callsign,
			gs.StartTime,
			gs.EndTime,
			gs.DurationSeconds,
			gs.Before.Time,
			gs.Before.Lat,
			gs.Before.Lon,
			gs.After.Time,
			gs.After.Lat,
			gs.After.Lon,
			gs.BoundaryDistanceM,
			gs.BoundaryDurationSeconds,
			nullableFloat(gs.Quality.AvgNIC),
			nullableInt(gs.Quality.MinNIC),
			nullableInt(gs.Quality.MaxNIC),
		)
		if err != nil {
			return fmt.Errorf("failed to insert gap session: %w", err)
		}
	}

	for _, je := range result.JumpEvents {
		_, err := tx.Exec(
			`INSERT INTO jump_events
			(window_from, aircraft_id, callsign, time_before, lat_before, lon_before,
			time_at, lat_at, lon_at, distance_meters, time_difference_seconds)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.FromTime,
			je.AircraftID,
			je.Callsign,
			je.TimeBefore,
			je.LatBefore,
			je.LonBefore,
			je.TimeAt,
			je.LatAt,
			je.LonAt,
			je.DistanceMeters,
			je.TimeDifferenceSeconds,
		)
		if err != nil {
			return fmt.Errorf("failed to insert jump event: %w", err)
		}
	}

	_, err = tx.Exec(
		`INSERT INTO processed_windows (from_time, until_time, gap_sessions, jump_events, processed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (from_time) DO UPDATE SET
			until_time = excluded.until_time,
			gap_sessions = excluded.gap_sessions,
			jump_events = excluded.jump_events,
			processed_at = excluded.processed_at`,
		result.FromTime,
		result.UntilTime,
		len(result.GapSessions),
		len(result.JumpEvents),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record processed window: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit window results: %w", err)
	}

	return nil
}

// ListGapSessions returns persisted gap sessions ordered by
// (aircraft_id, start_time). An empty aircraftID matches all aircraft.
func (s *ResultStore) ListGapSessions(aircraftID string, limit, offset int) ([]anomaly.GapSession, error) {
	rows, err := s.db.Query(
		`SELECT aircraft_id, callsign, start_time, end_time, duration_seconds,
			before_time, before_lat, before_lon, after_time, after_lat, after_lon,
			boundary_distance_m, boundary_duration_seconds, avg_nic, min_nic, max_nic
		FROM gap_sessions
		WHERE (? = '' OR aircraft_id = ?)
		ORDER BY aircraft_id, start_time
		LIMIT ? OFFSET ?`,
		aircraftID, aircraftID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query gap sessions: %w", err)
	}
	defer rows.Close()

	var sessions []anomaly.GapSession
	for rows.Next() {
		var gs anomaly.GapSession
		var callsign sql.NullString
		var avgNIC sql.NullFloat64
		var minNIC, maxNIC sql.NullInt64

		if err := rows.Scan(
			&gs.AircraftID,
			&callsign,
			&gs.StartTime,
			&gs.EndTime,
			&gs.DurationSeconds,
			&gs.Before.Time,
			&gs.Before.Lat,
			&gs.Before.Lon,
			&gs.After.Time,
			&gs.After.Lat,
			&gs.After.Lon,
			&gs.BoundaryDistanceM,
			&gs.BoundaryDurationSeconds,
			&avgNIC,
			&minNIC,
			&maxNIC,
		); err != nil {
			return nil, fmt.Errorf("failed to scan gap session: %w", err)
		}

		gs.Callsign = callsign.String
		if avgNIC.Valid {
			v := avgNIC.Float64
			gs.Quality.AvgNIC = &v
		}
		if minNIC.Valid {
			v := minNIC.Int64
			gs.Quality.MinNIC = &v
		}
		if maxNIC.Valid {
			v := maxNIC.Int64
			gs.Quality.MaxNIC = &v
		}

		sessions = append(sessions, gs)
	}

	return sessions, rows.Err()
}

// ListJumpEvents returns persisted jump events grouped by aircraft and
// ascending in time. An empty aircraftID matches all aircraft.
func (s *ResultStore) ListJumpEvents(aircraftID string, limit, offset int) ([]anomaly.JumpEvent, error) {
	rows, err := s.db.Query(
		`SELECT aircraft_id, callsign, time_before, lat_before, lon_before,
			time_at, lat_at, lon_at, distance_meters, time_difference_seconds
		FROM jump_events
		WHERE (? = '' OR aircraft_id = ?)
		ORDER BY aircraft_id, time_at
		LIMIT ? OFFSET ?`,
		aircraftID, aircraftID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query jump events: %w", err)
	}
	defer rows.Close()

	var events []anomaly.JumpEvent
	for rows.Next() {
		var je anomaly.JumpEvent
		var callsign sql.NullString

		if err := rows.Scan(
			&je.AircraftID,
			&callsign,
			&je.TimeBefore,
			&je.LatBefore,
			&je.LonBefore,
			&je.TimeAt,
			&je.LatAt,
			&je.LonAt,
			&je.DistanceMeters,
			&je.TimeDifferenceSeconds,
		); err != nil {
			return nil, fmt.Errorf("failed to scan jump event: %w", err)
		}

		je.Callsign = callsign.String
		events = append(events, je)
	}

	return events, rows.Err()
}

// ListWindows returns the processed-window ledger, most recent first.
func (s *ResultStore) ListWindows(limit int) ([]WindowSummary, error) {
	rows, err := s.db.Query(
		`SELECT from_time, until_time, gap_sessions, jump_events, processed_at
		FROM processed_windows
		ORDER BY from_time DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed windows: %w", err)
	}
	defer rows.Close()

	var windows []WindowSummary
	for rows.Next() {
		var w WindowSummary
		var processedAt string

		if err := rows.Scan(&w.FromTime, &w.UntilTime, &w.GapSessions, &w.JumpEvents, &processedAt); err != nil {
			return nil, fmt.Errorf("failed to scan processed window: %w", err)
		}

		w.ProcessedAt, err = time.Parse(time.RFC3339, processedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse processed_at: %w", err)
		}

		windows = append(windows, w)
	}

	return windows, rows.Err()
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
