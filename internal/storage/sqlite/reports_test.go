package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vectorRow struct {
	icao     interface{}
	time     int64
	callsign interface{}
	lat      interface{}
	lon      interface{}
	lastPos  interface{}
	onGround bool
	nic      interface{}
}

func seedStateVectors(t *testing.T, db *sql.DB, rows []vectorRow) {
	t.Helper()

	_, err := db.Exec(`
		CREATE TABLE state_vectors (
			icao24 TEXT,
			time INTEGER NOT NULL,
			hour INTEGER NOT NULL,
			callsign TEXT,
			lat REAL,
			lon REAL,
			lastposupdate INTEGER,
			onground BOOLEAN NOT NULL,
			nic INTEGER
		)
	`)
	require.NoError(t, err)

	for _, r := range rows {
		_, err := db.Exec(
			`INSERT INTO state_vectors (icao24, time, hour, callsign, lat, lon, lastposupdate, onground, nic)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.icao, r.time, r.time-r.time%3600, r.callsign, r.lat, r.lon, r.lastPos, r.onGround, r.nic,
		)
		require.NoError(t, err)
	}
}

func TestFetchReports(t *testing.T) {
	db := openTestDB(t)
	seedStateVectors(t, db, []vectorRow{
		{icao: "abcdef", time: 100, callsign: "UAL1", lat: 40.0, lon: -74.0, lastPos: int64(100), nic: int64(8)},
		{icao: "abcdef", time: 200, callsign: "UAL1"},
		{icao: "aaaaaa", time: 150, lat: 10.0, lon: 20.0, lastPos: int64(149)},
		{icao: "abcdef", time: 999, lat: 41.0, lon: -74.0, lastPos: int64(999)},
		{icao: "abcdef", time: 1000, lat: 42.0, lon: -74.0, lastPos: int64(1000)}, // at the exclusive bound
		{icao: "abcdef", time: 5000, lat: 43.0, lon: -74.0, lastPos: int64(5000)}, // next hour partition
	})

	store := NewReportStore(db, "state_vectors", testLogger(t))
	reports, err := store.FetchReports(context.Background(), 100, 1000)
	require.NoError(t, err)
	require.Len(t, reports, 4)

	// Ordered by (icao24, time).
	assert.Equal(t, "aaaaaa", *reports[0].ICAO)
	assert.Equal(t, int64(150), reports[0].Time)
	assert.Equal(t, "abcdef", *reports[1].ICAO)
	assert.Equal(t, int64(100), reports[1].Time)
	assert.Equal(t, int64(999), reports[3].Time)

	full := reports[1]
	require.NotNil(t, full.Callsign)
	assert.Equal(t, "UAL1", *full.Callsign)
	require.NotNil(t, full.Lat)
	assert.Equal(t, 40.0, *full.Lat)
	assert.Equal(t, int64(100), full.LastPosTime)
	require.NotNil(t, full.NIC)
	assert.Equal(t, int64(8), *full.NIC)
	assert.False(t, full.OnGround)

	// Nullable columns stay nil rather than collapsing to zero values.
	sparse := reports[2]
	assert.Equal(t, int64(200), sparse.Time)
	assert.Nil(t, sparse.Lat)
	assert.Nil(t, sparse.Lon)
	assert.Nil(t, sparse.NIC)
	assert.Equal(t, int64(0), sparse.LastPosTime)
}

func TestFetchReportsOnGround(t *testing.T) {
	db := openTestDB(t)
	seedStateVectors(t, db, []vectorRow{
		{icao: "abcdef", time: 100, lat: 40.0, lon: -74.0, lastPos: int64(100), onGround: true},
	})

	store := NewReportStore(db, "state_vectors", testLogger(t))
	reports, err := store.FetchReports(context.Background(), 0, 1000)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].OnGround)
}

func TestFetchReportsEmptyWindow(t *testing.T) {
	db := openTestDB(t)
	seedStateVectors(t, db, []vectorRow{
		{icao: "abcdef", time: 100, lat: 40.0, lon: -74.0, lastPos: int64(100)},
	})

	store := NewReportStore(db, "state_vectors", testLogger(t))
	reports, err := store.FetchReports(context.Background(), 200, 300)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestFetchQualitySignals(t *testing.T) {
	db := openTestDB(t)
	seedStateVectors(t, db, []vectorRow{
		{icao: "abcdef", time: 100, nic: int64(7)},
		{icao: "abcdef", time: 150},              // null NIC still returned
		{icao: "abcdef", time: 200, nic: int64(9)}, // at the inclusive upper bound
		{icao: "abcdef", time: 201, nic: int64(5)}, // past the bound
		{icao: "bbbbbb", time: 150, nic: int64(3)}, // other aircraft
	})

	store := NewReportStore(db, "state_vectors", testLogger(t))
	signals, err := store.FetchQualitySignals(context.Background(), "abcdef", 100, 200)
	require.NoError(t, err)
	require.Len(t, signals, 3)

	assert.Equal(t, int64(100), signals[0].MeasurementTime)
	require.NotNil(t, signals[0].NIC)
	assert.Equal(t, int64(7), *signals[0].NIC)

	assert.Nil(t, signals[1].NIC)

	assert.Equal(t, int64(200), signals[2].MeasurementTime)
	for _, sig := range signals {
		assert.Equal(t, "abcdef", sig.AircraftID)
	}
}

func TestHourFloor(t *testing.T) {
	assert.Equal(t, int64(0), hourFloor(0))
	assert.Equal(t, int64(0), hourFloor(3599))
	assert.Equal(t, int64(3600), hourFloor(3600))
	assert.Equal(t, int64(3600), hourFloor(5000))
}
