package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfence/gpswatch/internal/anomaly"
	"github.com/skyfence/gpswatch/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "json"})
	require.NoError(t, err)
	return log
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleWindow() *anomaly.WindowResult {
	avg := 7.5
	minNIC := int64(6)
	maxNIC := int64(9)

	return &anomaly.WindowResult{
		FromTime:  1000,
		UntilTime: 2000,
		GapSessions: []anomaly.GapSession{{
			AircraftID:              "abcdef",
			Callsign:                "UAL1",
			StartTime:               1030,
			EndTime:                 1095,
			DurationSeconds:         65,
			Before:                  anomaly.Boundary{Time: 1000, Lat: 10, Lon: 20},
			After:                   anomaly.Boundary{Time: 1100, Lat: 10.01, Lon: 20.01},
			BoundaryDistanceM:       1555,
			BoundaryDurationSeconds: 100,
			Quality:                 anomaly.QualityStats{AvgNIC: &avg, MinNIC: &minNIC, MaxNIC: &maxNIC},
		}},
		JumpEvents: []anomaly.JumpEvent{{
			AircraftID:            "bbbbbb",
			TimeBefore:            1500,
			LatBefore:             40,
			LonBefore:             -74,
			TimeAt:                1501,
			LatAt:                 41,
			LonAt:                 -74,
			DistanceMeters:        111195,
			TimeDifferenceSeconds: 1,
		}},
	}
}

func TestSaveWindowRoundTrip(t *testing.T) {
	store, err := NewResultStore(openTestDB(t), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, store.SaveWindow(sampleWindow()))

	sessions, err := store.ListGapSessions("", 100, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	got := sessions[0]
	want := sampleWindow().GapSessions[0]
	assert.Equal(t, want.AircraftID, got.AircraftID)
	assert.Equal(t, want.Callsign, got.Callsign)
	assert.Equal(t, want.StartTime, got.StartTime)
	assert.Equal(t, want.EndTime, got.EndTime)
	assert.Equal(t, want.DurationSeconds, got.DurationSeconds)
	assert.Equal(t, want.Before, got.Before)
	assert.Equal(t, want.After, got.After)
	assert.Equal(t, want.BoundaryDistanceM, got.BoundaryDistanceM)
	assert.Equal(t, want.BoundaryDurationSeconds, got.BoundaryDurationSeconds)
	require.NotNil(t, got.Quality.AvgNIC)
	assert.Equal(t, 7.5, *got.Quality.AvgNIC)
	require.NotNil(t, got.Quality.MinNIC)
	assert.Equal(t, int64(6), *got.Quality.MinNIC)
	require.NotNil(t, got.Quality.MaxNIC)
	assert.Equal(t, int64(9), *got.Quality.MaxNIC)

	events, err := store.ListJumpEvents("", 100, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, sampleWindow().JumpEvents[0], events[0])
}

func TestSaveWindowNullQuality(t *testing.T) {
	store, err := NewResultStore(openTestDB(t), testLogger(t))
	require.NoError(t, err)

	result := sampleWindow()
	result.GapSessions[0].Quality = anomaly.QualityStats{}
	require.NoError(t, store.SaveWindow(result))

	sessions, err := store.ListGapSessions("", 100, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Nil(t, sessions[0].Quality.AvgNIC)
	assert.Nil(t, sessions[0].Quality.MinNIC)
	assert.Nil(t, sessions[0].Quality.MaxNIC)
}

func TestSaveWindowIdempotent(t *testing.T) {
	store, err := NewResultStore(openTestDB(t), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, store.SaveWindow(sampleWindow()))
	require.NoError(t, store.SaveWindow(sampleWindow()))

	sessions, err := store.ListGapSessions("", 100, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 1, "re-running a window must not duplicate rows")

	events, err := store.ListJumpEvents("", 100, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	windows, err := store.ListWindows(10)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, int64(1000), windows[0].FromTime)
	assert.Equal(t, 1, windows[0].GapSessions)
}

func TestSaveWindowReplacesPreviousRun(t *testing.T) {
	store, err := NewResultStore(openTestDB(t), testLogger(t))
	require.NoError(t, err)

	require.NoError(t, store.SaveWindow(sampleWindow()))

	// Second run of the same window found nothing. Its empty result must
	// replace the old rows.
	require.NoError(t, store.SaveWindow(&anomaly.WindowResult{FromTime: 1000, UntilTime: 2000}))

	sessions, err := store.ListGapSessions("", 100, 0)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	windows, err := store.ListWindows(10)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, 0, windows[0].GapSessions)
	assert.Equal(t, 0, windows[0].JumpEvents)
}

func TestSaveWindowKeepsOtherWindows(t *testing.T) {
	store, err := NewResultStore(openTestDB(t), testLogger(t))
	require.NoError(t, err)

	first := sampleWindow()
	second := sampleWindow()
	second.FromTime = 2000
	second.UntilTime = 3000
	second.GapSessions[0].StartTime = 2030
	second.GapSessions[0].EndTime = 2095

	require.NoError(t, store.SaveWindow(first))
	require.NoError(t, store.SaveWindow(second))

	sessions, err := store.ListGapSessions("", 100, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	windows, err := store.ListWindows(10)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	// Most recent window first.
	assert.Equal(t, int64(2000), windows[0].FromTime)
	assert.Equal(t, int64(1000), windows[1].FromTime)
}

func TestListGapSessionsFilterAndPaging(t *testing.T) {
	store, err := NewResultStore(openTestDB(t), testLogger(t))
	require.NoError(t, err)

	result := &anomaly.WindowResult{FromTime: 1000, UntilTime: 2000}
	for _, id := range []string{"aaaaaa", "aaaaaa", "bbbbbb"} {
		s := sampleWindow().GapSessions[0]
		s.AircraftID = id
		s.StartTime += int64(len(result.GapSessions)) * 100
		result.GapSessions = append(result.GapSessions, s)
	}
	require.NoError(t, store.SaveWindow(result))

	filtered, err := store.ListGapSessions("aaaaaa", 100, 0)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, s := range filtered {
		assert.Equal(t, "aaaaaa", s.AircraftID)
	}

	page, err := store.ListGapSessions("", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := store.ListGapSessions("", 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "bbbbbb", rest[0].AircraftID)
}

func TestNewResultStoreIsReentrant(t *testing.T) {
	db := openTestDB(t)

	_, err := NewResultStore(db, testLogger(t))
	require.NoError(t, err)

	// Opening the store against an already initialized database must not
	// fail on the existing schema.
	_, err = NewResultStore(db, testLogger(t))
	require.NoError(t, err)
}
