package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/skyfence/gpswatch/internal/anomaly"
	"github.com/skyfence/gpswatch/internal/config"
	"github.com/skyfence/gpswatch/internal/storage/sqlite"
	"github.com/skyfence/gpswatch/pkg/logger"
)

func testServer(t *testing.T) (*httptest.Server, *sqlite.ResultStore) {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Format: "json"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := sqlite.NewResultStore(db, log)
	if err != nil {
		t.Fatalf("failed to create result store: %v", err)
	}

	cfg := config.DefaultConfig()
	srv := httptest.NewServer(NewRouter(store, cfg, log).Routes())
	t.Cleanup(srv.Close)

	return srv, store
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp
}

func seedResults(t *testing.T, store *sqlite.ResultStore) {
	t.Helper()
	err := store.SaveWindow(&anomaly.WindowResult{
		FromTime:  1000,
		UntilTime: 2000,
		GapSessions: []anomaly.GapSession{
			{AircraftID: "aaaaaa", StartTime: 1030, EndTime: 1095, DurationSeconds: 65},
			{AircraftID: "bbbbbb", StartTime: 1100, EndTime: 1170, DurationSeconds: 70},
		},
		JumpEvents: []anomaly.JumpEvent{
			{AircraftID: "aaaaaa", TimeBefore: 1500, TimeAt: 1501, DistanceMeters: 111195, TimeDifferenceSeconds: 1},
		},
	})
	if err != nil {
		t.Fatalf("failed to seed results: %v", err)
	}
}

func TestGetHealth(t *testing.T) {
	srv, _ := testServer(t)

	var body map[string]interface{}
	resp := getJSON(t, srv.URL+"/api/v1/health", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestGetGapSessions(t *testing.T) {
	srv, store := testServer(t)
	seedResults(t, store)

	var body struct {
		Count       int                  `json:"count"`
		GapSessions []anomaly.GapSession `json:"gap_sessions"`
	}
	resp := getJSON(t, srv.URL+"/api/v1/gap-sessions", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body.Count != 2 || len(body.GapSessions) != 2 {
		t.Fatalf("expected 2 sessions, got count=%d len=%d", body.Count, len(body.GapSessions))
	}
	if body.GapSessions[0].AircraftID != "aaaaaa" {
		t.Errorf("expected aircraft-ordered output, got %q first", body.GapSessions[0].AircraftID)
	}
}

func TestGetGapSessionsAircraftFilter(t *testing.T) {
	srv, store := testServer(t)
	seedResults(t, store)

	var body struct {
		Count       int                  `json:"count"`
		GapSessions []anomaly.GapSession `json:"gap_sessions"`
	}
	getJSON(t, srv.URL+"/api/v1/gap-sessions?aircraft=bbbbbb", &body)
	if body.Count != 1 || body.GapSessions[0].AircraftID != "bbbbbb" {
		t.Errorf("filter not applied: %+v", body)
	}
}

func TestGetJumpEvents(t *testing.T) {
	srv, store := testServer(t)
	seedResults(t, store)

	var body struct {
		Count      int                 `json:"count"`
		JumpEvents []anomaly.JumpEvent `json:"jump_events"`
	}
	resp := getJSON(t, srv.URL+"/api/v1/jump-events", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body.Count != 1 || body.JumpEvents[0].DistanceMeters != 111195 {
		t.Errorf("unexpected jump events: %+v", body)
	}
}

func TestGetWindows(t *testing.T) {
	srv, store := testServer(t)
	seedResults(t, store)

	var body struct {
		Count   int                    `json:"count"`
		Windows []sqlite.WindowSummary `json:"windows"`
	}
	getJSON(t, srv.URL+"/api/v1/windows", &body)
	if body.Count != 1 || body.Windows[0].FromTime != 1000 {
		t.Errorf("unexpected windows: %+v", body)
	}
	if body.Windows[0].GapSessions != 2 || body.Windows[0].JumpEvents != 1 {
		t.Errorf("unexpected window counts: %+v", body.Windows[0])
	}
}

func TestPaginationLimits(t *testing.T) {
	srv, store := testServer(t)
	seedResults(t, store)

	var body struct {
		Count int `json:"count"`
	}
	getJSON(t, srv.URL+"/api/v1/gap-sessions?limit=1", &body)
	if body.Count != 1 {
		t.Errorf("expected limit=1 to cap the page, got %d", body.Count)
	}

	getJSON(t, srv.URL+"/api/v1/gap-sessions?limit=1&offset=1", &body)
	if body.Count != 1 {
		t.Errorf("expected offset paging to return the second row, got %d", body.Count)
	}

	// Nonsense values fall back to the defaults.
	getJSON(t, srv.URL+"/api/v1/gap-sessions?limit=-5&offset=bogus", &body)
	if body.Count != 2 {
		t.Errorf("expected default paging on bad params, got %d", body.Count)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := testServer(t)

	resp := getJSON(t, srv.URL+"/api/v1/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
