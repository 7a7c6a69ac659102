// Package export writes per-window CSV report files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/skyfence/gpswatch/internal/anomaly"
	"github.com/skyfence/gpswatch/pkg/logger"
)

// Writer writes one pair of report files (gaps, jumps) per processed window.
type Writer struct {
	dir    string
	logger *logger.Logger
}

// NewWriter creates a CSV report writer rooted at dir.
func NewWriter(dir string, log *logger.Logger) *Writer {
	return &Writer{
		dir:    dir,
		logger: log.Named("csv-export"),
	}
}

// WriteWindow writes the window's gap sessions and jump events to two CSV
// files named after the window bounds, e.g.
// 1672531200-1672617600_2023-01-01_to_2023-01-02_gaps.csv.
func (w *Writer) WriteWindow(result *anomaly.WindowResult) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	base := fmt.Sprintf("%d-%d_%s_to_%s",
		result.FromTime,
		result.UntilTime,
		time.Unix(result.FromTime, 0).UTC().Format("2006-01-02"),
		time.Unix(result.UntilTime, 0).UTC().Format("2006-01-02"),
	)

	gapsPath := filepath.Join(w.dir, base+"_gaps.csv")
	if err := w.writeGapSessions(gapsPath, result.GapSessions); err != nil {
		return err
	}

	jumpsPath := filepath.Join(w.dir, base+"_jumps.csv")
	if err := w.writeJumpEvents(jumpsPath, result.JumpEvents); err != nil {
		return err
	}

	w.logger.Info("Window reports written",
		logger.String("gaps", gapsPath),
		logger.String("jumps", jumpsPath),
	)

	return nil
}

func (w *Writer) writeGapSessions(path string, sessions []anomaly.GapSession) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{
		"icao24", "callsign", "null_start_time", "null_end_time",
		"time_of_previous_not_null_coords", "time_of_next_not_null_coords",
		"previous_latitude", "previous_longitude", "next_latitude", "next_longitude",
		"between_coords_distance_m", "null_duration_seconds",
		"between_coords_duration_seconds", "avg_nic", "min_nic", "max_nic",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, gs := range sessions {
		record := []string{
			gs.AircraftID,
			gs.Callsign,
			strconv.FormatInt(gs.StartTime, 10),
			strconv.FormatInt(gs.EndTime, 10),
			strconv.FormatInt(gs.Before.Time, 10),
			strconv.FormatInt(gs.After.Time, 10),
			formatCoord(gs.Before.Lat),
			formatCoord(gs.Before.Lon),
			formatCoord(gs.After.Lat),
			formatCoord(gs.After.Lon),
			strconv.FormatInt(gs.BoundaryDistanceM, 10),
			strconv.FormatInt(gs.DurationSeconds, 10),
			strconv.FormatInt(gs.BoundaryDurationSeconds, 10),
			formatNullableFloat(gs.Quality.AvgNIC),
			formatNullableInt(gs.Quality.MinNIC),
			formatNullableInt(gs.Quality.MaxNIC),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write gap session row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeJumpEvents(path string, events []anomaly.JumpEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{
		"icao24", "callsign", "time_before", "lat_before", "lon_before",
		"time_at", "lat_at", "lon_at", "distance_meters", "time_difference_seconds",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, je := range events {
		record := []string{
			je.AircraftID,
			je.Callsign,
			strconv.FormatInt(je.TimeBefore, 10),
			formatCoord(je.LatBefore),
			formatCoord(je.LonBefore),
			strconv.FormatInt(je.TimeAt, 10),
			formatCoord(je.LatAt),
			formatCoord(je.LonAt),
			strconv.FormatInt(je.DistanceMeters, 10),
			strconv.FormatInt(je.TimeDifferenceSeconds, 10),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write jump event row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullableFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatNullableInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
