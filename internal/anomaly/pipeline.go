package anomaly

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/skyfence/gpswatch/pkg/logger"
)

// ReportSource yields the raw state-vector rows for one bounded time range.
type ReportSource interface {
	FetchReports(ctx context.Context, from, until int64) ([]RawReport, error)
}

// QualitySource yields NIC measurements for one aircraft and time range.
// Implementations must be safe for concurrent use: Run calls it from worker
// goroutines, one per aircraft partition.
type QualitySource interface {
	FetchQualitySignals(ctx context.Context, aircraftID string, minTime, maxTime int64) ([]QualitySignal, error)
}

// Pipeline runs the windowed detection over one [from, until) range at a
// time. Invocations are independent and stateless across windows.
type Pipeline struct {
	source  ReportSource
	quality QualitySource
	workers int
	logger  *logger.Logger
}

// NewPipeline creates a detection pipeline. workers bounds the per-aircraft
// parallelism; values below 1 are treated as 1.
func NewPipeline(source ReportSource, quality QualitySource, workers int, log *logger.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		source:  source,
		quality: quality,
		workers: workers,
		logger:  log.Named("pipeline"),
	}
}

// aircraftResult carries one partition's output back from a worker.
type aircraftResult struct {
	sessions []GapSession
	jumps    []JumpEvent
	err      error
}

// Run executes the full pipeline for one window. Aircraft partitions are
// processed concurrently; within a partition processing is sequential. Any
// source failure fails the whole window — the caller never sees a partial
// result.
func (p *Pipeline) Run(ctx context.Context, from, until int64) (*WindowResult, error) {
	raws, err := p.source.FetchReports(ctx, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reports for window [%d, %d): %w", from, until, err)
	}

	reports := FilterReports(raws, from, until)
	partitions := PartitionByAircraft(reports)

	p.logger.Debug("Window fetched",
		logger.Int64("from", from),
		logger.Int64("until", until),
		logger.Int("raw_reports", len(raws)),
		logger.Int("admissible_reports", len(reports)),
		logger.Int("aircraft", len(partitions)),
	)

	ids := make([]string, 0, len(partitions))
	for id := range partitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	jobs := make(chan string)
	results := make(chan aircraftResult, len(ids))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				sessions, jumps, err := p.processAircraft(ctx, id, partitions[id])
				results <- aircraftResult{sessions: sessions, jumps: jumps, err: err}
			}
		}()
	}

	for _, id := range ids {
		jobs <- id
	}
	close(jobs)
	wg.Wait()
	close(results)

	result := &WindowResult{FromTime: from, UntilTime: until}
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		result.GapSessions = append(result.GapSessions, res.sessions...)
		result.JumpEvents = append(result.JumpEvents, res.jumps...)
	}

	// Deterministic output order: sessions by (aircraft, start), jump events
	// grouped per aircraft ascending in time.
	sort.Slice(result.GapSessions, func(i, j int) bool {
		a, b := result.GapSessions[i], result.GapSessions[j]
		if a.AircraftID != b.AircraftID {
			return a.AircraftID < b.AircraftID
		}
		return a.StartTime < b.StartTime
	})
	sort.Slice(result.JumpEvents, func(i, j int) bool {
		a, b := result.JumpEvents[i], result.JumpEvents[j]
		if a.AircraftID != b.AircraftID {
			return a.AircraftID < b.AircraftID
		}
		return a.TimeAt < b.TimeAt
	})

	p.logger.Info("Window analyzed",
		logger.Int64("from", from),
		logger.Int64("until", until),
		logger.Int("gap_sessions", len(result.GapSessions)),
		logger.Int("jump_events", len(result.JumpEvents)),
	)

	return result, nil
}

// processAircraft runs the sequential per-partition stages: neighbor
// linking, gap sessionization, jump detection and the quality join.
func (p *Pipeline) processAircraft(ctx context.Context, id string, reports []Report) ([]GapSession, []JumpEvent, error) {
	linked := LinkReports(reports)

	sessions := DetectGapSessions(linked)
	jumps := DetectJumpEvents(linked)

	if len(sessions) > 0 && p.quality != nil {
		minTime := sessions[0].StartTime
		maxTime := sessions[0].EndTime
		for _, s := range sessions[1:] {
			if s.StartTime < minTime {
				minTime = s.StartTime
			}
			if s.EndTime > maxTime {
				maxTime = s.EndTime
			}
		}

		signals, err := p.quality.FetchQualitySignals(ctx, id, minTime, maxTime)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch quality signals for %s: %w", id, err)
		}

		// One merged summary per aircraft, attached to every session.
		stats := AggregateQuality(sessions, signals)
		for i := range sessions {
			sessions[i].Quality = stats
		}
	}

	return sessions, jumps, nil
}
