// Package logging provides progress reporting for multi-step runs on top of
// zerolog.
package logging

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eunmann/pivotab/pkg/humanfmt"
)

// ProgressTracker tracks completion of a fixed number of items with an ETA
// based on a moving average of recent item durations. It is safe for
// concurrent use.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	failed    atomic.Int64
	startTime time.Time
	log       zerolog.Logger
	phase     string

	mu              sync.Mutex
	recentDurations []time.Duration
	maxRecent       int
}

// NewProgressTracker creates a tracker for total items.
func NewProgressTracker(phase string, total int64, log zerolog.Logger) *ProgressTracker {
	return &ProgressTracker{
		total:           total,
		startTime:       time.Now(),
		log:             log,
		phase:           phase,
		recentDurations: make([]time.Duration, 0, 10),
		maxRecent:       10,
	}
}

// RecordCompletion records that an item completed in d and logs progress at
// debug level.
func (pt *ProgressTracker) RecordCompletion(d time.Duration) {
	done := pt.completed.Add(1)

	pt.mu.Lock()
	if len(pt.recentDurations) >= pt.maxRecent {
		pt.recentDurations = pt.recentDurations[1:]
	}
	pt.recentDurations = append(pt.recentDurations, d)
	pt.mu.Unlock()

	e := pt.log.Debug().
		Str("event", "item_completed").
		Str("phase", pt.phase).
		Int64("done", done).
		Int64("total", pt.total).
		Float64("progress_pct", pt.ProgressPct()).
		Str("item_elapsed", humanfmt.Duration(d))
	if eta := pt.ETA(); eta > 0 {
		e = e.Str("eta", humanfmt.Duration(eta))
	}
	e.Msg("progress")
}

// RecordFailure records that an item failed.
func (pt *ProgressTracker) RecordFailure() {
	pt.failed.Add(1)
}

// Progress returns the completed, failed and total counts.
func (pt *ProgressTracker) Progress() (completed, failed, total int64) {
	return pt.completed.Load(), pt.failed.Load(), pt.total
}

// ProgressPct returns the share of finished items (completed or failed),
// 0-100.
func (pt *ProgressTracker) ProgressPct() float64 {
	if pt.total == 0 {
		return 100.0
	}
	done := pt.completed.Load() + pt.failed.Load()
	return float64(done) * 100.0 / float64(pt.total)
}

// ETA estimates the time remaining from the recent average item duration.
func (pt *ProgressTracker) ETA() time.Duration {
	completed := pt.completed.Load()
	if completed == 0 {
		return 0
	}
	remaining := pt.Remaining()
	if remaining <= 0 {
		return 0
	}

	pt.mu.Lock()
	var avg time.Duration
	if len(pt.recentDurations) > 0 {
		var sum time.Duration
		for _, d := range pt.recentDurations {
			sum += d
		}
		avg = sum / time.Duration(len(pt.recentDurations))
	} else {
		avg = time.Since(pt.startTime) / time.Duration(completed)
	}
	pt.mu.Unlock()

	return avg * time.Duration(remaining)
}

// Remaining returns the number of unfinished items.
func (pt *ProgressTracker) Remaining() int64 {
	return pt.total - pt.completed.Load() - pt.failed.Load()
}

// Elapsed returns time since the tracker was created.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.startTime)
}

// Done logs a phase completion summary at info level.
func (pt *ProgressTracker) Done(msg string) {
	completed, failed, total := pt.Progress()
	pt.log.Info().
		Str("event", "phase_completed").
		Str("phase", pt.phase).
		Int64("completed", completed).
		Int64("failed", failed).
		Int64("total", total).
		Str("elapsed", humanfmt.Duration(pt.Elapsed())).
		Msg(msg)
}
