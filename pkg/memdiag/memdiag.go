// Package memdiag logs runtime memory statistics alongside the configured
// memory budget.
//
// Enable with --debug or PIVOTAB_MEM_DEBUG=1.
package memdiag

import (
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eunmann/pivotab/pkg/humanfmt"
)

// EnvMemDebug enables diagnostics when set to "1".
const EnvMemDebug = "PIVOTAB_MEM_DEBUG"

// Config holds configuration for memory diagnostics.
type Config struct {
	// Enabled controls whether memory diagnostics are active.
	Enabled bool

	// LogInterval is the interval for periodic logging; 0 disables it.
	LogInterval time.Duration
}

// DefaultConfig reads Enabled from the environment.
func DefaultConfig() Config {
	return Config{
		Enabled:     os.Getenv(EnvMemDebug) == "1",
		LogInterval: 5 * time.Second,
	}
}

// Stats holds memory statistics from runtime.
type Stats struct {
	HeapAlloc  uint64
	HeapSys    uint64
	HeapInuse  uint64
	StackInuse uint64
	Sys        uint64
	NumGC      uint32
}

// Read reads current memory statistics.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		HeapInuse:  m.HeapInuse,
		StackInuse: m.StackInuse,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
	}
}

// Tracker logs memory usage per phase and, once started, periodically.
type Tracker struct {
	config  Config
	log     zerolog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	started atomic.Bool

	mu       sync.Mutex
	phase    string
	peakHeap uint64
}

// NewTracker creates a tracker that logs to log.
func NewTracker(config Config, log zerolog.Logger) *Tracker {
	return &Tracker{
		config: config,
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		phase:  "init",
	}
}

// Start begins periodic logging if enabled.
func (t *Tracker) Start() {
	if !t.config.Enabled || t.config.LogInterval <= 0 {
		return
	}
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	go t.logLoop()
}

// Stop stops periodic logging and waits for the logger goroutine to exit.
func (t *Tracker) Stop() {
	if !t.started.Load() {
		return
	}
	close(t.stopCh)
	<-t.doneCh
}

// SetPhase records the current phase and logs a snapshot.
func (t *Tracker) SetPhase(phase string) {
	t.mu.Lock()
	t.phase = phase
	t.mu.Unlock()

	t.LogNow("phase_change")
}

// LogNow logs current memory stats immediately.
func (t *Tracker) LogNow(reason string) {
	if !t.config.Enabled {
		return
	}
	stats, phase, peak := t.sample()

	t.log.Debug().
		Str("reason", reason).
		Str("phase", phase).
		Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
		Str("heap_inuse", humanfmt.Bytes(int64(stats.HeapInuse))).
		Str("stack_inuse", humanfmt.Bytes(int64(stats.StackInuse))).
		Str("sys_total", humanfmt.Bytes(int64(stats.Sys))).
		Str("peak_heap", humanfmt.Bytes(int64(peak))).
		Uint32("num_gc", stats.NumGC).
		Msg("memory stats")
}

// LogWithBudget logs heap usage against the budget and warns when the heap
// has outgrown it.
func (t *Tracker) LogWithBudget(reason string, budgetTotal uint64) {
	if !t.config.Enabled {
		return
	}
	stats, phase, peak := t.sample()

	var ratio float64
	if budgetTotal > 0 {
		ratio = float64(stats.HeapAlloc) / float64(budgetTotal)
	}
	t.log.Debug().
		Str("reason", reason).
		Str("phase", phase).
		Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
		Str("budget_total", humanfmt.Bytes(int64(budgetTotal))).
		Float64("heap_vs_budget_ratio", ratio).
		Str("peak_heap", humanfmt.Bytes(int64(peak))).
		Msg("memory stats with budget")

	if ratio > 1 {
		t.log.Warn().
			Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
			Str("budget_total", humanfmt.Bytes(int64(budgetTotal))).
			Float64("ratio", ratio).
			Msg("heap usage exceeds memory budget")
	}
}

// PeakHeap returns the peak heap allocation seen.
func (t *Tracker) PeakHeap() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peakHeap
}

func (t *Tracker) sample() (Stats, string, uint64) {
	stats := Read()
	t.mu.Lock()
	defer t.mu.Unlock()
	if stats.HeapAlloc > t.peakHeap {
		t.peakHeap = stats.HeapAlloc
	}
	return stats, t.phase, t.peakHeap
}

func (t *Tracker) logLoop() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.config.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			t.LogNow("shutdown")
			return
		case <-ticker.C:
			t.LogNow("periodic")
		}
	}
}
