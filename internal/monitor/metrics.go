package monitor

import (
	"sync"
	"time"
)

// Metrics tracks in-memory counters for the monitoring loop.
type Metrics struct {
	mu sync.RWMutex

	PollRounds      int64 `json:"poll_rounds"`
	SamplesRecorded int64 `json:"samples_recorded"`
	PollFailures    int64 `json:"poll_failures"`
	CommandsRun     int64 `json:"commands_run"`
	SpikesFlagged   int64 `json:"spikes_flagged"`
	DropsFlagged    int64 `json:"drops_flagged"`

	// Sliding window for poll failure rate
	window []windowEntry
}

type windowEntry struct {
	ts     time.Time
	failed bool
}

const windowDuration = 15 * time.Minute

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	PollRounds      int64   `json:"poll_rounds"`
	SamplesRecorded int64   `json:"samples_recorded"`
	PollFailures    int64   `json:"poll_failures"`
	CommandsRun     int64   `json:"commands_run"`
	SpikesFlagged   int64   `json:"spikes_flagged"`
	DropsFlagged    int64   `json:"drops_flagged"`
	WindowPolls     int     `json:"window_polls_15m"`
	WindowFailures  int     `json:"window_failures_15m"`
	WindowFailRate  float64 `json:"window_failure_rate_15m"`
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRound records one completed poll round.
func (m *Metrics) RecordRound() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PollRounds++
}

// RecordSample records a successful per-server poll.
func (m *Metrics) RecordSample() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SamplesRecorded++
	m.addWindow(false)
}

// RecordPollFailure records a per-server poll failure.
func (m *Metrics) RecordPollFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PollFailures++
	m.addWindow(true)
}

// RecordCommand records one executed interactive command.
func (m *Metrics) RecordCommand() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommandsRun++
}

// RecordFinding records one flagged anomaly.
func (m *Metrics) RecordFinding(kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == KindDrop {
		m.DropsFlagged++
		return
	}
	m.SpikesFlagged++
}

func (m *Metrics) addWindow(failed bool) {
	now := time.Now()
	m.window = append(m.window, windowEntry{ts: now, failed: failed})
	m.pruneWindow(now)
}

func (m *Metrics) pruneWindow(now time.Time) {
	cutoff := now.Add(-windowDuration)
	i := 0
	for i < len(m.window) && m.window[i].ts.Before(cutoff) {
		i++
	}
	m.window = m.window[i:]
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	cutoff := now.Add(-windowDuration)
	var polls, failures int
	for _, e := range m.window {
		if e.ts.After(cutoff) {
			polls++
			if e.failed {
				failures++
			}
		}
	}

	var failRate float64
	if polls > 0 {
		failRate = float64(failures) / float64(polls) * 100
	}

	return MetricsSnapshot{
		PollRounds:      m.PollRounds,
		SamplesRecorded: m.SamplesRecorded,
		PollFailures:    m.PollFailures,
		CommandsRun:     m.CommandsRun,
		SpikesFlagged:   m.SpikesFlagged,
		DropsFlagged:    m.DropsFlagged,
		WindowPolls:     polls,
		WindowFailures:  failures,
		WindowFailRate:  failRate,
	}
}
