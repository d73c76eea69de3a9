package domain

import "time"

// Server is a monitored game-server endpoint. Name and Address are
// unique across the store.
type Server struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Sample is one timestamped online-player-count observation. Samples are
// append-only: they are written by the poll action and never mutated.
type Sample struct {
	ID          int64     `json:"id"`
	ServerID    int64     `json:"server_id"`
	OnlineCount int       `json:"online_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// TrendPoint is one point of a rendered trend series.
type TrendPoint struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AggregateReport summarizes one server's samples inside a time window.
// Peak and Average are nil when the window holds no samples; a window
// with only zero-player samples still yields non-nil zero values.
type AggregateReport struct {
	Peak       *int     `json:"peak,omitempty"`
	Average    *float64 `json:"average,omitempty"`
	ActiveDays int      `json:"active_days"`
}

// HasData reports whether any sample fell inside the window.
func (r AggregateReport) HasData() bool {
	return r.Peak != nil
}
