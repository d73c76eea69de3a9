package monitor

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/chickenshout/craftwatch/internal/storage"
)

const (
	// recentLimit is how many samples feed one detection pass: the newest
	// is the observation, the rest form the baseline.
	recentLimit = 6

	// minHistory is the minimum sample count before detection runs at all.
	minHistory = 3
)

// Kind classifies a flagged anomaly.
type Kind string

const (
	KindSpike Kind = "spike"
	KindDrop  Kind = "drop"
)

// Finding is one flagged anomaly. Detection is stateless: the same
// condition is re-flagged on every pass until the samples age out.
type Finding struct {
	Server      string
	Kind        Kind
	Current     int
	BaselineAvg float64
}

// Detector evaluates each server's newest sample against a rolling
// baseline of its recent history.
type Detector struct {
	repo storage.Repository
}

// NewDetector creates a detector reading history from the repository.
func NewDetector(repo storage.Repository) *Detector {
	return &Detector{repo: repo}
}

// Check runs one detection pass for a server. It returns nil when the
// history is too short or the newest sample is within thresholds.
func (d *Detector) Check(ctx context.Context, serverName string) (*Finding, error) {
	counts, err := d.repo.RecentSamples(ctx, serverName, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent samples for %s: %w", serverName, err)
	}

	kind, avg, flagged := evaluate(counts)
	if !flagged {
		return nil, nil
	}
	return &Finding{
		Server:      serverName,
		Kind:        kind,
		Current:     counts[0],
		BaselineAvg: avg,
	}, nil
}

// evaluate applies the threshold policy to newest-first counts.
//
// With a flat baseline (zero deviation) only the spike check runs, against
// avg*1.5; there is deliberately no drop check on that branch. With a
// varying baseline the thresholds are avg +/- 2 deviations.
func evaluate(counts []int) (Kind, float64, bool) {
	if len(counts) < minHistory {
		return "", 0, false
	}

	current := float64(counts[0])
	baseline := make([]float64, 0, len(counts)-1)
	for _, c := range counts[1:] {
		baseline = append(baseline, float64(c))
	}

	avg, err := stats.Mean(baseline)
	if err != nil {
		return "", 0, false
	}

	var std float64
	if len(baseline) >= 2 {
		std, err = stats.StandardDeviationSample(baseline)
		if err != nil {
			return "", 0, false
		}
	}

	if std == 0 {
		if current > avg*1.5 {
			return KindSpike, avg, true
		}
		return "", avg, false
	}

	if current > avg+2*std {
		return KindSpike, avg, true
	}
	if current < avg-2*std {
		return KindDrop, avg, true
	}
	return "", avg, false
}
