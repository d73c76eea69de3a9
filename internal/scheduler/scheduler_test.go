package scheduler

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chickenshout/craftwatch/internal/command"
	"github.com/chickenshout/craftwatch/internal/config"
	"github.com/chickenshout/craftwatch/internal/domain"
	"github.com/chickenshout/craftwatch/internal/monitor"
	"github.com/chickenshout/craftwatch/internal/service"
	"github.com/chickenshout/craftwatch/internal/status"
)

// schedMockRepo is an in-memory Repository for scheduler tests.
type schedMockRepo struct {
	servers   []domain.Server
	appended  int
	recent    []int
	horizons  []time.Time
	aggregate domain.AggregateReport
}

func (m *schedMockRepo) ListServers(_ context.Context) ([]domain.Server, error) {
	return m.servers, nil
}
func (m *schedMockRepo) GetServer(_ context.Context, name string) (*domain.Server, error) {
	for _, s := range m.servers {
		if s.Name == name {
			srv := s
			return &srv, nil
		}
	}
	return nil, domain.ErrServerNotFound
}
func (m *schedMockRepo) AddServer(_ context.Context, _, _ string) (*domain.Server, error) {
	return nil, nil
}
func (m *schedMockRepo) RemoveServer(_ context.Context, _ string) (bool, error) { return false, nil }
func (m *schedMockRepo) AppendSample(_ context.Context, _ int64, _ int) error {
	m.appended++
	return nil
}
func (m *schedMockRepo) DeleteSamples(_ context.Context, _ int64) (int64, error) { return 0, nil }
func (m *schedMockRepo) DeleteSamplesOlderThan(_ context.Context, horizon time.Time) (int64, error) {
	m.horizons = append(m.horizons, horizon)
	return 0, nil
}
func (m *schedMockRepo) QuerySamples(_ context.Context, _ string, _ time.Time) ([]domain.Sample, error) {
	return nil, nil
}
func (m *schedMockRepo) QueryAggregate(_ context.Context, _ string, _ time.Time) (domain.AggregateReport, error) {
	return m.aggregate, nil
}
func (m *schedMockRepo) RecentSamples(_ context.Context, _ string, _ int) ([]int, error) {
	return m.recent, nil
}

type schedMockProvider struct{}

func (schedMockProvider) Query(_ context.Context, _ string) (*status.Status, error) {
	return &status.Status{OnlineCount: 12}, nil
}

// fakeClock is an adjustable clock injected into the scheduler.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) set(t time.Time)         { c.t = t }

type fixture struct {
	sched   *Scheduler
	repo    *schedMockRepo
	clock   *fakeClock
	queue   *command.Queue
	metrics *monitor.Metrics
	out     *bytes.Buffer
}

func newFixture(t *testing.T, start time.Time, pollInterval time.Duration) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	repo := &schedMockRepo{
		servers: []domain.Server{{ID: 1, Name: "survival", Address: "srv:25565"}},
	}
	clock := &fakeClock{t: start}
	metrics := monitor.NewMetrics()
	queue := command.NewQueue()
	var out bytes.Buffer

	poller := service.NewPollService(repo, schedMockProvider{}, metrics, log)
	reporter := service.NewReportingService(repo)
	retention := service.NewRetentionService(repo, 30, false, log)
	interp := command.NewInterpreter(repo, poller, reporter, nil,
		config.Config{PollInterval: pollInterval, RetentionDays: 30}, metrics, log, &out)

	sched := New(Deps{
		Repo:      repo,
		Poller:    poller,
		Reporter:  reporter,
		Retention: retention,
		Detector:  monitor.NewDetector(repo),
		Metrics:   metrics,
		Commands:  queue,
		Interp:    interp,
		Out:       &out,
		Log:       log,
	}, pollInterval, time.Millisecond, clock.now)

	return &fixture{sched: sched, repo: repo, clock: clock, queue: queue, metrics: metrics, out: &out}
}

// quietTime is a moment that trips none of the wall-clock windows.
var quietTime = time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC)

func TestTick_PollFiresAfterInterval(t *testing.T) {
	f := newFixture(t, quietTime, 5*time.Minute)

	f.sched.Tick(context.Background())
	if f.repo.appended != 0 {
		t.Fatal("poll must not fire before the interval elapses")
	}

	f.clock.advance(5 * time.Minute)
	f.sched.Tick(context.Background())
	if f.repo.appended != 1 {
		t.Fatalf("expected 1 sample after the interval, got %d", f.repo.appended)
	}

	// Marker was updated: the next tick is too early again.
	f.clock.advance(time.Minute)
	f.sched.Tick(context.Background())
	if f.repo.appended != 1 {
		t.Fatalf("poll refired too early, got %d samples", f.repo.appended)
	}

	f.clock.advance(4 * time.Minute)
	f.sched.Tick(context.Background())
	if f.repo.appended != 2 {
		t.Fatalf("expected 2 samples after the second interval, got %d", f.repo.appended)
	}
}

func TestTick_DailyReportLatchesPerDay(t *testing.T) {
	f := newFixture(t, quietTime, time.Hour)

	f.clock.set(time.Date(2026, 8, 25, 8, 1, 0, 0, time.UTC))
	f.sched.Tick(context.Background())
	first := f.out.String()
	if !strings.Contains(first, "server report") {
		t.Fatalf("expected a report inside the window, got %q", first)
	}

	// Same window, same day: latched.
	f.out.Reset()
	f.clock.advance(time.Minute)
	f.sched.Tick(context.Background())
	if strings.Contains(f.out.String(), "server report") {
		t.Error("report must run at most once per day")
	}

	// Next day's window fires again.
	f.out.Reset()
	f.clock.set(time.Date(2026, 8, 26, 8, 0, 30, 0, time.UTC))
	f.sched.Tick(context.Background())
	if !strings.Contains(f.out.String(), "server report") {
		t.Error("report must fire again the next day")
	}
}

func TestTick_ReportOutsideWindowDoesNotFire(t *testing.T) {
	f := newFixture(t, quietTime, time.Hour)

	for _, at := range []time.Time{
		time.Date(2026, 8, 25, 8, 5, 0, 0, time.UTC), // minute too late
		time.Date(2026, 8, 25, 9, 1, 0, 0, time.UTC), // wrong hour
	} {
		f.clock.set(at)
		f.sched.Tick(context.Background())
	}
	if strings.Contains(f.out.String(), "server report") {
		t.Errorf("report fired outside its window: %q", f.out.String())
	}
}

func TestTick_AnomalyCheckLatchesPerHour(t *testing.T) {
	f := newFixture(t, quietTime, time.Hour)
	f.repo.recent = []int{16, 10, 10, 10, 10, 10} // flat baseline, spike

	f.clock.set(time.Date(2026, 8, 24, 13, 0, 0, 0, time.UTC))
	f.sched.Tick(context.Background())
	if f.metrics.Snapshot().SpikesFlagged != 1 {
		t.Fatalf("expected a spike at the top of the hour, got %+v", f.metrics.Snapshot())
	}
	if !strings.Contains(f.out.String(), "spike") {
		t.Errorf("expected spike output, got %q", f.out.String())
	}

	// Still minute 0 of the same hour: latched.
	f.clock.advance(30 * time.Second)
	f.sched.Tick(context.Background())
	if f.metrics.Snapshot().SpikesFlagged != 1 {
		t.Error("anomaly check must run at most once per hour")
	}

	// Detection is stateless: the same spike re-flags next hour.
	f.clock.set(time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC))
	f.sched.Tick(context.Background())
	if f.metrics.Snapshot().SpikesFlagged != 2 {
		t.Error("the same anomaly must re-flag on the next pass")
	}
}

func TestTick_RetentionEverySevenDays(t *testing.T) {
	f := newFixture(t, quietTime, 100*24*time.Hour)

	f.clock.advance(6 * 24 * time.Hour)
	f.sched.Tick(context.Background())
	if len(f.repo.horizons) != 0 {
		t.Fatal("retention must not run before 7 days")
	}

	f.clock.advance(24 * time.Hour)
	f.sched.Tick(context.Background())
	if len(f.repo.horizons) != 1 {
		t.Fatalf("expected one retention pass, got %d", len(f.repo.horizons))
	}
}

func TestTick_DrainsAllCommandsFirst(t *testing.T) {
	f := newFixture(t, quietTime, time.Hour)
	f.queue.Push("list")
	f.queue.Push("config")

	f.sched.Tick(context.Background())
	out := f.out.String()
	if !strings.Contains(out, "monitored servers") {
		t.Errorf("expected list output, got %q", out)
	}
	if !strings.Contains(out, "current configuration") {
		t.Errorf("both queued commands must run in one tick, got %q", out)
	}
	if f.queue.Len() != 0 {
		t.Errorf("queue must be drained, %d left", f.queue.Len())
	}
}

func TestTick_ExitStopsTheLoop(t *testing.T) {
	f := newFixture(t, quietTime, time.Hour)
	f.queue.Push("exit")
	if !f.sched.Tick(context.Background()) {
		t.Error("exit command must stop the loop")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t, quietTime, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.sched.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancellation")
	}
}
