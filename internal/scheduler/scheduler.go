package scheduler

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chickenshout/craftwatch/internal/command"
	"github.com/chickenshout/craftwatch/internal/monitor"
	"github.com/chickenshout/craftwatch/internal/service"
	"github.com/chickenshout/craftwatch/internal/storage"
)

const (
	// TickInterval is the loop granularity: every condition below is
	// re-evaluated this often.
	TickInterval = 100 * time.Millisecond

	reportHour       = 8
	reportWindowMins = 5
	cleanupEvery     = 7 * 24 * time.Hour
)

// job is one scheduled condition. due is evaluated every tick against the
// injected clock; run updates whatever last-run marker due consults.
type job struct {
	name string
	due  func(now time.Time) bool
	run  func(ctx context.Context, now time.Time) error
}

// Scheduler is the single control loop: each tick drains pending
// interactive commands first, then fires every due maintenance job.
// Ticks never overlap and all actions run on the loop goroutine.
type Scheduler struct {
	commands *command.Queue
	interp   *command.Interpreter
	jobs     []job
	tick     time.Duration
	now      func() time.Time
	log      *logrus.Logger
}

// Deps carries the scheduler's collaborators.
type Deps struct {
	Repo      storage.Repository
	Poller    *service.PollService
	Reporter  *service.ReportingService
	Retention *service.RetentionService
	Detector  *monitor.Detector
	Metrics   *monitor.Metrics
	Commands  *command.Queue
	Interp    *command.Interpreter
	Out       io.Writer
	Log       *logrus.Logger
}

// New builds a scheduler polling at pollInterval. The now func is the
// loop's only clock; tests inject a fake one.
func New(d Deps, pollInterval time.Duration, tick time.Duration, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if tick <= 0 {
		tick = TickInterval
	}

	s := &Scheduler{
		commands: d.Commands,
		interp:   d.Interp,
		tick:     tick,
		now:      now,
		log:      d.Log,
	}

	lastPoll := now()
	s.jobs = append(s.jobs, job{
		name: "poll",
		due: func(t time.Time) bool {
			return t.Sub(lastPoll) >= pollInterval
		},
		run: func(ctx context.Context, t time.Time) error {
			lastPoll = t
			return d.Poller.CollectAll(ctx)
		},
	})

	var lastReportDate string
	s.jobs = append(s.jobs, job{
		name: "daily-report",
		due: func(t time.Time) bool {
			return t.Hour() == reportHour && t.Minute() < reportWindowMins &&
				lastReportDate != t.Format("2006-01-02")
		},
		run: func(ctx context.Context, t time.Time) error {
			lastReportDate = t.Format("2006-01-02")
			reports, err := d.Reporter.ReportAll(ctx, 1)
			if err != nil {
				return err
			}
			command.WriteReports(d.Out, 1, reports)
			return nil
		},
	})

	lastCleanup := now()
	s.jobs = append(s.jobs, job{
		name: "retention",
		due: func(t time.Time) bool {
			return t.Sub(lastCleanup) >= cleanupEvery
		},
		run: func(ctx context.Context, t time.Time) error {
			lastCleanup = t
			_, err := d.Retention.Cleanup(ctx)
			return err
		},
	})

	var lastAnomalyHour time.Time
	s.jobs = append(s.jobs, job{
		name: "anomaly-check",
		due: func(t time.Time) bool {
			return t.Minute() == 0 && !t.Truncate(time.Hour).Equal(lastAnomalyHour)
		},
		run: func(ctx context.Context, t time.Time) error {
			lastAnomalyHour = t.Truncate(time.Hour)
			return checkAnomalies(ctx, d)
		},
	})

	return s
}

// Run drives the loop until an exit command is executed or ctx is
// cancelled. The in-flight tick always completes before Run returns, so
// no store write is abandoned halfway.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.log.WithField("tick", s.tick).Info("scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping on signal")
			return
		case <-ticker.C:
			if s.Tick(ctx) {
				s.log.Info("scheduler stopping on exit command")
				return
			}
		}
	}
}

// Tick runs one loop iteration: commands first, then every due job, in
// fixed order. Returns true when an exit command was processed.
func (s *Scheduler) Tick(ctx context.Context) (exit bool) {
	for {
		line, ok := s.commands.TryNext()
		if !ok {
			break
		}
		if s.interp.Execute(ctx, line) {
			return true
		}
	}

	now := s.now()
	for _, j := range s.jobs {
		if !j.due(now) {
			continue
		}
		s.runJob(ctx, j, now)
	}
	return false
}

func (s *Scheduler) runJob(ctx context.Context, j job, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{"job": j.name, "panic": r}).Error("job panicked")
		}
	}()
	if err := j.run(ctx, now); err != nil {
		s.log.WithFields(logrus.Fields{"job": j.name, "error": err}).Error("job failed")
	}
}

func checkAnomalies(ctx context.Context, d Deps) error {
	servers, err := d.Repo.ListServers(ctx)
	if err != nil {
		return err
	}
	for _, srv := range servers {
		finding, err := d.Detector.Check(ctx, srv.Name)
		if err != nil {
			d.Log.WithFields(logrus.Fields{"server": srv.Name, "error": err}).Warn("anomaly check failed")
			continue
		}
		if finding == nil {
			continue
		}
		d.Metrics.RecordFinding(finding.Kind)
		d.Log.WithFields(logrus.Fields{
			"server":       finding.Server,
			"kind":         finding.Kind,
			"current":      finding.Current,
			"baseline_avg": finding.BaselineAvg,
		}).Warn("anomaly flagged")
		command.WriteFinding(d.Out, finding)
	}
	return nil
}
