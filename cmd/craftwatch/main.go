package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chickenshout/craftwatch/internal/command"
	"github.com/chickenshout/craftwatch/internal/config"
	"github.com/chickenshout/craftwatch/internal/monitor"
	"github.com/chickenshout/craftwatch/internal/scheduler"
	"github.com/chickenshout/craftwatch/internal/seed"
	"github.com/chickenshout/craftwatch/internal/service"
	"github.com/chickenshout/craftwatch/internal/status"
	"github.com/chickenshout/craftwatch/internal/storage"
	"github.com/chickenshout/craftwatch/internal/trend"
)

// statusTimeout bounds every live status query; one dead server may cost
// at most this much per round.
const statusTimeout = 2 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var neverDelete bool
	cmd := &cobra.Command{
		Use:           "craftwatch",
		Short:         "Poll game servers for player counts and analyze the history",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(neverDelete)
		},
	}
	cmd.Flags().BoolVar(&neverDelete, "never-delete", false, "never delete historical samples")
	return cmd
}

func run(neverDelete bool) error {
	log := logrus.New()
	cfg := config.Load(neverDelete)

	db, err := storage.NewPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	if cfg.SeedDemoData {
		seedData(db, log)
	}

	repo := storage.NewPostgresRepository(db)
	metrics := monitor.NewMetrics()
	provider := status.NewPingClient(statusTimeout)

	poller := service.NewPollService(repo, provider, metrics, log)
	reporter := service.NewReportingService(repo)
	retention := service.NewRetentionService(repo, cfg.RetentionDays, cfg.RetainForever, log)
	trends := service.NewTrendService(repo, trend.NewASCIIRenderer(cfg.TrendDir))
	detector := monitor.NewDetector(repo)

	queue := command.NewQueue()
	interp := command.NewInterpreter(repo, poller, reporter, trends, cfg, metrics, log, os.Stdout)
	go command.ReadLines(os.Stdin, queue)

	sched := scheduler.New(scheduler.Deps{
		Repo:      repo,
		Poller:    poller,
		Reporter:  reporter,
		Retention: retention,
		Detector:  detector,
		Metrics:   metrics,
		Commands:  queue,
		Interp:    interp,
		Out:       os.Stdout,
		Log:       log,
	}, cfg.PollInterval, scheduler.TickInterval, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("craftwatch - game server monitor\n")
	fmt.Printf("poll interval: %s\n", cfg.PollInterval)
	fmt.Printf("type 'help' for available commands\n\n")

	sched.Run(ctx)

	snap := metrics.Snapshot()
	log.WithFields(logrus.Fields{
		"poll_rounds":      snap.PollRounds,
		"samples_recorded": snap.SamplesRecorded,
		"poll_failures":    snap.PollFailures,
		"commands_run":     snap.CommandsRun,
	}).Info("monitor stopped")
	return nil
}

func seedData(db *sql.DB, log *logrus.Logger) {
	log.Info("seeding demo data")
	if _, err := db.Exec(seed.GenerateSQL()); err != nil {
		log.WithField("error", err).Warn("seed data (may already exist)")
		return
	}
	log.Info("demo data loaded")
}
