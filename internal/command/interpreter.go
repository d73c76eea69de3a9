package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chickenshout/craftwatch/internal/config"
	"github.com/chickenshout/craftwatch/internal/domain"
	"github.com/chickenshout/craftwatch/internal/monitor"
	"github.com/chickenshout/craftwatch/internal/service"
	"github.com/chickenshout/craftwatch/internal/status"
	"github.com/chickenshout/craftwatch/internal/storage"
)

const helpText = `available commands:
  now                          query every server's live status
  list                         list monitored servers
  add <name> <address>         add a server (validated before saving)
  remove <name>                remove a server and its history
  delete <name>                delete a server's history, keep the server
  report [days]                aggregate report, default trailing 1 day
  trend <days> <name> [...]    write a trend chart for the named servers
  config                       show current configuration
  exit                         stop monitoring`

// Interpreter parses interactive command lines and applies them against
// the services. Every failure is recovered and reported as a message; no
// command can take down the loop.
type Interpreter struct {
	repo     storage.Repository
	poller   *service.PollService
	reporter *service.ReportingService
	trends   *service.TrendService
	cfg      config.Config
	metrics  *monitor.Metrics
	log      *logrus.Logger
	out      io.Writer
}

// NewInterpreter creates a new Interpreter writing responses to out.
func NewInterpreter(
	repo storage.Repository,
	poller *service.PollService,
	reporter *service.ReportingService,
	trends *service.TrendService,
	cfg config.Config,
	metrics *monitor.Metrics,
	log *logrus.Logger,
	out io.Writer,
) *Interpreter {
	return &Interpreter{
		repo:     repo,
		poller:   poller,
		reporter: reporter,
		trends:   trends,
		cfg:      cfg,
		metrics:  metrics,
		log:      log,
		out:      out,
	}
}

// Execute runs one command line. The returned bool is true when the loop
// should terminate.
func (i *Interpreter) Execute(ctx context.Context, line string) (exit bool) {
	defer func() {
		if r := recover(); r != nil {
			i.log.WithField("panic", r).Error("command panicked")
			fmt.Fprintf(i.out, "command failed: %v\n", r)
		}
	}()

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]
	i.metrics.RecordCommand()

	switch verb {
	case "exit":
		return true
	case "help":
		fmt.Fprintln(i.out, helpText)
	case "now":
		i.runNow(ctx)
	case "list":
		i.runList(ctx)
	case "add":
		i.runAdd(ctx, args)
	case "remove":
		i.runRemove(ctx, args)
	case "delete":
		i.runDelete(ctx, args)
	case "report":
		i.runReport(ctx, args)
	case "trend":
		i.runTrend(ctx, args)
	case "config":
		i.runConfig()
	default:
		fmt.Fprintf(i.out, "unknown command %q, type help for usage\n", verb)
	}
	return false
}

func (i *Interpreter) runNow(ctx context.Context) {
	results, err := i.poller.QueryLive(ctx)
	if err != nil {
		fmt.Fprintf(i.out, "live query failed: %v\n", err)
		return
	}
	if len(results) == 0 {
		fmt.Fprintln(i.out, "no servers are being monitored")
		return
	}
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(i.out, "  x %s: %s\n", res.Server.Name, describeStatusErr(res.Err))
			continue
		}
		fmt.Fprintf(i.out, "  + %s: %d online\n", res.Server.Name, res.Status.OnlineCount)
	}
}

func (i *Interpreter) runList(ctx context.Context) {
	servers, err := i.repo.ListServers(ctx)
	if err != nil {
		fmt.Fprintf(i.out, "list failed: %v\n", err)
		return
	}
	if len(servers) == 0 {
		fmt.Fprintln(i.out, "no servers are being monitored")
		return
	}
	fmt.Fprintln(i.out, "monitored servers:")
	for _, s := range servers {
		fmt.Fprintf(i.out, "  %s (%s)\n", s.Name, s.Address)
	}
}

func (i *Interpreter) runAdd(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(i.out, "usage: add <name> <address>")
		return
	}
	name, address := args[0], args[1]

	// Reachability check before persisting, same bound as the poll action.
	if err := i.poller.Validate(ctx, address); err != nil {
		fmt.Fprintf(i.out, "server validation failed: %s\n", describeStatusErr(err))
		return
	}

	if _, err := i.repo.AddServer(ctx, name, address); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateName):
			fmt.Fprintf(i.out, "error: a server named %q already exists\n", name)
		case errors.Is(err, domain.ErrDuplicateAddress):
			fmt.Fprintf(i.out, "error: address %q is already monitored\n", address)
		default:
			fmt.Fprintf(i.out, "add failed: %v\n", err)
		}
		return
	}
	fmt.Fprintf(i.out, "added server %s (%s)\n", name, address)
}

func (i *Interpreter) runRemove(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(i.out, "usage: remove <name>")
		return
	}
	existed, err := i.repo.RemoveServer(ctx, args[0])
	if err != nil {
		fmt.Fprintf(i.out, "remove failed: %v\n", err)
		return
	}
	if !existed {
		fmt.Fprintf(i.out, "error: no server named %q\n", args[0])
		return
	}
	fmt.Fprintf(i.out, "removed server %s\n", args[0])
}

func (i *Interpreter) runDelete(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(i.out, "usage: delete <name>")
		return
	}
	srv, err := i.repo.GetServer(ctx, args[0])
	if err != nil {
		if errors.Is(err, domain.ErrServerNotFound) {
			fmt.Fprintf(i.out, "error: no server named %q\n", args[0])
			return
		}
		fmt.Fprintf(i.out, "delete failed: %v\n", err)
		return
	}
	deleted, err := i.repo.DeleteSamples(ctx, srv.ID)
	if err != nil {
		fmt.Fprintf(i.out, "delete failed: %v\n", err)
		return
	}
	fmt.Fprintf(i.out, "deleted %d samples for %s\n", deleted, srv.Name)
}

func (i *Interpreter) runReport(ctx context.Context, args []string) {
	days := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintln(i.out, "error: days must be a positive integer")
			return
		}
		days = n
	}

	reports, err := i.reporter.ReportAll(ctx, days)
	if err != nil {
		fmt.Fprintf(i.out, "report failed: %v\n", err)
		return
	}
	if len(reports) == 0 {
		fmt.Fprintln(i.out, "no servers are being monitored")
		return
	}
	WriteReports(i.out, days, reports)
}

func (i *Interpreter) runTrend(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(i.out, "usage: trend <days> <name> [<name>...]")
		return
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days <= 0 {
		fmt.Fprintln(i.out, "error: days must be a positive integer")
		return
	}

	path, err := i.trends.Render(ctx, days, args[1:])
	if err != nil {
		if errors.Is(err, domain.ErrServerNotFound) {
			fmt.Fprintf(i.out, "error: %v\n", err)
			return
		}
		fmt.Fprintf(i.out, "trend failed: %v\n", err)
		return
	}
	fmt.Fprintf(i.out, "trend chart written to %s\n", path)
}

func (i *Interpreter) runConfig() {
	fmt.Fprintln(i.out, "current configuration:")
	fmt.Fprintf(i.out, "  poll interval: %s\n", i.cfg.PollInterval)
	if i.cfg.RetainForever {
		fmt.Fprintln(i.out, "  retention:     keep samples forever")
	} else {
		fmt.Fprintf(i.out, "  retention:     delete samples older than %d days\n", i.cfg.RetentionDays)
	}
}

func describeStatusErr(err error) string {
	if errors.Is(err, status.ErrTimeout) {
		return "timed out (no response within 2 seconds)"
	}
	return err.Error()
}
