package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bakkerme/subsync/internal/config"
	"github.com/bakkerme/subsync/internal/core"
	"github.com/bakkerme/subsync/internal/export"
	"github.com/bakkerme/subsync/internal/filter"
	"github.com/bakkerme/subsync/internal/history"
	"github.com/bakkerme/subsync/internal/metrics"
	"github.com/bakkerme/subsync/internal/observability/otelx"
	"github.com/bakkerme/subsync/internal/reddit/impl"
	"github.com/bakkerme/subsync/internal/runner"
	"github.com/bakkerme/subsync/internal/schedule"
	"github.com/bakkerme/subsync/internal/subreddits"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

type options struct {
	mode        string
	user        string
	formats     string
	out         string
	in          string
	names       string
	envFile     string
	schedule    string
	snapshotDir string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	opts, err := parseFlags(args, stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stdout, err)
		return exitUsage
	}

	envFiles := []string{}
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}
	cfg, err := config.LoadEnv(envFiles...)
	if err != nil {
		fmt.Fprintf(stdout, "failed to load environment: %v\n", err)
		return exitFailed
	}

	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	plan, err := buildPlan(opts)
	if err != nil {
		logger.Error("Invalid arguments", slog.String("error", err.Error()))
		return exitUsage
	}

	rule, err := filter.Compile(cfg.SubredditFilter)
	if err != nil {
		logger.Error("Received bad config", slog.String("error", err.Error()))
		return exitFailed
	}

	var cron *schedule.Cron
	if spec := firstNonEmpty(opts.schedule, cfg.Schedule); spec != "" {
		cron = schedule.NewCron(spec, cfg.ScheduleTZ)
		if err := cron.Validate(); err != nil {
			logger.Error("Received bad config", slog.String("error", err.Error()))
			return exitFailed
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := otelx.Init(ctx, logger, cfg.OTel)
	if err != nil {
		logger.Error("Failed to initialise tracing", slog.String("error", err.Error()))
		return exitFailed
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	session, err := impl.NewSession(ctx, logger, cfg)
	if err != nil {
		if errors.Is(err, config.ErrConfiguration) {
			return exitFailed
		}
		logger.Error("Failed to log in to Reddit", slog.String("error", err.Error()))
		return exitFailed
	}

	runnerOpts := []runner.Option{
		runner.WithHelperOptions(
			subreddits.WithFilter(rule),
			subreddits.WithOutputDir(cfg.OutputDir),
		),
		runner.WithMetrics(metrics.New(), cfg.MetricsTextfile),
		runner.WithSnapshotDir(firstNonEmpty(opts.snapshotDir, cfg.RunSnapshotDir)),
	}
	if cfg.HistoryDB != "" {
		store, err := history.NewSQLiteStore(cfg.HistoryDB, "")
		if err != nil {
			logger.Error("Failed to open history database", slog.String("path", cfg.HistoryDB), slog.String("error", err.Error()))
			return exitFailed
		}
		defer store.Close()
		runnerOpts = append(runnerOpts, runner.WithHistory(store))
	}
	r := runner.New(logger, session, runnerOpts...)

	if cron == nil {
		if _, err := r.RunOnce(ctx, plan); err != nil {
			logger.Error("Run failed", slog.String("error", err.Error()))
			return exitFailed
		}
		return exitOK
	}

	events, err := cron.Start(ctx)
	if err != nil {
		logger.Error("Failed to start schedule", slog.String("error", err.Error()))
		return exitFailed
	}
	if next, err := cron.Next(time.Now()); err == nil {
		logger.Info("Waiting for schedule", slog.String("schedule", cron.Spec()), slog.Time("next", next))
	}
	r.Start(ctx, events, plan)
	return exitOK
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("subsync", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.mode, "mode", "subscribed", "subscribed, moderated or subscribe")
	fs.StringVar(&opts.user, "user", "", "whose moderated subreddits to list (default: the logged in account)")
	fs.StringVar(&opts.formats, "format", "txt", "comma separated export formats: "+formatList())
	fs.StringVar(&opts.out, "out", "", "export file (default: <OUTPUT_DIR>/subreddits.<format>)")
	fs.StringVar(&opts.in, "in", "", "newline separated list to subscribe from (default: <OUTPUT_DIR>/subreddits.txt)")
	fs.StringVar(&opts.names, "names", "", "comma separated subreddits to subscribe to instead of -in")
	fs.StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default: .env)")
	fs.StringVar(&opts.schedule, "schedule", "", "cron expression; when set, keep running and repeat on schedule")
	fs.StringVar(&opts.snapshotDir, "snapshot-dir", "", "directory for JSON run records")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

func buildPlan(opts options) (runner.Plan, error) {
	mode, err := core.ParseMode(opts.mode)
	if err != nil {
		return runner.Plan{}, err
	}
	formats := []export.Format{}
	for _, raw := range splitList(opts.formats) {
		format, err := export.ParseFormat(raw)
		if err != nil {
			return runner.Plan{}, err
		}
		formats = append(formats, format)
	}
	return runner.Plan{
		Mode:       mode,
		Username:   strings.TrimPrefix(strings.TrimSpace(opts.user), "u/"),
		Formats:    formats,
		OutputPath: opts.out,
		InputPath:  opts.in,
		Names:      splitList(opts.names),
	}, nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatList() string {
	names := []string{}
	for _, f := range export.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
