package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bakkerme/subsync/internal/core"
	"github.com/bakkerme/subsync/internal/export"
	"github.com/bakkerme/subsync/internal/history"
	"github.com/bakkerme/subsync/internal/metrics"
	"github.com/bakkerme/subsync/internal/reddit"
	"github.com/bakkerme/subsync/internal/runner/snapshot"
	"github.com/bakkerme/subsync/internal/subreddits"
)

// ErrFetchFailed marks a run whose listing could not be retrieved.
var ErrFetchFailed = errors.New("fetch failed")

// Plan describes one pass.
type Plan struct {
	Mode Mode
	// Username is whose moderated list to read; empty means the session's account.
	Username string
	Formats  []export.Format
	// OutputPath overrides the default export file. With several formats its
	// extension is swapped per format.
	OutputPath string
	InputPath  string
	// Names, when set, are subscribed to instead of reading InputPath.
	Names []string
}

type Mode = core.Mode

type Runner struct {
	logger          *slog.Logger
	session         reddit.Session
	helperOpts      []subreddits.Option
	metrics         *metrics.Recorder
	metricsTextfile string
	snapshotDir     string
	history         history.Store
}

type Option func(*Runner)

func WithHelperOptions(opts ...subreddits.Option) Option {
	return func(r *Runner) {
		r.helperOpts = append(r.helperOpts, opts...)
	}
}

// WithMetrics records counters and, when path is set, writes them after every run.
func WithMetrics(recorder *metrics.Recorder, path string) Option {
	return func(r *Runner) {
		r.metrics = recorder
		r.metricsTextfile = path
	}
}

// WithSnapshotDir persists each run record as JSON under dir.
func WithSnapshotDir(dir string) Option {
	return func(r *Runner) {
		r.snapshotDir = dir
	}
}

// WithHistory compares every successful fetch with the previous one.
func WithHistory(store history.Store) Option {
	return func(r *Runner) {
		r.history = store
	}
}

func New(logger *slog.Logger, session reddit.Session, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{logger: logger, session: session}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs plan on every event until ctx is done or events is closed.
func (r *Runner) Start(ctx context.Context, events <-chan core.TriggerEvent, plan Plan) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.logger.Info("Schedule fired", slog.Time("time", event.Timestamp))
			if _, err := r.run(ctx, plan, "schedule"); err != nil {
				r.logger.Error("Run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce executes plan a single time. Only a failed fetch fails the run;
// failed exports and subscribes are recorded on the returned Run.
func (r *Runner) RunOnce(ctx context.Context, plan Plan) (*core.Run, error) {
	return r.run(ctx, plan, "manual")
}

func (r *Runner) run(ctx context.Context, plan Plan, triggerType string) (*core.Run, error) {
	if r.session == nil {
		return nil, fmt.Errorf("session is required")
	}
	mode := plan.Mode
	if mode == "" {
		mode = core.ModeSubscribed
	}

	run := &core.Run{
		ID:          uuid.NewString(),
		Mode:        mode,
		Username:    r.session.Username(),
		StartedAt:   time.Now().UTC(),
		Status:      core.RunStatusRunning,
		TriggerType: triggerType,
	}
	logger := r.logger.With(slog.String("run_id", run.ID), slog.String("mode", string(mode)))
	ctx = core.WithLogger(core.WithMode(core.WithRunID(ctx, run.ID), mode), logger)

	opts := append([]subreddits.Option{subreddits.WithMetrics(r.metrics)}, r.helperOpts...)
	helper := subreddits.New(r.session, logger, opts...)

	var err error
	switch mode {
	case core.ModeSubscribed, core.ModeModerated:
		err = r.fetchAndExport(ctx, helper, run, plan)
	case core.ModeSubscribe:
		r.subscribe(ctx, helper, run, plan)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}

	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt
	if err != nil {
		run.Status = core.RunStatusFailed
	} else {
		run.Status = core.RunStatusCompleted
	}
	r.finish(logger, run)
	return run, err
}

func (r *Runner) fetchAndExport(ctx context.Context, helper *subreddits.Helper, run *core.Run, plan Plan) error {
	var (
		names []string
		ok    bool
	)
	owner := helper.Username()
	if run.Mode == core.ModeModerated {
		names, ok = helper.FetchModerated(ctx, plan.Username)
		if plan.Username != "" {
			owner = plan.Username
		}
	} else {
		names, ok = helper.FetchSubscribed(ctx)
	}
	if !ok {
		return ErrFetchFailed
	}
	run.Fetched = len(names)
	r.recordHistory(ctx, run, owner, names)

	formats := plan.Formats
	if len(formats) == 0 {
		formats = []export.Format{export.FormatText}
	}
	for _, format := range formats {
		path := OutputPathFor(plan.OutputPath, format, len(formats) > 1)
		if path == "" {
			path = helper.DefaultPath(format)
		}
		if helper.Export(format, path) {
			run.Files = append(run.Files, path)
		} else {
			run.FailedExports = append(run.FailedExports, string(format))
		}
	}
	return nil
}

func (r *Runner) recordHistory(ctx context.Context, run *core.Run, owner string, names []string) {
	if r.history == nil {
		return
	}
	logger := core.LoggerFromContext(ctx)
	diff, err := r.history.Record(ctx, owner, string(run.Mode), names)
	if err != nil {
		logger.Warn("Failed to record history", slog.String("user", owner), slog.String("error", err.Error()))
		return
	}
	run.Added = diff.Added
	run.Removed = diff.Removed
	if !diff.Empty() {
		logger.Info("Subreddit list changed",
			slog.String("user", owner),
			slog.String("added", strings.Join(diff.Added, ",")),
			slog.String("removed", strings.Join(diff.Removed, ",")))
	}
}

func (r *Runner) subscribe(ctx context.Context, helper *subreddits.Helper, run *core.Run, plan Plan) {
	names := plan.Names
	if len(names) == 0 {
		var ok bool
		if names, ok = helper.ReadList(plan.InputPath); !ok {
			return
		}
	}
	run.Requested = len(names)
	run.Subscribed = helper.SubscribeFromList(ctx, names)
}

func (r *Runner) finish(logger *slog.Logger, run *core.Run) {
	r.metrics.RunCompleted()
	if err := r.metrics.WriteTextfile(r.metricsTextfile); err != nil {
		logger.Warn("Failed to write metrics", slog.String("path", r.metricsTextfile), slog.String("error", err.Error()))
	}
	if r.snapshotDir != "" {
		path := snapshot.Path(r.snapshotDir, run.ID)
		if err := snapshot.Save(path, run); err != nil {
			logger.Warn("Failed to save run snapshot", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	logger.Info("Run finished",
		slog.String("status", string(run.Status)),
		slog.Int("fetched", run.Fetched),
		slog.Int("files", len(run.Files)),
		slog.Int("subscribed", run.Subscribed),
		slog.Duration("elapsed", run.CompletedAt.Sub(run.StartedAt)))
}

// OutputPathFor resolves the export target for format. An empty override
// means the default path. With several formats the override's extension
// is replaced so each format gets its own file.
func OutputPathFor(override string, format export.Format, multi bool) string {
	if override == "" || !multi {
		return override
	}
	ext := filepath.Ext(override)
	return strings.TrimSuffix(override, ext) + "." + string(format)
}
