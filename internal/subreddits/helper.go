package subreddits

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bakkerme/subsync/internal/export"
	"github.com/bakkerme/subsync/internal/filter"
	"github.com/bakkerme/subsync/internal/metrics"
	"github.com/bakkerme/subsync/internal/reddit"
)

const (
	SourceSubscribed = "subscribed"
	SourceModerated  = "moderated"
)

// Helper fetches, exports and restores subreddit lists for one account.
// It is not safe for concurrent use.
type Helper struct {
	session   reddit.Session
	logger    *slog.Logger
	username  string
	filter    *filter.Rule
	metrics   *metrics.Recorder
	outputDir string

	items  []string
	source string
}

type Option func(*Helper)

// WithUsername sets the acting username used for logging and moderated
// lookups. Defaults to the session's own account.
func WithUsername(username string) Option {
	return func(h *Helper) {
		if username != "" {
			h.username = username
		}
	}
}

func WithFilter(rule *filter.Rule) Option {
	return func(h *Helper) {
		h.filter = rule
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(h *Helper) {
		h.metrics = recorder
	}
}

// WithOutputDir changes where default export paths point.
func WithOutputDir(dir string) Option {
	return func(h *Helper) {
		if dir != "" {
			h.outputDir = dir
		}
	}
}

func New(session reddit.Session, logger *slog.Logger, opts ...Option) *Helper {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Helper{
		session:   session,
		logger:    logger,
		outputDir: export.DefaultDir,
		items:     []string{},
	}
	if session != nil {
		h.username = session.Username()
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Helper) Username() string {
	return h.username
}

// DefaultPath is where Export writes format when no path is given.
func (h *Helper) DefaultPath(format export.Format) string {
	return export.DefaultPath(h.outputDir, format)
}

// Items returns a copy of the last successfully fetched list.
func (h *Helper) Items() []string {
	return append([]string{}, h.items...)
}

// FetchSubscribed replaces the held list with every subreddit the account
// follows, in API order. On any failure the previous list is kept and ok is
// false.
func (h *Helper) FetchSubscribed(ctx context.Context) ([]string, bool) {
	return h.fetch(ctx, "fetchSubscribed", SourceSubscribed, h.session.Subscribed(ctx))
}

// FetchModerated does the same for subreddits moderated by username, or by
// the acting user when username is empty.
func (h *Helper) FetchModerated(ctx context.Context, username string) ([]string, bool) {
	if username == "" {
		username = h.username
	}
	return h.fetch(ctx, "fetchModerated", SourceModerated, h.session.Moderated(ctx, username))
}

func (h *Helper) fetch(ctx context.Context, operation, source string, seq reddit.Names) ([]string, bool) {
	started := time.Now()
	names, err := h.collect(ctx, seq)
	if err != nil {
		h.logger.Error("Failed to fetch subreddits",
			slog.String("operation", operation),
			slog.String("user", h.username),
			slog.String("error", err.Error()))
		h.metrics.Fetch(source, 0, false)
		return nil, false
	}

	h.items = names
	h.source = source
	h.metrics.Fetch(source, len(names), true)
	h.logger.Info("Fetched subreddits",
		slog.String("operation", operation),
		slog.String("user", h.username),
		slog.Int("count", len(names)),
		slog.Duration("elapsed", time.Since(started)))
	return h.Items(), true
}

func (h *Helper) collect(ctx context.Context, seq reddit.Names) ([]string, error) {
	names := []string{}
	for name, err := range seq {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keep, err := h.filter.Keep(name)
		if err != nil {
			return nil, err
		}
		if !keep {
			h.logger.Debug("Filtered subreddit", slog.String("subreddit", name), slog.String("filter", h.filter.String()))
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// ExportText writes the held list one name per line. An empty path means
// <output dir>/subreddits.txt.
func (h *Helper) ExportText(path string) bool {
	return h.Export(export.FormatText, path)
}

// ExportCSV writes a single-column CSV with a "Subreddits" header.
func (h *Helper) ExportCSV(path string) bool {
	return h.Export(export.FormatCSV, path)
}

// Export writes the held list in format and reports whether it succeeded.
// An empty list leaves the target untouched. A failed write may leave it
// truncated.
func (h *Helper) Export(format export.Format, path string) bool {
	if path == "" {
		path = h.DefaultPath(format)
	}
	meta := export.Meta{Username: h.username, Source: h.source, ExportedAt: time.Now()}
	err := export.Write(format, path, h.items, meta)
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		h.logger.Warn("No subreddits to output",
			slog.String("format", string(format)),
			slog.String("path", path))
		h.metrics.Export(string(format), false)
		return false
	case err != nil:
		h.logger.Error("Failed to export subreddits",
			slog.String("format", string(format)),
			slog.String("path", path),
			slog.String("error", err.Error()))
		h.metrics.Export(string(format), false)
		return false
	}
	h.logger.Info("Exported subreddits",
		slog.String("format", string(format)),
		slog.String("path", path),
		slog.Int("count", len(h.items)))
	h.metrics.Export(string(format), true)
	return true
}

// SubscribeFromList subscribes to each name in order and returns how many
// calls succeeded. Failures are logged and skipped. Duplicates are not removed.
func (h *Helper) SubscribeFromList(ctx context.Context, names []string) int {
	subscribed := 0
	for _, name := range names {
		if err := h.session.Subscribe(ctx, name); err != nil {
			h.logger.Error("Failed to subscribe",
				slog.String("operation", "subscribeFromList"),
				slog.String("user", h.username),
				slog.String("subreddit", name),
				slog.String("error", err.Error()))
			h.metrics.Subscribe(false)
			continue
		}
		h.logger.Info("Subscribed", slog.String("user", h.username), slog.String("subreddit", name))
		h.metrics.Subscribe(true)
		subscribed++
	}
	h.logger.Info("Subscribe finished",
		slog.String("user", h.username),
		slog.Int("requested", len(names)),
		slog.Int("subscribed", subscribed))
	return subscribed
}

// SubscribeFromFile reads a text export and subscribes to every line. A
// missing or unreadable file is logged and yields 0.
func (h *Helper) SubscribeFromFile(ctx context.Context, path string) int {
	names, ok := h.ReadList(path)
	if !ok {
		return 0
	}
	return h.SubscribeFromList(ctx, names)
}

// ReadList reads a text export, one name per line, from path or the default
// text export. Read failures are logged and reported as not ok.
func (h *Helper) ReadList(path string) ([]string, bool) {
	if path == "" {
		path = h.DefaultPath(export.FormatText)
	}
	names, err := export.ReadText(path)
	if err != nil {
		h.logger.Error("Failed to read subreddit list",
			slog.String("operation", "subscribeFromFile"),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, false
	}
	return names, true
}
