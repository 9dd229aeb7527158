package impl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	goreddit "github.com/vartanbeno/go-reddit/v2/reddit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakkerme/subsync/internal/config"
	"github.com/bakkerme/subsync/internal/reddit"
	"github.com/bakkerme/subsync/internal/retry"
)

const tracerName = "github.com/bakkerme/subsync/internal/reddit"

type listSubreddits func(context.Context, *goreddit.ListSubredditOptions) ([]*goreddit.Subreddit, *goreddit.Response, error)

// Session is a reddit.Session backed by go-reddit's OAuth password grant.
type Session struct {
	client   *goreddit.Client
	logger   *slog.Logger
	tracer   trace.Tracer
	username string
	pageSize int
	retry    retry.Config
}

// NewSession validates the credentials, logs in and resolves the account name.
// A missing credential is reported as *config.MissingKeyError before any
// network activity; login failures are returned wrapped but otherwise as-is.
func NewSession(ctx context.Context, logger *slog.Logger, cfg config.EnvConfig) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	creds := cfg.Credentials
	if err := creds.Validate(); err != nil {
		logger.Error("Received bad config", "error", err)
		return nil, err
	}

	opts := []goreddit.Opt{
		goreddit.WithHTTPClient(boundedHTTPClient(cfg.Reddit.HTTPTimeout)),
		goreddit.WithUserAgent(creds.UserAgent),
	}
	if cfg.Reddit.BaseURL != "" {
		opts = append(opts, goreddit.WithBaseURL(cfg.Reddit.BaseURL))
	}
	if cfg.Reddit.TokenURL != "" {
		opts = append(opts, goreddit.WithTokenURL(cfg.Reddit.TokenURL))
	}

	client, err := goreddit.NewClient(goreddit.Credentials{
		ID:       creds.ClientID,
		Secret:   creds.ClientSecret,
		Username: creds.Username,
		Password: creds.Password,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("create reddit client: %w", err)
	}

	pageSize := cfg.Reddit.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	s := &Session{
		client:   client,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		pageSize: pageSize,
		retry: retry.Config{
			Attempts:  cfg.Reddit.RetryAttempts,
			BaseDelay: 500 * time.Millisecond,
			MaxDelay:  5 * time.Second,
		},
	}

	logger.Debug("Logging in to Reddit API", "credentials", creds.Redacted())
	name, err := s.identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("reddit login as %s: %w", creds.Username, err)
	}
	s.username = name
	logger.Info("Reddit login successful", "username", name)
	return s, nil
}

// boundedHTTPClient caps every request at timeout. go-reddit fetches OAuth
// tokens with a fresh http.Client around our Transport and a background
// context, so the bound has to live in the Transport as well.
func boundedHTTPClient(timeout time.Duration) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	base.TLSHandshakeTimeout = timeout
	base.ResponseHeaderTimeout = timeout
	return &http.Client{
		Timeout:   timeout,
		Transport: &deadlineTransport{base: base, timeout: timeout},
	}
}

type deadlineTransport struct {
	base    http.RoundTripper
	timeout time.Duration
}

func (t *deadlineTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func (s *Session) Username() string {
	return s.username
}

func (s *Session) Subscribed(ctx context.Context) reddit.Names {
	return s.paginate(ctx, "subscribed", s.username, s.client.Subreddit.Subscribed)
}

func (s *Session) Moderated(ctx context.Context, username string) reddit.Names {
	username = strings.TrimPrefix(strings.TrimSpace(username), "u/")
	if username == "" || strings.EqualFold(username, s.username) {
		return s.paginate(ctx, "moderated", s.username, s.client.Subreddit.Moderated)
	}
	return s.moderatedBy(ctx, username)
}

func (s *Session) Subscribe(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return reddit.ErrEmptyName
	}
	return s.call(ctx, "reddit.subscribe", []attribute.KeyValue{attribute.String("reddit.subreddit", name)},
		func(ctx context.Context) (*goreddit.Response, error) {
			return s.client.Subreddit.Subscribe(ctx, name)
		})
}

func (s *Session) identity(ctx context.Context) (string, error) {
	var user *goreddit.User
	err := s.call(ctx, "reddit.identity", nil, func(ctx context.Context) (*goreddit.Response, error) {
		var (
			resp *goreddit.Response
			err  error
		)
		user, resp, err = s.client.Account.Info(ctx)
		return resp, err
	})
	if err != nil {
		return "", err
	}
	if user == nil || user.Name == "" {
		return "", fmt.Errorf("reddit returned no account name")
	}
	return user.Name, nil
}

func (s *Session) paginate(ctx context.Context, op, user string, list listSubreddits) reddit.Names {
	return func(yield func(string, error) bool) {
		after := ""
		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			var (
				subs []*goreddit.Subreddit
				resp *goreddit.Response
			)
			attrs := []attribute.KeyValue{
				attribute.String("reddit.user", user),
				attribute.Int("reddit.page", page),
			}
			err := s.call(ctx, "reddit."+op+".page", attrs, func(ctx context.Context) (*goreddit.Response, error) {
				var err error
				subs, resp, err = list(ctx, &goreddit.ListSubredditOptions{
					ListOptions: goreddit.ListOptions{Limit: s.pageSize, After: after},
				})
				return resp, err
			})
			if err != nil {
				yield("", fmt.Errorf("list %s subreddits page %d: %w", op, page, err))
				return
			}

			s.logger.Debug("Fetched subreddit page", "operation", op, "user", user, "page", page, "count", len(subs))
			for _, sub := range subs {
				if sub == nil || sub.Name == "" {
					continue
				}
				if !yield(sub.Name, nil) {
					return
				}
			}

			if resp == nil || resp.After == "" || resp.After == after {
				return
			}
			after = resp.After
		}
	}
}

type moderatedList struct {
	Kind string `json:"kind"`
	Data []struct {
		Name string `json:"sr"`
	} `json:"data"`
}

// moderatedBy reads another user's public moderator list, which the API
// serves as a single unpaged document.
func (s *Session) moderatedBy(ctx context.Context, username string) reddit.Names {
	return func(yield func(string, error) bool) {
		var list moderatedList
		attrs := []attribute.KeyValue{attribute.String("reddit.user", username)}
		err := s.call(ctx, "reddit.moderated", attrs, func(ctx context.Context) (*goreddit.Response, error) {
			req, err := s.client.NewRequest(http.MethodGet, "user/"+url.PathEscape(username)+"/moderated_subreddits", nil)
			if err != nil {
				return nil, err
			}
			list = moderatedList{}
			return s.client.Do(ctx, req, &list)
		})
		if err != nil {
			yield("", fmt.Errorf("list subreddits moderated by %s: %w", username, err))
			return
		}
		for _, entry := range list.Data {
			if entry.Name == "" {
				continue
			}
			if !yield(entry.Name, nil) {
				return
			}
		}
	}
}

// call runs one remote request inside a span, retrying transient failures.
func (s *Session) call(ctx context.Context, spanName string, attrs []attribute.KeyValue, fn func(context.Context) (*goreddit.Response, error)) error {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
	defer span.End()

	err := retry.Do(ctx, s.retry, func() error {
		resp, err := fn(ctx)
		if resp != nil && resp.Response != nil {
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		}
		if err == nil {
			return nil
		}
		if isTransient(resp, err) {
			s.logger.Warn("Transient reddit error", "span", spanName, "error", err)
			return err
		}
		return retry.Permanent(err)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func isTransient(resp *goreddit.Response, err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if resp != nil && resp.Response != nil {
		return resp.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
