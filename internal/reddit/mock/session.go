package mock

import (
	"context"

	"github.com/bakkerme/subsync/internal/reddit"
)

// Session is an in-memory reddit.Session that records subscribe attempts.
type Session struct {
	User          string
	SubscribedErr error
	SubscribedSet []string
	ModeratedBy   map[string][]string
	ModeratedErr  error
	SubscribeErrs map[string]error

	Attempts        []string
	SubscribedCalls int
	ModeratedCalls  []string
}

func (s *Session) Username() string {
	return s.User
}

func (s *Session) Subscribed(ctx context.Context) reddit.Names {
	_ = ctx
	s.SubscribedCalls++
	return reddit.FromSlice(s.SubscribedSet, s.SubscribedErr)
}

func (s *Session) Moderated(ctx context.Context, username string) reddit.Names {
	_ = ctx
	if username == "" {
		username = s.User
	}
	s.ModeratedCalls = append(s.ModeratedCalls, username)
	return reddit.FromSlice(s.ModeratedBy[username], s.ModeratedErr)
}

func (s *Session) Subscribe(ctx context.Context, name string) error {
	_ = ctx
	s.Attempts = append(s.Attempts, name)
	if err, ok := s.SubscribeErrs[name]; ok {
		return err
	}
	return nil
}
