package reddit

import (
	"context"
	"errors"
	"iter"
)

// Names is a lazy, finite sequence of subreddit display names. Ranging over it
// again starts from the first page. A failed page is yielded as ("", err) and
// ends the sequence.
type Names = iter.Seq2[string, error]

// Session is the authenticated connection used to act on behalf of one account.
type Session interface {
	// Username is the authenticated identity.
	Username() string
	// Subscribed lists every subreddit the account follows, paging until the
	// API reports no further results.
	Subscribed(ctx context.Context) Names
	// Moderated lists the subreddits username moderates. An empty username
	// means the authenticated account.
	Moderated(ctx context.Context, username string) Names
	// Subscribe follows a single subreddit by name.
	Subscribe(ctx context.Context, name string) error
}

// ErrEmptyName is returned when asked to subscribe to a blank name.
var ErrEmptyName = errors.New("subreddit name is empty")

// Collect drains names. On error the partial result is discarded.
func Collect(names Names) ([]string, error) {
	out := []string{}
	for name, err := range names {
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// FromSlice yields names in order, then err if non-nil.
func FromSlice(names []string, err error) Names {
	return func(yield func(string, error) bool) {
		for _, name := range names {
			if !yield(name, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}
