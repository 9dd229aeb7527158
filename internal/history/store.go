package history

import "context"

// Store remembers which subreddits each account's listings contained.
type Store interface {
	// Record saves names as the current contents of listing for username and
	// reports how it differs from the previous record.
	Record(ctx context.Context, username, listing string, names []string) (Diff, error)
	Close() error
}

// Diff compares one fetch to the previous one. On the first record for a
// listing every name is Added.
type Diff struct {
	Added   []string
	Removed []string
}

func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}
