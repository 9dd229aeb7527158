package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultSQLiteTable = "subreddit_history"

type SQLiteStore struct {
	db         *sql.DB
	table      string
	tableIdent string
}

func NewSQLiteStore(dsn string, table string) (*SQLiteStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	if table == "" {
		table = defaultSQLiteTable
	}
	tableIdent, err := quoteSQLiteIdentifier(table)
	if err != nil {
		return nil, err
	}
	if err := ensureSQLiteDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{
		db:         db,
		table:      table,
		tableIdent: tableIdent,
	}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Record(ctx context.Context, username, listing string, names []string) (Diff, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Diff{}, err
	}
	defer func() { _ = tx.Rollback() }()

	previous, err := s.present(ctx, tx, username, listing)
	if err != nil {
		return Diff{}, err
	}

	now := time.Now().UTC()
	upsert, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (username, listing, name, first_seen, last_seen, present) VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(username, listing, name) DO UPDATE SET
			last_seen = excluded.last_seen,
			first_seen = CASE WHEN present = 1 THEN first_seen ELSE excluded.first_seen END,
			present = 1`, s.tableIdent))
	if err != nil {
		return Diff{}, err
	}
	defer upsert.Close()

	var diff Diff
	current := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, dup := current[name]; dup {
			continue
		}
		current[name] = struct{}{}
		if _, ok := previous[name]; !ok {
			diff.Added = append(diff.Added, name)
		}
		if _, err := upsert.ExecContext(ctx, username, listing, name, now, now); err != nil {
			return Diff{}, fmt.Errorf("record %s: %w", name, err)
		}
	}

	gone := fmt.Sprintf("UPDATE %s SET present = 0 WHERE username = ? AND listing = ? AND name = ?", s.tableIdent)
	for _, name := range sortedKeys(previous) {
		if _, ok := current[name]; ok {
			continue
		}
		diff.Removed = append(diff.Removed, name)
		if _, err := tx.ExecContext(ctx, gone, username, listing, name); err != nil {
			return Diff{}, fmt.Errorf("mark %s removed: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Diff{}, err
	}
	return diff, nil
}

// current returns the names last recorded for listing, in first-seen order.
func (s *SQLiteStore) current(ctx context.Context, username, listing string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT name FROM %s WHERE username = ? AND listing = ? AND present = 1 ORDER BY first_seen, rowid",
		s.tableIdent), username, listing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) present(ctx context.Context, tx *sql.Tx, username, listing string) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(
		"SELECT name FROM %s WHERE username = ? AND listing = ? AND present = 1", s.tableIdent), username, listing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		username TEXT NOT NULL,
		listing TEXT NOT NULL,
		name TEXT NOT NULL,
		first_seen TIMESTAMP NOT NULL,
		last_seen TIMESTAMP NOT NULL,
		present INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (username, listing, name)
	)`, s.tableIdent)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sqlite table: %w", err)
	}
	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_present_idx ON %s (username, listing, present)", s.table, s.tableIdent)
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("create sqlite index: %w", err)
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func ensureSQLiteDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") {
		dsn = strings.TrimPrefix(dsn, "file:")
		if idx := strings.IndexRune(dsn, '?'); idx >= 0 {
			dsn = dsn[:idx]
		}
	}
	if dsn == "" || dsn == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

var sqliteIdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteSQLiteIdentifier(identifier string) (string, error) {
	if !sqliteIdentifierPattern.MatchString(identifier) {
		return "", fmt.Errorf("sqlite table name %q must match %s", identifier, sqliteIdentifierPattern.String())
	}
	return `"` + identifier + `"`, nil
}
