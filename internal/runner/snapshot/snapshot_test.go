package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bakkerme/subsync/internal/core"
)

func TestSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	done := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &core.Run{
		ID:          "abc",
		Mode:        core.ModeSubscribed,
		Username:    "alice",
		StartedAt:   done.Add(-time.Second),
		CompletedAt: &done,
		Status:      core.RunStatusCompleted,
		Fetched:     2,
		Files:       []string{"output/subreddits/subreddits.txt"},
	}
	path := Path(dir, run.ID)
	if err := Save(path, run); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != "abc" || got.Fetched != 2 || got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Fatalf("loaded = %+v", got)
	}
}

func TestSave_RequiresPathAndRun(t *testing.T) {
	if err := Save("", &core.Run{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if err := Save(filepath.Join(t.TempDir(), "x.json"), nil); err == nil {
		t.Fatalf("expected error for nil run")
	}
}
