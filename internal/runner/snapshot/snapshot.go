package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bakkerme/subsync/internal/core"
)

// Path returns <dir>/run-<id>.json.
func Path(dir, runID string) string {
	return filepath.Join(dir, "run-"+runID+".json")
}

// Save writes the run record as indented JSON.
func Save(path string, run *core.Run) error {
	if path == "" {
		return fmt.Errorf("snapshot path is required")
	}
	if run == nil {
		return fmt.Errorf("run is required")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func Load(path string) (*core.Run, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var run core.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &run, nil
}
