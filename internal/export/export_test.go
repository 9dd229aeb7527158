package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestWrite_TextNoTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "subs.txt")
	if err := Write(FormatText, path, []string{"a", "b", "c"}, Meta{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "a\nb\nc" {
		t.Fatalf("contents = %q", data)
	}
}

func TestWrite_CSVHeaderAndCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.csv")
	if err := Write(FormatCSV, path, []string{"x", "with,comma"}, Meta{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, _ := os.ReadFile(path)
	want := "Subreddits\r\nx\r\n\"with,comma\"\r\n"
	if string(data) != want {
		t.Fatalf("contents = %q, want %q", data, want)
	}
}

func TestWrite_EmptyLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.txt")
	if err := os.WriteFile(path, []byte("keep"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	err := Write(FormatText, path, nil, Meta{})
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("err = %v, want ErrNothingToExport", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "keep" {
		t.Fatalf("file modified: %q", data)
	}
}

func TestWrite_OverwritesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.txt")
	if err := Write(FormatText, path, []string{"one", "two", "three"}, Meta{}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := Write(FormatText, path, []string{"four"}, Meta{}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "four" {
		t.Fatalf("contents = %q", data)
	}
}

func TestWrite_DirectoryCannotBeCreated(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Write(FormatText, filepath.Join(blocker, "subs.txt"), []string{"a"}, Meta{}); err == nil {
		t.Fatalf("expected error when parent is a file")
	}
}

func TestRender_JSONAndYAMLDocuments(t *testing.T) {
	meta := Meta{Username: "alice", Source: "subscribed", ExportedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	names := []string{"golang", "rust"}

	data, err := Render(FormatJSON, names, meta)
	if err != nil {
		t.Fatalf("render json: %v", err)
	}
	var fromJSON document
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatalf("unmarshal json: %v", err)
	}
	if fromJSON.Count != 2 || fromJSON.Username != "alice" || strings.Join(fromJSON.Subreddits, ",") != "golang,rust" {
		t.Fatalf("json document = %+v", fromJSON)
	}

	data, err = Render(FormatYAML, names, meta)
	if err != nil {
		t.Fatalf("render yaml: %v", err)
	}
	var fromYAML document
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}
	if fromYAML.Source != "subscribed" || !fromYAML.ExportedAt.Equal(meta.ExportedAt) {
		t.Fatalf("yaml document = %+v", fromYAML)
	}
}

func TestRender_HTMLLinksEachSubreddit(t *testing.T) {
	data, err := Render(FormatHTML, []string{"golang"}, Meta{Username: "alice"})
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	html := string(data)
	if !strings.Contains(html, `<a href="https://www.reddit.com/r/golang/">r/golang</a>`) {
		t.Fatalf("missing link in %s", html)
	}
	if !strings.Contains(html, "<h1>Subreddits for u/alice</h1>") {
		t.Fatalf("missing heading in %s", html)
	}
}

func TestReadText_StripsLineTerminators(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.txt")
	if err := os.WriteFile(path, []byte("a\r\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := ReadText(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Join(got, "|") != "a|b|c" {
		t.Fatalf("got %q", got)
	}
}

func TestReadText_Missing(t *testing.T) {
	if _, err := ReadText(filepath.Join(t.TempDir(), "absent.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not exist", err)
	}
}

func TestParseFormatAndDefaultPath(t *testing.T) {
	cases := map[string]Format{"txt": FormatText, "TEXT": FormatText, "csv": FormatCSV, "yml": FormatYAML, "json": FormatJSON, "html": FormatHTML}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
	if got := DefaultPath("", FormatText); got != filepath.Join("output", "subreddits", "subreddits.txt") {
		t.Fatalf("DefaultPath = %q", got)
	}
	if got := DefaultPath("backup", FormatCSV); got != filepath.Join("backup", "subreddits.csv") {
		t.Fatalf("DefaultPath = %q", got)
	}
}
