package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bakkerme/subsync/internal/core"
	"github.com/bakkerme/subsync/internal/export"
)

func TestBuildPlan_Defaults(t *testing.T) {
	opts, err := parseFlags(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	plan, err := buildPlan(opts)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Mode != core.ModeSubscribed || !slices.Equal(plan.Formats, []export.Format{export.FormatText}) {
		t.Fatalf("plan = %+v", plan)
	}
	if len(plan.Names) != 0 {
		t.Fatalf("names = %v", plan.Names)
	}
}

func TestBuildPlan_Flags(t *testing.T) {
	opts, err := parseFlags([]string{
		"-mode", "moderated", "-user", "u/bob", "-format", "txt, csv,json", "-out", "x.txt",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	plan, err := buildPlan(opts)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Mode != core.ModeModerated || plan.Username != "bob" || plan.OutputPath != "x.txt" {
		t.Fatalf("plan = %+v", plan)
	}
	want := []export.Format{export.FormatText, export.FormatCSV, export.FormatJSON}
	if !slices.Equal(plan.Formats, want) {
		t.Fatalf("formats = %v", plan.Formats)
	}
}

func TestBuildPlan_Rejects(t *testing.T) {
	for _, args := range [][]string{{"-mode", "nuke"}, {"-format", "xml"}} {
		opts, err := parseFlags(args, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("parse %v: %v", args, err)
		}
		if _, err := buildPlan(opts); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
	if _, err := parseFlags([]string{"stray"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for positional argument")
	}
}

func TestRun_MissingCredentialExitsBeforeNetwork(t *testing.T) {
	for _, key := range []string{"CLIENT_ID", "CLIENT_SECRET", "USERAGENT", "USERNAME", "PASSWORD"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("REDDIT_BASE_URL", "http://127.0.0.1:1/")
	t.Setenv("REDDIT_TOKEN_URL", "http://127.0.0.1:1/token")
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("CLIENT_ID=abc\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var out bytes.Buffer
	if code := run([]string{"-env-file", envFile}, &out); code != exitFailed {
		t.Fatalf("exit = %d, want %d; output:\n%s", code, exitFailed, out.String())
	}
	if !strings.Contains(out.String(), "missing CLIENT_SECRET") {
		t.Fatalf("output does not name the missing key:\n%s", out.String())
	}
}

func TestRun_BadFilterExits(t *testing.T) {
	t.Setenv("SUBREDDIT_FILTER", "name startsWith")
	var out bytes.Buffer
	if code := run([]string{"-env-file", filepath.Join(t.TempDir(), "absent.env")}, &out); code != exitFailed {
		t.Fatalf("exit = %d, want %d", code, exitFailed)
	}
}
