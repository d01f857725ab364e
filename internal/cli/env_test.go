package cli

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvLoaderLoadsRequestedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(path, []byte("JOBDEDUP_TEST_VALUE=from-file\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("JOBDEDUP_TEST_VALUE", "")
	for _, v := range OverrideVars {
		t.Setenv(v, "")
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, ".env", "")
	if err := fs.Parse([]string{"--env", path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != path {
		t.Fatalf("unexpected loaded path: got %q want %q", loaded, path)
	}
	if got := os.Getenv("JOBDEDUP_TEST_VALUE"); got != "from-file" {
		t.Fatalf("unexpected env value: got %q", got)
	}
}

func TestEnvLoaderReportsMissingFile(t *testing.T) {
	for _, v := range OverrideVars {
		t.Setenv(v, "")
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	missing := filepath.Join(t.TempDir(), "nope.env")
	loader := AddEnvFlag(fs, missing, "")
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if _, err := loader.Load(); !errors.Is(err, ErrNoEnvFile) {
		t.Fatalf("expected ErrNoEnvFile, got %v", err)
	}
}

func TestEnvLoaderCandidatesPreferOverride(t *testing.T) {
	t.Setenv(OverrideVars[0], "/tmp/override.env")
	t.Setenv(OverrideVars[1], "")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, ".env", "")
	if err := fs.Parse([]string{"--env", "conf/dev.env"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	got := loader.Candidates()
	want := []string{"/tmp/override.env", "conf/dev.env", "dev.env", ".env"}
	if len(got) != len(want) {
		t.Fatalf("unexpected candidates: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected candidate %d: got %q want %q", i, got[i], want[i])
		}
	}
}
