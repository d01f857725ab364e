package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("WORKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Fatalf("unexpected driver: got %q want %q", cfg.StoreDriver, DriverSQLite)
	}
	if cfg.Workers != 1 {
		t.Fatalf("unexpected workers: got %d want 1", cfg.Workers)
	}
	if got := cfg.ModelPath("tfidf"); got != filepath.Join("models", "tfidf_model.gob") {
		t.Fatalf("unexpected model path: %q", got)
	}
}

func TestLoadPostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error when DATABASE_URL is missing")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := Config{
		StoreDriver:   DriverMemory,
		ModelDir:      "models",
		WorkDir:       "work",
		IDCounterFile: "ids.txt",
		Workers:       1,
		ChunkSize:     10,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected base config to be valid, got %v", err)
	}

	cases := map[string]func(c *Config){
		"driver":   func(c *Config) { c.StoreDriver = "mongo" },
		"workers":  func(c *Config) { c.Workers = 0 },
		"chunk":    func(c *Config) { c.ChunkSize = 0 },
		"max rows": func(c *Config) { c.MaxRowsPerTable = -1 },
		"models":   func(c *Config) { c.ModelDir = " " },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.TopK != DefaultTopK {
		t.Fatalf("unexpected top_k: got %d want %d", s.TopK, DefaultTopK)
	}
	if s.Preprocessing.Language != DefaultLanguage {
		t.Fatalf("unexpected language: %q", s.Preprocessing.Language)
	}
}

func TestLoadSettingsYAMLKeepsRawFilterValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
metadata_filter:
  date:
    past: 30
    future: "soon"
  full_text: true
  location_name: "yes"
  profisco_advname: false
solution_annotated: known.txt
thresholds:
  tfidf:
    same_source: 2.5
tfidf:
  sublinear_tf: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.MetadataFilter.Date.Past != 30 {
		t.Fatalf("unexpected past: %#v", s.MetadataFilter.Date.Past)
	}
	if s.MetadataFilter.Date.Future != "soon" {
		t.Fatalf("unexpected future: %#v", s.MetadataFilter.Date.Future)
	}
	if s.MetadataFilter.LocationName != "yes" {
		t.Fatalf("unexpected location_name: %#v", s.MetadataFilter.LocationName)
	}
	if s.MetadataFilter.ProfessionAdvertiser != false {
		t.Fatalf("unexpected profisco_advname: %#v", s.MetadataFilter.ProfessionAdvertiser)
	}
	coeff, ok := s.Thresholds["tfidf"]
	if !ok || coeff.SameSource == nil || *coeff.SameSource != 2.5 || coeff.CrossSource != nil {
		t.Fatalf("unexpected tfidf thresholds: %#v", coeff)
	}
	if !s.TFIDF.SublinearTF {
		t.Fatalf("expected sublinear_tf")
	}
	if s.SolutionAnnotated != "known.txt" {
		t.Fatalf("unexpected solution_annotated: %q", s.SolutionAnnotated)
	}
}

func TestLoadSettingsTOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
top_k = 5

[metadata_filter]
full_text = false

[metadata_filter.date]
past = 14
future = 7

[embedding]
vector_size = 32
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.TopK != 5 {
		t.Fatalf("unexpected top_k: %d", s.TopK)
	}
	if s.MetadataFilter.Date.Past != int64(14) {
		t.Fatalf("unexpected past: %#v", s.MetadataFilter.Date.Past)
	}
	if s.MetadataFilter.FullText != false {
		t.Fatalf("unexpected full_text: %#v", s.MetadataFilter.FullText)
	}
	if s.Embedding.VectorSize != 32 || s.Embedding.Window != DefaultEmbeddingWindow {
		t.Fatalf("unexpected embedding settings: %#v", s.Embedding)
	}
}

func TestLoadSettingsRejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte("x=1"), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatalf("expected error for .ini settings")
	}
}
