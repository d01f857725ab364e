package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Settings are the analysis parameters read from SETTINGS_FILE. Fields typed
// as any keep whatever the file contained so that the consumers can apply
// their own fallback rules.
type Settings struct {
	MetadataFilter    MetadataFilter                   `yaml:"metadata_filter" toml:"metadata_filter"`
	SolutionAnnotated string                           `yaml:"solution_annotated" toml:"solution_annotated"`
	Thresholds        map[string]ThresholdCoefficients `yaml:"thresholds" toml:"thresholds"`
	TFIDF             TFIDFSettings                    `yaml:"tfidf" toml:"tfidf"`
	Embedding         EmbeddingSettings                `yaml:"embedding" toml:"embedding"`
	Preprocessing     PreprocessingSettings            `yaml:"preprocessing" toml:"preprocessing"`
	TopK              int                              `yaml:"top_k" toml:"top_k"`
}

type MetadataFilter struct {
	Date                 DateWindow `yaml:"date" toml:"date"`
	FullText             any        `yaml:"full_text" toml:"full_text"`
	LocationName         any        `yaml:"location_name" toml:"location_name"`
	ProfessionAdvertiser any        `yaml:"profisco_advname" toml:"profisco_advname"`
}

type DateWindow struct {
	Past   any `yaml:"past" toml:"past"`
	Future any `yaml:"future" toml:"future"`
}

// ThresholdCoefficients override the standard deviation multipliers of one
// method. Nil keeps the built-in value.
type ThresholdCoefficients struct {
	SameSource  *float64 `yaml:"same_source" toml:"same_source"`
	CrossSource *float64 `yaml:"cross_source" toml:"cross_source"`
}

type TFIDFSettings struct {
	SublinearTF bool `yaml:"sublinear_tf" toml:"sublinear_tf"`
}

type EmbeddingSettings struct {
	VectorSize int   `yaml:"vector_size" toml:"vector_size"`
	MinCount   int   `yaml:"min_count" toml:"min_count"`
	Window     int   `yaml:"window" toml:"window"`
	Epochs     int   `yaml:"epochs" toml:"epochs"`
	Seed       int64 `yaml:"seed" toml:"seed"`
}

type PreprocessingSettings struct {
	Language string `yaml:"language" toml:"language"`
	Stem     bool   `yaml:"stem" toml:"stem"`
}

const (
	DefaultTopK                = 10
	DefaultEmbeddingVectorSize = 100
	DefaultEmbeddingMinCount   = 2
	DefaultEmbeddingWindow     = 5
	DefaultEmbeddingEpochs     = 1
	DefaultLanguage            = "de"
)

func DefaultSettings() Settings {
	s := Settings{}
	applySettingsDefaults(&s)
	return s
}

// LoadSettings reads a YAML or TOML settings file, chosen by extension.
// A missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultSettings(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}

	var s Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(raw, &s); err != nil {
			return Settings{}, fmt.Errorf("parse toml settings %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return Settings{}, fmt.Errorf("parse yaml settings %s: %w", path, err)
		}
	default:
		return Settings{}, fmt.Errorf("unsupported settings format %q", filepath.Ext(path))
	}

	applySettingsDefaults(&s)
	return s, nil
}

func applySettingsDefaults(s *Settings) {
	if s.TopK <= 0 {
		s.TopK = DefaultTopK
	}
	if s.Embedding.VectorSize <= 0 {
		s.Embedding.VectorSize = DefaultEmbeddingVectorSize
	}
	if s.Embedding.MinCount <= 0 {
		s.Embedding.MinCount = DefaultEmbeddingMinCount
	}
	if s.Embedding.Window <= 0 {
		s.Embedding.Window = DefaultEmbeddingWindow
	}
	if s.Embedding.Epochs <= 0 {
		s.Embedding.Epochs = DefaultEmbeddingEpochs
	}
	if strings.TrimSpace(s.Preprocessing.Language) == "" {
		s.Preprocessing.Language = DefaultLanguage
	}
}
