// Package evaluate derives per-method duplicate thresholds from the score
// distribution of a table and keeps the pairs that reach them.
package evaluate

import (
	"fmt"

	"horse.fit/jobdedup/internal/config"
	"horse.fit/jobdedup/internal/similarity"
)

// Coefficients are the standard deviation multipliers k in mean + k*std for
// pairs from the same source website and from different ones.
type Coefficients struct {
	SameSource  float64
	CrossSource float64
}

// Table maps each method to its coefficients.
type Table map[similarity.Method]Coefficients

// DefaultTable holds empirically fitted coefficients. They are tuning
// values, not derived ones; override them in the settings file.
func DefaultTable() Table {
	return Table{
		similarity.BagOfWords:   {SameSource: 3, CrossSource: 0},
		similarity.Embedding:    {SameSource: 1.5, CrossSource: 1},
		similarity.EditDistance: {SameSource: 2, CrossSource: 1},
		similarity.TFIDF:        {SameSource: 3, CrossSource: 0.5},
		similarity.Shingling:    {SameSource: 3, CrossSource: 0},
	}
}

// TableFromSettings applies the threshold overrides of the settings file to
// the defaults. Method keys may use any accepted alias.
func TableFromSettings(overrides map[string]config.ThresholdCoefficients) (Table, error) {
	table := DefaultTable()
	for key, override := range overrides {
		method, err := similarity.ParseMethod(key)
		if err != nil {
			return nil, fmt.Errorf("thresholds: %w", err)
		}
		c := table[method]
		if override.SameSource != nil {
			c.SameSource = *override.SameSource
		}
		if override.CrossSource != nil {
			c.CrossSource = *override.CrossSource
		}
		table[method] = c
	}
	return table, nil
}
