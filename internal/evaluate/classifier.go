package evaluate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"horse.fit/jobdedup/internal/pairing"
	"horse.fit/jobdedup/internal/record"
	"horse.fit/jobdedup/internal/similarity"
)

var ErrInvalidState = errors.New("classifier called out of order")

type State int

const (
	Uninitialized State = iota
	ThresholdsComputed
	Classified
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ThresholdsComputed:
		return "thresholds_computed"
	case Classified:
		return "classified"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Thresholds summarizes the score column of one table.
type Thresholds struct {
	Method      similarity.Method
	Count       int
	Mean        float64
	Median      float64
	Std         float64
	SameSource  float64
	CrossSource float64
}

// Classifier runs once per method and table: ComputeThresholds, then
// Classify.
type Classifier struct {
	method     similarity.Method
	coeff      Coefficients
	state      State
	thresholds Thresholds
}

func NewClassifier(method similarity.Method, table Table) (*Classifier, error) {
	coeff, ok := table[method]
	if !ok {
		return nil, fmt.Errorf("%w: no threshold coefficients for %q", similarity.ErrUnknownMethod, method)
	}
	return &Classifier{method: method, coeff: coeff}, nil
}

func (c *Classifier) State() State { return c.state }

// ComputeThresholds takes the mean and the sample standard deviation over
// the scores of every row, so each pair contributes twice.
func (c *Classifier) ComputeThresholds(pairs []pairing.Pair) (Thresholds, error) {
	if c.state != Uninitialized {
		return Thresholds{}, fmt.Errorf("%w: compute thresholds in state %s", ErrInvalidState, c.state)
	}
	column := c.method.String()
	var values []float64
	for _, p := range pairs {
		for _, rec := range [2]record.Record{p.A, p.B} {
			if v, ok := rec.Score(column); ok {
				values = append(values, v)
			}
		}
	}

	mean, std := meanStd(values)
	c.thresholds = Thresholds{
		Method:      c.method,
		Count:       len(values),
		Mean:        mean,
		Median:      median(values),
		Std:         std,
		SameSource:  mean + c.coeff.SameSource*std,
		CrossSource: mean + c.coeff.CrossSource*std,
	}
	c.state = ThresholdsComputed
	return c.thresholds, nil
}

// Classify keeps the pairs whose score reaches the threshold for their
// source combination. Pairs without a score are dropped. Order is kept.
func (c *Classifier) Classify(pairs []pairing.Pair) ([]pairing.Pair, error) {
	if c.state != ThresholdsComputed {
		return nil, fmt.Errorf("%w: classify in state %s", ErrInvalidState, c.state)
	}
	column := c.method.String()
	var kept []pairing.Pair
	for _, p := range pairs {
		score, ok := p.A.Score(column)
		if !ok {
			score, ok = p.B.Score(column)
		}
		if !ok {
			continue
		}
		threshold := c.thresholds.CrossSource
		if p.A.SourceWebsite == p.B.SourceWebsite {
			threshold = c.thresholds.SameSource
		}
		if score >= threshold {
			kept = append(kept, p)
		}
	}
	c.state = Classified
	return kept, nil
}

func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)-1))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
