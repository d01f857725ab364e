package evaluate

import (
	"github.com/rs/zerolog"

	"horse.fit/jobdedup/internal/pairing"
)

// Report compares the classifier output against the annotated duplicates.
// The positive class is "duplicate".
type Report struct {
	Thresholds     Thresholds
	Pairs          int
	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
	Accuracy       float64
	Precision      float64
	Recall         float64
	F1             float64
}

// Annotated reports whether any pair carries a known-duplicate mark.
func Annotated(pairs []pairing.Pair) bool {
	for _, p := range pairs {
		if p.A.Duplicate || p.B.Duplicate {
			return true
		}
	}
	return false
}

// NewReport scores the kept pairs against the annotation of all pairs.
// Pairs are matched by index.
func NewReport(all, kept []pairing.Pair, thresholds Thresholds) Report {
	predicted := make(map[int]struct{}, len(kept))
	for _, p := range kept {
		predicted[p.Index] = struct{}{}
	}

	r := Report{Thresholds: thresholds, Pairs: len(all)}
	for _, p := range all {
		_, dup := predicted[p.Index]
		actual := p.A.Duplicate && p.B.Duplicate
		switch {
		case dup && actual:
			r.TruePositives++
		case dup && !actual:
			r.FalsePositives++
		case !dup && actual:
			r.FalseNegatives++
		default:
			r.TrueNegatives++
		}
	}
	if r.Pairs > 0 {
		r.Accuracy = float64(r.TruePositives+r.TrueNegatives) / float64(r.Pairs)
	}
	r.Precision = ratio(r.TruePositives, r.TruePositives+r.FalsePositives)
	r.Recall = ratio(r.TruePositives, r.TruePositives+r.FalseNegatives)
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r
}

func (r Report) Log(logger zerolog.Logger, table string) {
	logger.Info().
		Str("table", table).
		Str("method", r.Thresholds.Method.String()).
		Int("pairs", r.Pairs).
		Float64("mean", r.Thresholds.Mean).
		Float64("median", r.Thresholds.Median).
		Float64("std", r.Thresholds.Std).
		Float64("threshold_same_source", r.Thresholds.SameSource).
		Float64("threshold_cross_source", r.Thresholds.CrossSource).
		Ints("confusion_matrix", []int{r.TrueNegatives, r.FalsePositives, r.FalseNegatives, r.TruePositives}).
		Float64("accuracy", r.Accuracy).
		Float64("precision", r.Precision).
		Float64("recall", r.Recall).
		Float64("f1", r.F1).
		Msg("classification report")
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
