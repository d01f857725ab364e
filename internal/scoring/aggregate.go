// Package scoring writes one similarity score per candidate pair.
package scoring

import (
	"fmt"

	"horse.fit/jobdedup/internal/pairing"
	"horse.fit/jobdedup/internal/record"
	"horse.fit/jobdedup/internal/similarity"
)

// Distributor is the scoring backend; *similarity.Distributor satisfies it.
type Distributor interface {
	Distribute(method similarity.Method, a, b string, jaccard bool) (float64, error)
}

type Summary struct {
	Scored  int
	Skipped int
}

// Aggregate scores every pair with method and stores the score on both
// records under the method's column. Pairs lacking a normalized text on
// either side get no score. A distributor error aborts the whole call.
func Aggregate(pairs []pairing.Pair, method similarity.Method, jaccard bool, distributor Distributor) (Summary, error) {
	var summary Summary
	column := method.String()
	for i := range pairs {
		a, b := &pairs[i].A, &pairs[i].B
		if !a.Has(record.FieldNormalizedText) || !b.Has(record.FieldNormalizedText) {
			delete(a.Scores, column)
			delete(b.Scores, column)
			summary.Skipped++
			continue
		}
		score, err := distributor.Distribute(method, a.NormalizedText, b.NormalizedText, jaccard)
		if err != nil {
			return summary, fmt.Errorf("score pair %d with %s: %w", pairs[i].Index, method, err)
		}
		a.SetScore(column, score)
		b.SetScore(column, score)
		summary.Scored++
	}
	return summary, nil
}
