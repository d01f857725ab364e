package pairing

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"horse.fit/jobdedup/internal/record"
)

// RunWarnings deduplicates data warnings over all tables of one run.
type RunWarnings struct {
	missingTrain sync.Once
}

func (w *RunWarnings) warnMissingTrain(logger zerolog.Logger, trainID string) {
	w.missingTrain.Do(func() {
		logger.Warn().
			Str("train_id", trainID).
			Msg("shortlist names train records that are not in the train set; the model may be out of date, skipping them")
	})
}

// OutsideResult is the outcome of one cross-dataset filter call.
type OutsideResult struct {
	Pairs        []Pair
	MissingTrain int
	MissingTest  int
}

// FilterOutside checks only the (test id, train id) candidates of the
// shortlist, with the date window taken from the test record. Train ids
// absent from train are skipped and counted.
func FilterOutside(test, train []record.Record, shortlist [][2]string, params FilterParams, warnings *RunWarnings, logger zerolog.Logger) (OutsideResult, error) {
	if len(test) == 0 {
		return OutsideResult{}, fmt.Errorf("%w: test records", ErrEmptyRecordSet)
	}
	if len(train) == 0 {
		return OutsideResult{}, fmt.Errorf("%w: train records", ErrEmptyRecordSet)
	}
	if warnings == nil {
		warnings = &RunWarnings{}
	}

	testByID := indexByID(test)
	trainByID := indexByID(train)

	var result OutsideResult
	seen := NewSeen()
	for _, candidate := range shortlist {
		testID, trainID := candidate[0], candidate[1]
		ti, ok := testByID[testID]
		if !ok {
			result.MissingTest++
			logger.Debug().Str("test_id", testID).Msg("shortlist test record not found")
			continue
		}
		ri, ok := trainByID[trainID]
		if !ok {
			result.MissingTrain++
			warnings.warnMissingTrain(logger, trainID)
			continue
		}
		anchor, other := test[ti], train[ri]
		if sameRecord(anchor, other) || !params.accept(anchor, other) {
			continue
		}
		if !seen.Add(testID, trainID) {
			continue
		}
		result.Pairs = append(result.Pairs, Pair{Index: len(result.Pairs) + 1, A: anchor.Clone(), B: other.Clone()})
	}
	return result, nil
}

func indexByID(records []record.Record) map[string]int {
	index := make(map[string]int, len(records))
	for i, r := range records {
		if !r.Has(record.FieldUniqueID) {
			continue
		}
		if _, ok := index[r.UniqueID]; !ok {
			index[r.UniqueID] = i
		}
	}
	return index
}
