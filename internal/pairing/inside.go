package pairing

import (
	"strconv"

	"github.com/rs/zerolog"

	"horse.fit/jobdedup/internal/record"
)

// FilterInside pairs the records of one table. Anchors are visited in table
// order; candidates come from the records sharing the anchor's full text,
// location or profession code, or from every record when only the date
// window is enabled. Both records must lie in each other's date window.
func FilterInside(records []record.Record, params FilterParams, logger zerolog.Logger) []Pair {
	byFullText := indexBy(records, record.FieldFullText)
	byLocation := indexBy(records, record.FieldLocationName)
	byProfession := indexBy(records, record.FieldProfessionCode)

	seen := NewSeen()
	var pairs []Pair
	emit := func(i, j int) {
		if i == j || sameRecord(records[i], records[j]) {
			return
		}
		if !params.acceptMutual(records[i], records[j]) {
			return
		}
		if !seen.Add(pairKey(records, i), pairKey(records, j)) {
			return
		}
		pairs = append(pairs, Pair{Index: len(pairs) + 1, A: records[i].Clone(), B: records[j].Clone()})
	}

	for i, anchor := range records {
		if params.DateOnly() {
			for j := range records {
				emit(i, j)
			}
			continue
		}
		if params.fullText {
			candidates(logger, anchor, record.FieldFullText, byFullText, func(j int) { emit(i, j) })
		}
		if params.location {
			candidates(logger, anchor, record.FieldLocationName, byLocation, func(j int) { emit(i, j) })
		}
		if params.professionAdvertiser {
			candidates(logger, anchor, record.FieldProfessionCode, byProfession, func(j int) { emit(i, j) })
		}
	}
	return pairs
}

func candidates(logger zerolog.Logger, anchor record.Record, field record.Field, index map[string][]int, visit func(int)) {
	if !anchor.Has(field) {
		logger.Debug().
			Str("unique_id", anchor.UniqueID).
			Str("field", string(field)).
			Msg("predicate skipped, field missing")
		return
	}
	for _, j := range index[anchor.Value(field)] {
		visit(j)
	}
}

func indexBy(records []record.Record, field record.Field) map[string][]int {
	index := make(map[string][]int)
	for i, r := range records {
		if !r.Has(field) {
			continue
		}
		value := r.Value(field)
		index[value] = append(index[value], i)
	}
	return index
}

func sameRecord(a, b record.Record) bool {
	return a.UniqueID != "" && a.UniqueID == b.UniqueID
}

// pairKey identifies a record for pair memory, falling back to its position
// when it has no unique id.
func pairKey(records []record.Record, i int) string {
	if id := records[i].UniqueID; id != "" {
		return id
	}
	return "#" + strconv.Itoa(i)
}
