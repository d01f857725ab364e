// Package pairing builds candidate duplicate pairs from metadata, lays them
// out as labeled row pairs, and marks known duplicates.
package pairing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"horse.fit/jobdedup/internal/record"
)

var (
	ErrEmptyRecordSet = errors.New("empty record set")
	ErrMalformedPairs = errors.New("malformed pair table")
)

// Pair is one candidate duplicate. Index is the 1-based pair number used in
// the row labels.
type Pair struct {
	Index int
	A, B  record.Record
}

// Rows lays pairs out as consecutive rows and labels them. The pairs are
// renumbered from 1 in slice order.
func Rows(pairs []Pair) []record.Record {
	rows := make([]record.Record, 0, 2*len(pairs))
	for _, p := range pairs {
		rows = append(rows, p.A.Clone(), p.B.Clone())
	}
	return Label(rows)
}

// Label assigns <n>_a and <n>_b to consecutive rows, n starting at 1. The
// input is not modified.
func Label(rows []record.Record) []record.Record {
	out := record.CloneAll(rows)
	for i := range out {
		suffix := "a"
		if i%2 == 1 {
			suffix = "b"
		}
		out[i].PairingLabel = fmt.Sprintf("%d_%s", i/2+1, suffix)
	}
	return out
}

// FromRows rebuilds pairs from a labeled table. Pair numbers need not be
// contiguous, so filtered output tables are accepted.
func FromRows(rows []record.Record) ([]Pair, error) {
	if len(rows)%2 != 0 {
		return nil, fmt.Errorf("%w: odd row count %d", ErrMalformedPairs, len(rows))
	}
	pairs := make([]Pair, 0, len(rows)/2)
	for i := 0; i < len(rows); i += 2 {
		na, sa, err := parseLabel(rows[i].PairingLabel)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedPairs, i+1, err)
		}
		nb, sb, err := parseLabel(rows[i+1].PairingLabel)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedPairs, i+2, err)
		}
		if sa != "a" || sb != "b" || na != nb {
			return nil, fmt.Errorf("%w: rows %d and %d are labeled %q and %q", ErrMalformedPairs, i+1, i+2, rows[i].PairingLabel, rows[i+1].PairingLabel)
		}
		pairs = append(pairs, Pair{Index: na, A: rows[i].Clone(), B: rows[i+1].Clone()})
	}
	return pairs, nil
}

func parseLabel(label string) (int, string, error) {
	number, suffix, ok := strings.Cut(strings.TrimSpace(label), "_")
	if !ok {
		return 0, "", fmt.Errorf("label %q has no suffix", label)
	}
	n, err := strconv.Atoi(number)
	if err != nil || n < 1 {
		return 0, "", fmt.Errorf("label %q has no pair number", label)
	}
	return n, suffix, nil
}
