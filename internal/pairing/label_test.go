package pairing

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"horse.fit/jobdedup/internal/record"
)

func TestRowsLabelsPairsInOrder(t *testing.T) {
	t.Parallel()

	pairs := []Pair{
		{A: record.Record{UniqueID: "A"}, B: record.Record{UniqueID: "B"}},
		{A: record.Record{UniqueID: "C"}, B: record.Record{UniqueID: "D"}},
	}
	rows := Rows(pairs)
	want := []string{"1_a", "1_b", "2_a", "2_b"}
	for i, row := range rows {
		if row.PairingLabel != want[i] {
			t.Fatalf("unexpected label at %d: got %s want %s", i, row.PairingLabel, want[i])
		}
	}
	if rows[2].UniqueID != "C" {
		t.Fatalf("expected order to be preserved, got %s", rows[2].UniqueID)
	}
}

func TestLabelIsIdempotent(t *testing.T) {
	t.Parallel()

	rows := []record.Record{{UniqueID: "A"}, {UniqueID: "B"}, {UniqueID: "C"}, {UniqueID: "D"}}
	once := Label(rows)
	twice := Label(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("relabeling changed the table: %v vs %v", once, twice)
	}
	if rows[0].PairingLabel != "" {
		t.Fatalf("expected input rows to stay untouched")
	}
}

func TestFromRowsRoundTrip(t *testing.T) {
	t.Parallel()

	rows := Label([]record.Record{{UniqueID: "A"}, {UniqueID: "B"}, {UniqueID: "C"}, {UniqueID: "D"}})
	kept := rows[2:]
	pairs, err := FromRows(kept)
	if err != nil {
		t.Fatalf("from rows failed: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Index != 2 || pairs[0].A.UniqueID != "C" || pairs[0].B.UniqueID != "D" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}

func TestFromRowsRejectsMalformedTables(t *testing.T) {
	t.Parallel()

	cases := map[string][]record.Record{
		"odd":        {{PairingLabel: "1_a"}},
		"unlabeled":  {{}, {}},
		"mismatched": {{PairingLabel: "1_a"}, {PairingLabel: "2_b"}},
		"swapped":    {{PairingLabel: "1_b"}, {PairingLabel: "1_a"}},
		"bad number": {{PairingLabel: "x_a"}, {PairingLabel: "x_b"}},
	}
	for name, rows := range cases {
		if _, err := FromRows(rows); !errors.Is(err, ErrMalformedPairs) {
			t.Fatalf("%s: expected ErrMalformedPairs, got %v", name, err)
		}
	}
}

func TestAnnotateMatchesEitherOrder(t *testing.T) {
	t.Parallel()

	known, err := ParseKnownDuplicates(strings.NewReader("t1,t2\n\n t4 , t3 \n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if known.Len() != 2 {
		t.Fatalf("unexpected known duplicate count: got %d want 2", known.Len())
	}
	pairs := []Pair{
		{A: record.Record{TestsetID: "t2"}, B: record.Record{TestsetID: "t1"}},
		{A: record.Record{TestsetID: "t3"}, B: record.Record{TestsetID: "t4"}},
		{A: record.Record{TestsetID: "t1"}, B: record.Record{TestsetID: "t3"}},
		{A: record.Record{TestsetID: "t1"}, B: record.Record{}},
	}
	summary := Annotate(pairs, known)
	if summary.Marked != 2 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !pairs[0].A.Duplicate || !pairs[0].B.Duplicate || !pairs[1].A.Duplicate {
		t.Fatalf("expected known pairs to be marked on both rows")
	}
	if pairs[2].A.Duplicate || pairs[3].A.Duplicate {
		t.Fatalf("unexpected duplicate mark")
	}
}

func TestParseKnownDuplicatesRejectsMalformedLine(t *testing.T) {
	t.Parallel()

	if _, err := ParseKnownDuplicates(strings.NewReader("t1,t2,t3\n")); err == nil {
		t.Fatalf("expected an error for a three field line")
	}
}
