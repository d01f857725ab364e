package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"horse.fit/jobdedup/internal/config"
	"horse.fit/jobdedup/internal/record"
)

func sampleRecords() []record.Record {
	a := record.Record{
		UniqueID:       "0000-0000-0000-0001",
		Date:           "2021-02-01",
		FullText:       "Wir suchen eine Pflegekraft",
		NormalizedText: "suchen pflegekraft",
		LocationName:   "Berlin",
		ProfessionCode: "2221",
		AdvertiserName: "Klinikum Nord",
		SourceWebsite:  "jobs.example",
		TestsetID:      "t1",
		PairingLabel:   "1_a",
		Duplicate:      true,
	}
	a.SetScore("levenshtein", 0.75)
	b := record.Record{UniqueID: "0000-0000-0000-0002", PairingLabel: "1_b"}
	b.SetScore("tfidf", 0)
	return []record.Record{a, b}
}

func assertRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	want := sampleRecords()
	if err := s.WriteTable(ctx, "pair__jobs", want); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	got, err := s.ReadTable(ctx, "pair__jobs")
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected row count: got %d want %d", len(got), len(want))
	}
	if got[0].UniqueID != want[0].UniqueID || got[0].AdvertiserName != "Klinikum Nord" || !got[0].Duplicate {
		t.Fatalf("unexpected first row: %#v", got[0])
	}
	if score, ok := got[0].Score("levenshtein"); !ok || score != 0.75 {
		t.Fatalf("unexpected levenshtein score: %v %v", score, ok)
	}
	if _, ok := got[0].Score("tfidf"); ok {
		t.Fatalf("expected tfidf score to be absent on first row")
	}
	if score, ok := got[1].Score("tfidf"); !ok || score != 0 {
		t.Fatalf("expected zero tfidf score to survive, got %v %v", score, ok)
	}
	if got[1].PairingLabel != "1_b" {
		t.Fatalf("unexpected second label: %q", got[1].PairingLabel)
	}

	// Writing replaces the previous content.
	if err := s.WriteTable(ctx, "pair__jobs", want[:1]); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	got, err = s.ReadTable(ctx, "pair__jobs")
	if err != nil {
		t.Fatalf("ReadTable after rewrite failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected rewrite to replace rows, got %d", len(got))
	}

	if _, err := s.ReadTable(ctx, "pair__missing"); !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}

	if err := s.WriteTable(ctx, "calc__jobs", nil); err != nil {
		t.Fatalf("write empty table failed: %v", err)
	}
	names, err := s.ListTables(ctx, "pair__")
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(names) != 1 || names[0] != "pair__jobs" {
		t.Fatalf("unexpected tables: %v", names)
	}
	empty, err := s.ReadTable(ctx, "calc__jobs")
	if err != nil {
		t.Fatalf("read empty table failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty table, got %d rows", len(empty))
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()
	assertRoundTrip(t, NewMemory())
}

func TestMemoryReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()
	rows := sampleRecords()
	if err := m.WriteTable(ctx, "t", rows); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	rows[0].SetScore("levenshtein", 0.1)

	got, err := m.ReadTable(ctx, "t")
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if score, _ := got[0].Score("levenshtein"); score != 0.75 {
		t.Fatalf("stored table was mutated through the caller slice: %v", score)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "store", "jobs.db"), Options{ChunkSize: 1})
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()
	assertRoundTrip(t, s)
}

func TestSQLiteMaxRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "jobs.db"), Options{ChunkSize: 2, MaxRows: 3})
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	rows := make([]record.Record, 5)
	for i := range rows {
		rows[i] = record.Record{UniqueID: string(rune('a' + i))}
	}
	if err := s.WriteTable(ctx, "input_test__jobs", rows); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	got, err := s.ReadTable(ctx, "input_test__jobs")
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("unexpected capped row count: got %d want 3", len(got))
	}
	if got[2].UniqueID != "c" {
		t.Fatalf("unexpected row order: %q", got[2].UniqueID)
	}
}

func TestSQLiteQuotesTableNames(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "jobs.db"), Options{})
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	name := `output__ads "2021"`
	if err := s.WriteTable(ctx, name, sampleRecords()); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	got, err := s.ReadTable(ctx, name)
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected row count: %d", len(got))
	}
}

func TestOpenMemoryDriverSerializesWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := Open(ctx, &config.Config{StoreDriver: config.DriverMemory})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.WriteTable(ctx, "output__shared", sampleRecords()); err != nil {
				t.Errorf("WriteTable failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.ReadTable(ctx, "output__shared")
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected row count: %d", len(got))
	}
}

func TestWriteRejectsEmptyName(t *testing.T) {
	t.Parallel()

	if err := NewMemory().WriteTable(context.Background(), " ", nil); err == nil {
		t.Fatalf("expected error for blank table name")
	}
}
