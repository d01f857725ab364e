package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/jobdedup/internal/evaluate"
	"horse.fit/jobdedup/internal/ids"
	"horse.fit/jobdedup/internal/model/tfidf"
	"horse.fit/jobdedup/internal/pairing"
	"horse.fit/jobdedup/internal/record"
	"horse.fit/jobdedup/internal/similarity"
	"horse.fit/jobdedup/internal/store"
	"horse.fit/jobdedup/internal/textprep"
)

func newTestService(t *testing.T) (*Service, *store.Serialized) {
	t.Helper()
	st := store.NewSerialized(store.NewMemory())
	return NewService(st, zerolog.Nop(), Options{Workers: 2}), st
}

func newPreprocessor(t *testing.T) *textprep.Preprocessor {
	t.Helper()
	p, err := textprep.New(textprep.Options{Language: "de"})
	if err != nil {
		t.Fatalf("preprocessor failed: %v", err)
	}
	return p
}

func newGenerator(t *testing.T) *ids.Generator {
	t.Helper()
	g, err := ids.NewGenerator(filepath.Join(t.TempDir(), "last_unique_id.txt"))
	if err != nil {
		t.Fatalf("id generator failed: %v", err)
	}
	return g
}

func expectMissing(t *testing.T, err error, step string) {
	t.Helper()
	missing, ok := AsMissingUpstream(err)
	if !ok {
		t.Fatalf("expected MissingUpstreamError for %s, got %v", step, err)
	}
	if missing.Step != step {
		t.Fatalf("unexpected step: got %s want %s", missing.Step, step)
	}
}

func TestInsideAnalysisEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTestService(t)
	prep := newPreprocessor(t)

	ads := []record.Record{
		{Date: "2024-03-01", FullText: "Pflegefachkraft für die Nachtschicht gesucht", LocationName: "Berlin", SourceWebsite: "jobs.example"},
		{Date: "2024-03-02", FullText: "Pflegefachkraft für die Nachtschicht gesucht", LocationName: "Berlin", SourceWebsite: "jobs.example"},
		{Date: "2024-03-02", FullText: "Koch für Restaurant am Hafen", LocationName: "Hamburg", SourceWebsite: "other.example"},
	}
	if err := svc.ImportTable(ctx, Test, "berlin", ads); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	idResult, err := svc.AssignIDs(ctx, Test, newGenerator(t))
	if err != nil {
		t.Fatalf("assign ids failed: %v", err)
	}
	if idResult.Records != 3 || idResult.LastID != "0000-0000-0000-0003" {
		t.Fatalf("unexpected id result: %+v", idResult)
	}
	if _, err := svc.Preprocess(ctx, Test, prep); err != nil {
		t.Fatalf("preprocess failed: %v", err)
	}

	pairResult, err := svc.PairInside(ctx, pairing.DefaultFilterParams(), nil)
	if err != nil {
		t.Fatalf("pairing failed: %v", err)
	}
	if pairResult.Pairs != 1 {
		t.Fatalf("unexpected pair count: got %d want 1", pairResult.Pairs)
	}

	calc, err := svc.Calculate(ctx, similarity.EditDistance, false, similarity.NewDistributor())
	if err != nil {
		t.Fatalf("calculation failed: %v", err)
	}
	if calc.Scored != 1 {
		t.Fatalf("unexpected scored count: got %d want 1", calc.Scored)
	}

	eval, err := svc.Evaluate(ctx, similarity.EditDistance, evaluate.DefaultTable())
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if eval.Duplicates != 1 || len(eval.Outputs) != 1 || eval.Outputs[0] != "output__testdata_output" {
		t.Fatalf("unexpected evaluation result: %+v", eval)
	}

	rows, err := st.ReadTable(ctx, "output__testdata_output")
	if err != nil {
		t.Fatalf("read output failed: %v", err)
	}
	if len(rows) != 2 || rows[0].PairingLabel != "1_a" || rows[1].PairingLabel != "1_b" {
		t.Fatalf("unexpected output rows: %+v", rows)
	}
	if score, ok := rows[1].Score("levenshtein"); !ok || score != 1 {
		t.Fatalf("unexpected output score: %v %v", score, ok)
	}
}

func TestStepsReportMissingUpstream(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTestService(t)

	_, err := svc.AssignIDs(ctx, Test, newGenerator(t))
	expectMissing(t, err, StepImport)

	_, err = svc.Preprocess(ctx, Test, newPreprocessor(t))
	expectMissing(t, err, StepIDHandling)

	_, err = svc.PairInside(ctx, pairing.DefaultFilterParams(), nil)
	expectMissing(t, err, StepPreprocessing)

	_, err = svc.Calculate(ctx, similarity.EditDistance, false, similarity.NewDistributor())
	expectMissing(t, err, StepPairing)

	_, err = svc.Evaluate(ctx, similarity.EditDistance, evaluate.DefaultTable())
	expectMissing(t, err, StepCalculation)

	_, err = svc.PairOutside(ctx, pairing.DefaultFilterParams(), filepath.Join(t.TempDir(), "shortlist_tfidf.json"), nil)
	expectMissing(t, err, StepMostSim)

	_, err = LoadTFIDF(filepath.Join(t.TempDir(), "tfidf_model.gob"))
	expectMissing(t, err, StepModeling)

	if err := st.WriteTable(ctx, TableName(StageIDTest, "berlin"), []record.Record{{FullText: "ohne id"}}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	_, err = svc.Preprocess(ctx, Test, newPreprocessor(t))
	expectMissing(t, err, StepIDHandling)
}

func TestEvaluateRequiresScoresOfMethod(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTestService(t)
	rows := pairing.Rows([]pairing.Pair{{
		A: record.Record{UniqueID: "A", NormalizedText: "koch hamburg"},
		B: record.Record{UniqueID: "B", NormalizedText: "koch hamburg"},
	}})
	if err := st.WriteTable(ctx, TableName(StageCalc, "hamburg"), rows); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	_, err := svc.Evaluate(ctx, similarity.TFIDF, evaluate.DefaultTable())
	expectMissing(t, err, StepCalculation)
}

func TestOutsideAnalysisEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTestService(t)
	prep := newPreprocessor(t)
	gen := newGenerator(t)

	if err := svc.ImportTable(ctx, Train, "archive", []record.Record{
		{Date: "2024-01-12", FullText: "Koch Restaurant Hamburg Vollzeit", LocationName: "Hamburg"},
		{Date: "2024-01-12", FullText: "Softwareentwickler Golang Remote", LocationName: "Berlin"},
	}); err != nil {
		t.Fatalf("import train failed: %v", err)
	}
	if err := svc.ImportTable(ctx, Test, "new", []record.Record{
		{Date: "2024-01-10", FullText: "Koch Restaurant Hamburg Vollzeit", LocationName: "Hamburg"},
	}); err != nil {
		t.Fatalf("import test failed: %v", err)
	}
	for _, ds := range []Dataset{Train, Test} {
		if _, err := svc.AssignIDs(ctx, ds, gen); err != nil {
			t.Fatalf("assign ids %s failed: %v", ds, err)
		}
		if _, err := svc.Preprocess(ctx, ds, prep); err != nil {
			t.Fatalf("preprocess %s failed: %v", ds, err)
		}
	}

	docs, err := svc.TrainingCorpus(ctx, prep)
	if err != nil {
		t.Fatalf("training corpus failed: %v", err)
	}
	model, err := tfidf.Fit(Texts(docs), tfidf.Options{})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "shortlist_tfidf.json")
	sl, err := svc.MostSimilarTFIDF(ctx, model, 2, path)
	if err != nil {
		t.Fatalf("most similar failed: %v", err)
	}
	if sl.Entries != 1 || sl.Candidates != 2 {
		t.Fatalf("unexpected shortlist: %+v", sl)
	}

	result, err := svc.PairOutside(ctx, pairing.DefaultFilterParams(), path, nil)
	if err != nil {
		t.Fatalf("outside pairing failed: %v", err)
	}
	if result.Pairs != 1 || len(result.Outputs) != 1 || result.Outputs[0] != "output__traindata_output" {
		t.Fatalf("unexpected outside result: %+v", result)
	}
	rows, err := st.ReadTable(ctx, "output__traindata_output")
	if err != nil {
		t.Fatalf("read output failed: %v", err)
	}
	if len(rows) != 2 || rows[0].UniqueID != "0000-0000-0000-0003" || rows[1].UniqueID != "0000-0000-0000-0001" {
		t.Fatalf("unexpected output rows: %+v", rows)
	}
	outputs, err := svc.OutputTables(ctx)
	if err != nil || len(outputs) != 1 {
		t.Fatalf("unexpected output tables: %v %v", outputs, err)
	}
}

func TestPairOutsideFailsOnEmptyTrainSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTestService(t)
	if err := st.WriteTable(ctx, TableName(StagePreproTest, "new"), []record.Record{{UniqueID: "Q"}}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := st.WriteTable(ctx, TableName(StagePreproTrain, "archive"), nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "shortlist.json")
	if _, err := svc.saveShortlist(shortlistOf("Q", "T"), path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := svc.PairOutside(ctx, pairing.DefaultFilterParams(), path, nil); !errors.Is(err, ErrEmptyRecordSet) {
		t.Fatalf("expected ErrEmptyRecordSet, got %v", err)
	}
}

func TestTableNames(t *testing.T) {
	t.Parallel()

	if got := OutputTable(insideOutputSuffix, 0, "berlin"); got != "output__testdata_output" {
		t.Fatalf("unexpected first output name: %s", got)
	}
	if got := OutputTable(insideOutputSuffix, 1, "hamburg"); got != "output__hamburg_testdata_output" {
		t.Fatalf("unexpected later output name: %s", got)
	}
	stage, table, ok := SplitTableName(TableName(StagePreproTrain, "a__b"))
	if !ok || stage != StagePreproTrain || table != "a__b" {
		t.Fatalf("unexpected split: %s %s %v", stage, table, ok)
	}
	if _, err := ParseDataset("validation"); err == nil {
		t.Fatalf("expected unknown dataset to be rejected")
	}
}

func TestTableFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewSerialized(store.NewMemory())
	svc := NewService(st, zerolog.Nop(), Options{TableFilter: "ber"})
	for _, name := range []string{"berlin", "hamburg", "oberhausen"} {
		if err := st.WriteTable(ctx, TableName(StageIDTest, name), []record.Record{{UniqueID: name}}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	tables, err := svc.tables(ctx, StageIDTest)
	if err != nil {
		t.Fatalf("tables failed: %v", err)
	}
	if len(tables) != 2 || tables[0] != "berlin" || tables[1] != "oberhausen" {
		t.Fatalf("unexpected tables: %v", tables)
	}
}
