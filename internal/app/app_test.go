package app

import (
	"testing"

	"horse.fit/jobdedup/internal/pipeline"
	"horse.fit/jobdedup/internal/similarity"
)

func TestRunRejectsUnknownCommand(t *testing.T) {
	t.Parallel()

	if code := Run([]string{"explode"}); code != 2 {
		t.Fatalf("unexpected exit code: got %d want 2", code)
	}
	if code := Run(nil); code != 2 {
		t.Fatalf("unexpected exit code without args: got %d want 2", code)
	}
}

func TestTableName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Stellen 2024-03": "stellen_2024_03",
		"  ads.test  ":    "ads_test",
		"__x__":           "x",
		"Küche":           "k_che",
		"!!!":             "",
		"train_part_1":    "train_part_1",
	}
	for raw, want := range cases {
		if got := tableName(raw); got != want {
			t.Fatalf("unexpected table name for %q: got %q want %q", raw, got, want)
		}
	}
}

func TestIDDatasets(t *testing.T) {
	t.Parallel()

	both := idDatasets(false, false)
	if len(both) != 2 || both[0] != pipeline.Test || both[1] != pipeline.Train {
		t.Fatalf("unexpected default datasets: %v", both)
	}
	train := idDatasets(false, true)
	if len(train) != 1 || train[0] != pipeline.Train {
		t.Fatalf("unexpected train datasets: %v", train)
	}
}

func TestParseModelingTask(t *testing.T) {
	t.Parallel()

	task, err := parseModelingTask("tfidf", false, false, false)
	if err != nil {
		t.Fatalf("parseModelingTask failed: %v", err)
	}
	if task.method != similarity.TFIDF || !task.training || task.sanityCheck {
		t.Fatalf("unexpected default task: %+v", task)
	}

	task, err = parseModelingTask("doc2vec", false, true, true)
	if err != nil {
		t.Fatalf("parseModelingTask failed: %v", err)
	}
	if task.method != similarity.Embedding || task.training || !task.retraining || !task.sanityCheck {
		t.Fatalf("unexpected retraining task: %+v", task)
	}

	for _, tc := range []struct {
		raw                  string
		training, retraining bool
	}{
		{raw: ""},
		{raw: "levenshtein"},
		{raw: "bogus"},
		{raw: "tfidf", retraining: true},
		{raw: "doc2vec", training: true, retraining: true},
	} {
		if _, err := parseModelingTask(tc.raw, tc.training, tc.retraining, false); err == nil {
			t.Fatalf("expected error for %+v", tc)
		}
	}
}

func TestNewAnalysisPlan(t *testing.T) {
	t.Parallel()

	plan, err := newAnalysisPlan("inside", "kshingle", "tfidf", true)
	if err != nil {
		t.Fatalf("newAnalysisPlan failed: %v", err)
	}
	if !plan.inside || plan.outside || plan.methodIn != similarity.Shingling || !plan.jaccard {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	if _, err := newAnalysisPlan("sideways", "levenshtein", "tfidf", false); err == nil {
		t.Fatalf("expected error for unknown analysis type")
	}
	if _, err := newAnalysisPlan("inside", "soundex", "tfidf", false); err == nil {
		t.Fatalf("expected error for unknown inside method")
	}
	if _, err := newAnalysisPlan("outside", "levenshtein", "countvec", false); err == nil {
		t.Fatalf("expected error for an outside method without a model")
	}
}

func TestSelectStepsDefaultsToAll(t *testing.T) {
	t.Parallel()

	plan, err := newAnalysisPlan("outside", "levenshtein", "doc2vec", false)
	if err != nil {
		t.Fatalf("newAnalysisPlan failed: %v", err)
	}
	plan.selectSteps(false, false, false, false, false)
	if !plan.preprocessing || !plan.pairing || !plan.mostSim {
		t.Fatalf("expected every outside step: %+v", plan)
	}
	if plan.calculation || plan.evaluation {
		t.Fatalf("expected inside-only steps to stay off: %+v", plan)
	}
}

func TestSelectStepsHonorsFlags(t *testing.T) {
	t.Parallel()

	plan, err := newAnalysisPlan("complete", "levenshtein", "tfidf", false)
	if err != nil {
		t.Fatalf("newAnalysisPlan failed: %v", err)
	}
	plan.selectSteps(false, false, true, true, false)
	if plan.preprocessing || plan.pairing || plan.mostSim {
		t.Fatalf("unexpected steps enabled: %+v", plan)
	}
	if !plan.calculation || !plan.evaluation {
		t.Fatalf("expected calculation and evaluation: %+v", plan)
	}
}

func TestModelsFor(t *testing.T) {
	t.Parallel()

	plan := analysisPlan{methodIn: similarity.Embedding, methodOut: similarity.TFIDF}
	got := modelsFor(plan)
	if len(got) != 2 || got[0] != similarity.TFIDF || got[1] != similarity.Embedding {
		t.Fatalf("unexpected models: %v", got)
	}
	plan = analysisPlan{methodIn: similarity.EditDistance, methodOut: similarity.TFIDF}
	if got := modelsFor(plan); len(got) != 1 {
		t.Fatalf("unexpected models: %v", got)
	}
}
