package similarity

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEditRatio(t *testing.T) {
	t.Parallel()

	if got := EditRatio("kitten", "sitting"); !almostEqual(got, 8.0/13.0) {
		t.Fatalf("unexpected ratio: got %f want %f", got, 8.0/13.0)
	}
	if got := EditRatio("abc", "xyz"); got != 0 {
		t.Fatalf("expected 0 for disjoint strings, got %f", got)
	}
	if got := EditRatio("", ""); got != 1 {
		t.Fatalf("expected 1 for two empty strings, got %f", got)
	}
	if got := EditRatio("abc", ""); got != 0 {
		t.Fatalf("expected 0 against an empty string, got %f", got)
	}
	if got := EditRatio("straße", "strasse"); got <= 0 || got >= 1 {
		t.Fatalf("expected partial similarity over runes, got %f", got)
	}
}

func TestIdenticalStringsScoreOne(t *testing.T) {
	t.Parallel()

	texts := []string{
		"pflegekraft berlin vollzeit",
		"senior go engineer remote remote",
		"ab cd ef gh ab",
		"koch küche restaurant hamburg koch",
	}
	for _, text := range texts {
		if got := EditRatio(text, text); got != 1 {
			t.Fatalf("EditRatio(%q) = %f, want 1", text, got)
		}
		if got := BagOfWordsCosine(text, text); got != 1 {
			t.Fatalf("BagOfWordsCosine(%q) = %f, want 1", text, got)
		}
		if got := ShingleSimilarity(text, text, true); got != 1 {
			t.Fatalf("shingle jaccard(%q) = %f, want 1", text, got)
		}
		if got := ShingleSimilarity(text, text, false); got != 1 {
			t.Fatalf("shingle cosine(%q) = %f, want 1", text, got)
		}
	}
}

func TestDisjointVocabularyScoresZero(t *testing.T) {
	t.Parallel()

	a, b := "pflege berlin nacht", "software hamburg remote"
	if got := BagOfWordsCosine(a, b); got != 0 {
		t.Fatalf("expected bag-of-words cosine 0, got %f", got)
	}
	if got := ShingleSimilarity(a, b, false); got != 0 {
		t.Fatalf("expected shingle cosine 0, got %f", got)
	}
	if got := ShingleSimilarity(a, b, true); got != 0 {
		t.Fatalf("expected shingle jaccard 0, got %f", got)
	}
}

func TestBagOfWordsCountsMultiplicity(t *testing.T) {
	t.Parallel()

	got := BagOfWordsCosine("pflege berlin berlin", "pflege berlin")
	want := 3 / math.Sqrt(10)
	if !almostEqual(got, want) {
		t.Fatalf("unexpected cosine: got %f want %f", got, want)
	}
	if got := BagOfWordsCosine("a b", "c d"); got != 0 {
		t.Fatalf("expected empty vocabulary to score 0, got %f", got)
	}
}

func TestShingles(t *testing.T) {
	t.Parallel()

	got := Shingles("Koch, Küche & Service")
	for _, want := range []string{"Koch Küche", "Küche Service"} {
		if _, ok := got[want]; !ok {
			t.Fatalf("missing shingle %q in %v", want, got)
		}
	}
	if len(got) != 2 {
		t.Fatalf("unexpected shingle count: %d (%v)", len(got), got)
	}
	if len(Shingles("single")) != 0 {
		t.Fatalf("expected no shingles for a single token")
	}
}

func TestShingleSimilarityPartialOverlap(t *testing.T) {
	t.Parallel()

	if got := ShingleSimilarity("a b c", "a b d", true); !almostEqual(got, 1.0/3.0) {
		t.Fatalf("unexpected jaccard: got %f want %f", got, 1.0/3.0)
	}
	if got := ShingleSimilarity("a b c", "a b d", false); !almostEqual(got, 0.5) {
		t.Fatalf("unexpected cosine: got %f want 0.5", got)
	}
}

func TestShingleSingleTokensJaccardIsZero(t *testing.T) {
	t.Parallel()

	if got := ShingleSimilarity("pflege", "pflege", true); got != 0 {
		t.Fatalf("expected 0 for empty shingle sets, got %f", got)
	}
	if got := ShingleSimilarity("", "", false); got != 0 {
		t.Fatalf("expected 0 cosine for empty inputs, got %f", got)
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()

	if got := Cosine([]float64{1, 2, 3}, []float64{1, 2, 3}); !almostEqual(got, 1) {
		t.Fatalf("expected 1 for identical vectors, got %f", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Fatalf("expected 0 for orthogonal vectors, got %f", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Fatalf("expected 0 for a zero vector, got %f", got)
	}
	if got := Cosine([]float64{1}, []float64{1, 2}); got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %f", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{-1, 0}); got != 0 {
		t.Fatalf("expected opposite vectors to clamp to 0, got %f", got)
	}
}
