// Package shortlist ranks train documents against test documents and keeps
// the top-k candidates per test record for the cross-dataset filter.
package shortlist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"horse.fit/jobdedup/internal/model/embedding"
	"horse.fit/jobdedup/internal/model/tfidf"
	"horse.fit/jobdedup/internal/record"
)

// DefaultTopK is the number of candidates kept per test record.
const DefaultTopK = 10

type Candidate struct {
	TrainID string  `json:"train_id"`
	Score   float64 `json:"score"`
}

type Entry struct {
	TestID     string      `json:"test_id"`
	Candidates []Candidate `json:"candidates"`
}

// Shortlist is the persisted result of a most-similar search.
type Shortlist struct {
	Method  string  `json:"method"`
	TopK    int     `json:"top_k"`
	Entries []Entry `json:"entries"`
}

// Pairs returns every (test id, train id) pair in rank order.
func (s Shortlist) Pairs() [][2]string {
	var out [][2]string
	for _, entry := range s.Entries {
		for _, c := range entry.Candidates {
			out = append(out, [2]string{entry.TestID, c.TrainID})
		}
	}
	return out
}

// Len is the total number of candidate pairs.
func (s Shortlist) Len() int {
	n := 0
	for _, entry := range s.Entries {
		n += len(entry.Candidates)
	}
	return n
}

// FromTFIDF transforms the train texts once and ranks each test record
// against all of them.
func FromTFIDF(ctx context.Context, m *tfidf.Model, test, train []record.Record, k int) (Shortlist, error) {
	k = normalizeK(k)
	ids := make([]string, 0, len(train))
	vectors := make([]tfidf.Vector, 0, len(train))
	for _, rec := range train {
		if !rec.Has(record.FieldNormalizedText) || !rec.Has(record.FieldUniqueID) {
			continue
		}
		ids = append(ids, rec.UniqueID)
		vectors = append(vectors, m.Transform(rec.NormalizedText))
	}

	out := Shortlist{Method: "tfidf", TopK: k}
	scores := make([]float64, len(vectors))
	for _, rec := range test {
		if err := ctx.Err(); err != nil {
			return Shortlist{}, err
		}
		if !rec.Has(record.FieldNormalizedText) || !rec.Has(record.FieldUniqueID) {
			continue
		}
		query := m.Transform(rec.NormalizedText)
		for i, vec := range vectors {
			scores[i] = tfidf.Dot(query, vec)
		}
		out.Entries = append(out.Entries, Entry{TestID: rec.UniqueID, Candidates: topK(ids, scores, k)})
	}
	return out, nil
}

// FromEmbedding ranks each test record against the document vectors stored
// in the model. The stored ids may name train records that are no longer
// present; the cross-dataset filter skips those.
func FromEmbedding(ctx context.Context, m *embedding.Model, test []record.Record, k int) (Shortlist, error) {
	k = normalizeK(k)
	out := Shortlist{Method: "doc2vec", TopK: k}
	for _, rec := range test {
		if err := ctx.Err(); err != nil {
			return Shortlist{}, err
		}
		if !rec.Has(record.FieldNormalizedText) || !rec.Has(record.FieldUniqueID) {
			continue
		}
		neighbors := m.MostSimilar(m.Infer(strings.Fields(rec.NormalizedText)), k)
		candidates := make([]Candidate, len(neighbors))
		for i, n := range neighbors {
			candidates[i] = Candidate{TrainID: n.ID, Score: n.Score}
		}
		out.Entries = append(out.Entries, Entry{TestID: rec.UniqueID, Candidates: candidates})
	}
	return out, nil
}

func Save(path string, s Shortlist) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create shortlist dir: %w", err)
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode shortlist: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write shortlist %s: %w", path, err)
	}
	return nil
}

// Load reads a shortlist written by Save. A missing file is reported with an
// error wrapping os.ErrNotExist.
func Load(path string) (Shortlist, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Shortlist{}, fmt.Errorf("read shortlist %s: %w", path, err)
	}
	var s Shortlist
	if err := json.Unmarshal(raw, &s); err != nil {
		return Shortlist{}, fmt.Errorf("decode shortlist %s: %w", path, err)
	}
	return s, nil
}

// topK picks the k best scores. Equal scores keep index order.
func topK(ids []string, scores []float64, k int) []Candidate {
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if k > len(idxs) {
		k = len(idxs)
	}
	out := make([]Candidate, k)
	for i := 0; i < k; i++ {
		out[i] = Candidate{TrainID: ids[idxs[i]], Score: scores[idxs[i]]}
	}
	return out
}

func normalizeK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	return k
}
