// Package embedding trains a document embedding model by random indexing.
//
// Every word gets a sparse ternary index vector derived from a hash of the
// word and the model seed. A word's context vector accumulates the index
// vectors of the words around it; later epochs feed the normalized context
// vectors of the previous epoch back in (reflective random indexing). A
// document vector is the normalized mean of its word vectors.
package embedding

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	"horse.fit/jobdedup/internal/model"
)

var (
	ErrEmptyCorpus   = errors.New("empty corpus for embedding training")
	ErrInvalidOption = errors.New("invalid embedding option")
)

type Options struct {
	VectorSize int
	MinCount   int
	Window     int
	Epochs     int
	Seed       int64
}

func (o Options) validate() error {
	switch {
	case o.VectorSize < 4:
		return fmt.Errorf("%w: vector_size must be at least 4, got %d", ErrInvalidOption, o.VectorSize)
	case o.MinCount < 1:
		return fmt.Errorf("%w: min_count must be positive, got %d", ErrInvalidOption, o.MinCount)
	case o.Window < 1:
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidOption, o.Window)
	case o.Epochs < 1:
		return fmt.Errorf("%w: epochs must be positive, got %d", ErrInvalidOption, o.Epochs)
	}
	return nil
}

// Document is one training text, already tokenized.
type Document struct {
	ID     string
	Tokens []string
}

// Model holds the word vectors, the training documents, and one vector per
// training document. It is read-only once trained or loaded.
type Model struct {
	Options    Options
	Words      map[string][]float64
	Corpus     []Document
	DocIDs     []string
	DocVectors [][]float64
}

// Train builds a model from docs.
func Train(docs []Document, opts Options) (*Model, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	counts := make(map[string]int)
	for _, doc := range docs {
		for _, token := range doc.Tokens {
			counts[token]++
		}
	}
	vocab := make(map[string]struct{})
	for word, n := range counts {
		if n >= opts.MinCount {
			vocab[word] = struct{}{}
		}
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("%w: no word reaches min_count %d", ErrEmptyCorpus, opts.MinCount)
	}

	m := &Model{Options: opts, Corpus: append([]Document(nil), docs...)}
	var previous map[string][]float64
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		current := make(map[string][]float64, len(vocab))
		for word := range vocab {
			current[word] = make([]float64, opts.VectorSize)
		}
		for _, doc := range docs {
			for i, word := range doc.Tokens {
				target, ok := current[word]
				if !ok {
					continue
				}
				lo, hi := max(0, i-opts.Window), min(len(doc.Tokens)-1, i+opts.Window)
				for j := lo; j <= hi; j++ {
					if j == i {
						continue
					}
					addInto(target, m.contextSource(previous, doc.Tokens[j]))
				}
			}
		}
		for _, vec := range current {
			normalize(vec)
		}
		previous = current
	}
	m.Words = previous

	m.DocIDs = make([]string, len(docs))
	m.DocVectors = make([][]float64, len(docs))
	for i, doc := range docs {
		m.DocIDs[i] = doc.ID
		m.DocVectors[i] = m.Infer(doc.Tokens)
	}
	return m, nil
}

// Retrain returns a new model trained over the existing corpus plus docs. A
// document whose ID is already present replaces the stored one.
func (m *Model) Retrain(docs []Document) (*Model, error) {
	merged := make([]Document, 0, len(m.Corpus)+len(docs))
	position := make(map[string]int, len(m.Corpus)+len(docs))
	for _, doc := range append(append([]Document(nil), m.Corpus...), docs...) {
		if i, ok := position[doc.ID]; ok && doc.ID != "" {
			merged[i] = doc
			continue
		}
		position[doc.ID] = len(merged)
		merged = append(merged, doc)
	}
	return Train(merged, m.Options)
}

// Infer returns the normalized mean of the word vectors of tokens. Words
// outside the vocabulary contribute their index vector.
func (m *Model) Infer(tokens []string) []float64 {
	out := make([]float64, m.Options.VectorSize)
	for _, token := range tokens {
		if vec, ok := m.Words[token]; ok {
			addInto(out, vec)
			continue
		}
		addInto(out, indexVector(token, m.Options.VectorSize, m.Options.Seed))
	}
	normalize(out)
	return out
}

// Neighbor is a stored document ranked against a query vector.
type Neighbor struct {
	ID    string
	Score float64
}

// MostSimilar ranks the stored training documents against vec, best first.
// Ties keep training order.
func (m *Model) MostSimilar(vec []float64, k int) []Neighbor {
	ranked := make([]Neighbor, len(m.DocIDs))
	for i, id := range m.DocIDs {
		ranked[i] = Neighbor{ID: id, Score: dot(vec, m.DocVectors[i])}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// SanityCheck infers every training document again and reports the share
// whose nearest stored document is itself.
func (m *Model) SanityCheck() float64 {
	if len(m.Corpus) == 0 {
		return 0
	}
	hits := 0
	for _, doc := range m.Corpus {
		best := m.MostSimilar(m.Infer(doc.Tokens), 1)
		if len(best) == 1 && best[0].ID == doc.ID {
			hits++
		}
	}
	return float64(hits) / float64(len(m.Corpus))
}

func (m *Model) Save(path string) error {
	return model.SaveGob(path, m)
}

func Load(path string) (*Model, error) {
	var m Model
	if err := model.LoadGob(path, &m); err != nil {
		return nil, err
	}
	if len(m.DocIDs) != len(m.DocVectors) {
		return nil, fmt.Errorf("embedding artifact %s is corrupt: %d ids, %d vectors", path, len(m.DocIDs), len(m.DocVectors))
	}
	return &m, nil
}

func (m *Model) contextSource(previous map[string][]float64, word string) []float64 {
	if vec, ok := previous[word]; ok {
		return vec
	}
	return indexVector(word, m.Options.VectorSize, m.Options.Seed)
}

// indexVector is the sparse ternary random vector of word: a fixed number of
// randomly chosen dimensions set to +1 or -1, deterministic per seed.
func indexVector(word string, size int, seed int64) []float64 {
	h := fnv.New64a()
	h.Write([]byte(word))
	rng := rand.New(rand.NewSource(int64(h.Sum64()) ^ seed))

	nonZero := max(2, size/10)
	if nonZero%2 == 1 {
		nonZero--
	}
	vec := make([]float64, size)
	for i, dim := range rng.Perm(size)[:nonZero] {
		if i%2 == 0 {
			vec[dim] = 1
		} else {
			vec[dim] = -1
		}
	}
	return vec
}

func addInto(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func normalize(vec []float64) {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
}

func dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
