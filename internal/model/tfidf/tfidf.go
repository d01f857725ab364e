// Package tfidf fits and applies a TF-IDF vocabulary over normalized job ad
// texts.
package tfidf

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"horse.fit/jobdedup/internal/model"
)

var ErrEmptyCorpus = errors.New("empty corpus for tf-idf fit")

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]{2,}`)

type Options struct {
	// SublinearTF replaces a raw term count c with 1+ln(c).
	SublinearTF bool
}

// Model is a fitted vocabulary with smoothed inverse document frequencies.
// It is never mutated after Fit or Load.
type Model struct {
	Vocabulary  map[string]int
	IDF         []float64
	SublinearTF bool
	Documents   int
}

// Vector is a sparse L2-normalized term vector keyed by vocabulary index.
type Vector map[int]float64

// Fit builds the vocabulary from corpus.
func Fit(corpus []string, opts Options) (*Model, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, token := range tokenize(text) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			df[token]++
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("%w: no tokens in %d documents", ErrEmptyCorpus, len(corpus))
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	m := &Model{
		Vocabulary:  make(map[string]int, len(terms)),
		IDF:         make([]float64, len(terms)),
		SublinearTF: opts.SublinearTF,
		Documents:   len(corpus),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		m.Vocabulary[term] = i
		m.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return m, nil
}

// Transform maps text onto the fitted vocabulary. Unknown terms are ignored,
// so a text without known terms yields an empty vector.
func (m *Model) Transform(text string) Vector {
	counts := make(map[int]float64)
	for _, token := range tokenize(text) {
		if idx, ok := m.Vocabulary[token]; ok {
			counts[idx]++
		}
	}
	vec := make(Vector, len(counts))
	norm := 0.0
	for idx, count := range counts {
		tf := count
		if m.SublinearTF {
			tf = 1 + math.Log(count)
		}
		w := tf * m.IDF[idx]
		vec[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}
	return vec
}

// ScorePair is the cosine of the TF-IDF vectors of a and b.
func (m *Model) ScorePair(a, b string) float64 {
	return Dot(m.Transform(a), m.Transform(b))
}

// Dot is the cosine of two vectors produced by Transform.
func Dot(a, b Vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	sum := 0.0
	for idx, va := range a {
		sum += va * b[idx]
	}
	switch {
	case sum < 0:
		return 0
	case sum > 1:
		return 1
	}
	return sum
}

// SanityCheck reports the share of corpus documents whose best match among
// the corpus is the document itself. Documents without known terms count as
// misses.
func (m *Model) SanityCheck(corpus []string) float64 {
	if len(corpus) == 0 {
		return 0
	}
	vectors := make([]Vector, len(corpus))
	for i, text := range corpus {
		vectors[i] = m.Transform(text)
	}
	hits := 0
	for i, vec := range vectors {
		if len(vec) == 0 {
			continue
		}
		best, bestScore := -1, -1.0
		for j, other := range vectors {
			if score := Dot(vec, other); score > bestScore {
				best, bestScore = j, score
			}
		}
		if best == i || (best >= 0 && corpus[best] == corpus[i]) {
			hits++
		}
	}
	return float64(hits) / float64(len(corpus))
}

func (m *Model) Save(path string) error {
	return model.SaveGob(path, m)
}

func Load(path string) (*Model, error) {
	var m Model
	if err := model.LoadGob(path, &m); err != nil {
		return nil, err
	}
	if len(m.Vocabulary) != len(m.IDF) {
		return nil, fmt.Errorf("tf-idf artifact %s is corrupt: %d terms, %d weights", path, len(m.Vocabulary), len(m.IDF))
	}
	return &m, nil
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
