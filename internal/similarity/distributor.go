package similarity

import (
	"errors"
	"fmt"
	"strings"
)

// Method selects a similarity strategy. The values are the score column
// names used throughout the pipeline.
type Method string

const (
	EditDistance Method = "levenshtein"
	BagOfWords   Method = "countvec"
	TFIDF        Method = "tfidf"
	Embedding    Method = "doc2vec"
	Shingling    Method = "shingling"
)

var (
	ErrUnknownMethod  = errors.New("unknown similarity method")
	ErrModelNotLoaded = errors.New("similarity model not loaded")
)

var methodAliases = map[string]Method{
	"levenshtein":      EditDistance,
	"edit_distance":    EditDistance,
	"countvec":         BagOfWords,
	"bow_cosine":       BagOfWords,
	"tfidf":            TFIDF,
	"tfidf_cosine":     TFIDF,
	"doc2vec":          Embedding,
	"embedding":        Embedding,
	"embedding_cosine": Embedding,
	"shingling":        Shingling,
	"kshingle":         Shingling,
}

// Methods lists every method in a stable order.
func Methods() []Method {
	return []Method{EditDistance, BagOfWords, TFIDF, Embedding, Shingling}
}

func ParseMethod(raw string) (Method, error) {
	m, ok := methodAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, raw)
	}
	return m, nil
}

func (m Method) String() string { return string(m) }

// TFIDFModel scores a pair of texts with a pretrained vocabulary.
type TFIDFModel interface {
	ScorePair(a, b string) float64
}

// EmbeddingModel infers a fixed-length vector for a token sequence.
type EmbeddingModel interface {
	Infer(tokens []string) []float64
}

// Distributor routes a method key to its strategy. The models are injected
// once and only read afterwards, so one Distributor may serve many workers.
type Distributor struct {
	tfidf     TFIDFModel
	embedding EmbeddingModel
}

type Option func(*Distributor)

func WithTFIDF(model TFIDFModel) Option {
	return func(d *Distributor) { d.tfidf = model }
}

func WithEmbedding(model EmbeddingModel) Option {
	return func(d *Distributor) { d.embedding = model }
}

func NewDistributor(opts ...Option) *Distributor {
	d := &Distributor{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check reports whether the method can be served.
func (d *Distributor) Check(method Method) error {
	switch method {
	case EditDistance, BagOfWords, Shingling:
		return nil
	case TFIDF:
		if d.tfidf == nil {
			return fmt.Errorf("%w: tfidf", ErrModelNotLoaded)
		}
		return nil
	case Embedding:
		if d.embedding == nil {
			return fmt.Errorf("%w: doc2vec", ErrModelNotLoaded)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, string(method))
	}
}

// Distribute scores two normalized texts with the selected strategy. jaccard
// only affects Shingling.
func (d *Distributor) Distribute(method Method, a, b string, jaccard bool) (float64, error) {
	if err := d.Check(method); err != nil {
		return 0, err
	}
	switch method {
	case EditDistance:
		return EditRatio(a, b), nil
	case BagOfWords:
		return BagOfWordsCosine(a, b), nil
	case TFIDF:
		return d.tfidf.ScorePair(a, b), nil
	case Embedding:
		return Cosine(d.embedding.Infer(strings.Fields(a)), d.embedding.Infer(strings.Fields(b))), nil
	default:
		return ShingleSimilarity(a, b, jaccard), nil
	}
}
