package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"horse.fit/jobdedup/internal/model/embedding"
	"horse.fit/jobdedup/internal/model/tfidf"
	"horse.fit/jobdedup/internal/record"
	"horse.fit/jobdedup/internal/textprep"
)

// TrainingCorpus reads every id_train table and tokenizes its texts.
// Records without any token are left out.
func (s *Service) TrainingCorpus(ctx context.Context, prep *textprep.Preprocessor) ([]embedding.Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	tables, err := s.requireTables(ctx, StageIDTrain, StepIDHandling)
	if err != nil {
		return nil, err
	}
	var docs []embedding.Document
	for _, table := range tables {
		records, err := s.read(ctx, StageIDTrain, table, StepIDHandling)
		if err != nil {
			return nil, err
		}
		if err := requireIDs(records, StageIDTrain, table); err != nil {
			return nil, err
		}
		for _, rec := range records {
			tokens := prep.Tokens(rec.FullText)
			if len(tokens) == 0 {
				continue
			}
			docs = append(docs, embedding.Document{ID: rec.UniqueID, Tokens: tokens})
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no train record has text", ErrEmptyRecordSet)
	}
	s.logger.Info().Int("tables", len(tables)).Int("documents", len(docs)).Msg("training corpus read")
	return docs, nil
}

// Texts joins the tokens of every document the way Preprocessor.Normalize
// does.
func Texts(docs []embedding.Document) []string {
	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i] = joinTokens(doc.Tokens)
	}
	return out
}

func joinTokens(tokens []string) string {
	n := 0
	for _, t := range tokens {
		n += len(t) + 1
	}
	buf := make([]byte, 0, n)
	for i, t := range tokens {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, t...)
	}
	return string(buf)
}

// LoadTFIDF loads the TF-IDF artifact, reporting a missing file as a missing
// modeling step.
func LoadTFIDF(path string) (*tfidf.Model, error) {
	m, err := tfidf.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, missingUpstream(StepModeling, err, "tfidf model %s not found", path)
	}
	return m, err
}

// LoadEmbedding loads the embedding artifact, reporting a missing file as a
// missing modeling step.
func LoadEmbedding(path string) (*embedding.Model, error) {
	m, err := embedding.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, missingUpstream(StepModeling, err, "doc2vec model %s not found", path)
	}
	return m, err
}

// allRecords concatenates every table of a stage.
func (s *Service) allRecords(ctx context.Context, stage, step string) ([]record.Record, error) {
	tables, err := s.requireTables(ctx, stage, step)
	if err != nil {
		return nil, err
	}
	var out []record.Record
	for _, table := range tables {
		records, err := s.read(ctx, stage, table, step)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}
