package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"horse.fit/jobdedup/internal/model/embedding"
	"horse.fit/jobdedup/internal/model/tfidf"
	"horse.fit/jobdedup/internal/pairing"
	"horse.fit/jobdedup/internal/record"
	"horse.fit/jobdedup/internal/shortlist"
)

type ShortlistResult struct {
	Entries    int
	Candidates int
	Path       string
}

// MostSimilarTFIDF ranks all train records against every test record with the
// TF-IDF model and saves the shortlist to path.
func (s *Service) MostSimilarTFIDF(ctx context.Context, m *tfidf.Model, k int, path string) (ShortlistResult, error) {
	if err := s.ready(); err != nil {
		return ShortlistResult{}, err
	}
	test, err := s.nonEmpty(ctx, StagePreproTest)
	if err != nil {
		return ShortlistResult{}, err
	}
	train, err := s.nonEmpty(ctx, StagePreproTrain)
	if err != nil {
		return ShortlistResult{}, err
	}
	sl, err := shortlist.FromTFIDF(ctx, m, test, train, k)
	if err != nil {
		return ShortlistResult{}, err
	}
	return s.saveShortlist(sl, path)
}

// MostSimilarEmbedding ranks the documents stored in the embedding model
// against every test record and saves the shortlist to path.
func (s *Service) MostSimilarEmbedding(ctx context.Context, m *embedding.Model, k int, path string) (ShortlistResult, error) {
	if err := s.ready(); err != nil {
		return ShortlistResult{}, err
	}
	test, err := s.nonEmpty(ctx, StagePreproTest)
	if err != nil {
		return ShortlistResult{}, err
	}
	sl, err := shortlist.FromEmbedding(ctx, m, test, k)
	if err != nil {
		return ShortlistResult{}, err
	}
	return s.saveShortlist(sl, path)
}

func (s *Service) saveShortlist(sl shortlist.Shortlist, path string) (ShortlistResult, error) {
	if err := shortlist.Save(path, sl); err != nil {
		return ShortlistResult{}, err
	}
	result := ShortlistResult{Entries: len(sl.Entries), Candidates: sl.Len(), Path: path}
	s.logger.Info().
		Str("method", sl.Method).
		Int("top_k", sl.TopK).
		Int("entries", result.Entries).
		Int("candidates", result.Candidates).
		Str("path", path).
		Msg("shortlist saved")
	return result, nil
}

func (s *Service) nonEmpty(ctx context.Context, stage string) ([]record.Record, error) {
	records, err := s.allRecords(ctx, stage, StepPreprocessing)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s tables hold no records", ErrEmptyRecordSet, stage)
	}
	return records, nil
}

type OutsideResult struct {
	Tables       int
	Pairs        int
	MissingTrain int
	Outputs      []string
}

// PairOutside pairs every prepro_test table with the train records named in
// the shortlist at path and writes the candidate pairs to output tables.
func (s *Service) PairOutside(ctx context.Context, params pairing.FilterParams, path string, warnings *pairing.RunWarnings) (OutsideResult, error) {
	if err := s.ready(); err != nil {
		return OutsideResult{}, err
	}
	sl, err := shortlist.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return OutsideResult{}, missingUpstream(StepMostSim, err, "shortlist %s not found", path)
	}
	if err != nil {
		return OutsideResult{}, err
	}
	candidates := sl.Pairs()

	train, err := s.allRecords(ctx, StagePreproTrain, StepPreprocessing)
	if err != nil {
		return OutsideResult{}, err
	}
	tables, err := s.requireTables(ctx, StagePreproTest, StepPreprocessing)
	if err != nil {
		return OutsideResult{}, err
	}
	if warnings == nil {
		warnings = &pairing.RunWarnings{}
	}

	type tableOutside struct {
		pairs, missingTrain int
		output              string
	}
	results, err := forEachTable(ctx, s, tables, func(ctx context.Context, position int, table string) (tableOutside, error) {
		test, err := s.read(ctx, StagePreproTest, table, StepPreprocessing)
		if err != nil {
			return tableOutside{}, err
		}
		logger := s.logger.With().Str("table", table).Logger()
		filtered, err := pairing.FilterOutside(test, train, candidates, params, warnings, logger)
		if err != nil {
			return tableOutside{}, err
		}
		logger.Info().
			Int("pairs", len(filtered.Pairs)).
			Int("missing_train", filtered.MissingTrain).
			Msg("outside pairing done")

		out := tableOutside{pairs: len(filtered.Pairs), missingTrain: filtered.MissingTrain}
		if len(filtered.Pairs) == 0 {
			return out, nil
		}
		out.output = OutputTable(outsideOutputSuffix, position, table)
		if err := s.store.WriteTable(ctx, out.output, pairing.Rows(filtered.Pairs)); err != nil {
			return tableOutside{}, fmt.Errorf("write output table: %w", err)
		}
		return out, nil
	})
	if err != nil {
		return OutsideResult{}, err
	}

	result := OutsideResult{Tables: len(tables)}
	for _, r := range results {
		result.Pairs += r.pairs
		result.MissingTrain += r.missingTrain
		if r.output != "" {
			result.Outputs = append(result.Outputs, r.output)
		}
	}
	return result, nil
}

// OutputTables lists the written output tables by full store name.
func (s *Service) OutputTables(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	tables, err := s.tables(ctx, StageOutput)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = TableName(StageOutput, t)
	}
	return out, nil
}

// ReadOutput reads one output table by full store name.
func (s *Service) ReadOutput(ctx context.Context, name string) ([]record.Record, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ReadTable(ctx, name)
}
