package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"horse.fit/jobdedup/internal/evaluate"
	"horse.fit/jobdedup/internal/pairing"
	"horse.fit/jobdedup/internal/record"
	"horse.fit/jobdedup/internal/scoring"
	"horse.fit/jobdedup/internal/similarity"
)

// LoadAnnotations reads the known duplicates file. An unset path, or a
// missing file (with a warning), yields nil.
func (s *Service) LoadAnnotations(path string) (*pairing.KnownDuplicates, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	known, err := pairing.LoadKnownDuplicates(path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Str("path", path).Msg("known duplicates file not found, skipping annotation")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("path", path).Int("pairs", known.Len()).Msg("known duplicates loaded")
	return &known, nil
}

type PairResult struct {
	Tables    int
	Pairs     int
	Annotated int
}

// PairInside pairs each prepro_test table with itself and writes pair tables.
func (s *Service) PairInside(ctx context.Context, params pairing.FilterParams, known *pairing.KnownDuplicates) (PairResult, error) {
	if err := s.ready(); err != nil {
		return PairResult{}, err
	}
	tables, err := s.requireTables(ctx, StagePreproTest, StepPreprocessing)
	if err != nil {
		return PairResult{}, err
	}

	results, err := forEachTable(ctx, s, tables, func(ctx context.Context, _ int, table string) (PairResult, error) {
		records, err := s.read(ctx, StagePreproTest, table, StepPreprocessing)
		if err != nil {
			return PairResult{}, err
		}
		if err := requireIDs(records, StagePreproTest, table); err != nil {
			return PairResult{}, err
		}
		logger := s.logger.With().Str("table", table).Logger()
		pairs := pairing.FilterInside(records, params, logger)

		var r PairResult
		if known != nil {
			if !hasTestsetIDs(pairs) {
				logger.Warn().Msg("records carry no testset_id, skipping annotation")
			} else {
				summary := pairing.Annotate(pairs, *known)
				r.Annotated = summary.Marked
				logger.Info().Int("marked", summary.Marked).Int("skipped", summary.Skipped).Msg("pairs annotated")
			}
		}
		if err := s.store.WriteTable(ctx, TableName(StagePair, table), pairing.Rows(pairs)); err != nil {
			return PairResult{}, fmt.Errorf("write pair table: %w", err)
		}
		logger.Info().Int("records", len(records)).Int("pairs", len(pairs)).Msg("inside pairing done")
		r.Tables = 1
		r.Pairs = len(pairs)
		return r, nil
	})
	if err != nil {
		return PairResult{}, err
	}

	var total PairResult
	for _, r := range results {
		total.Tables += r.Tables
		total.Pairs += r.Pairs
		total.Annotated += r.Annotated
	}
	return total, nil
}

func hasTestsetIDs(pairs []pairing.Pair) bool {
	for _, p := range pairs {
		if p.A.TestsetID != "" || p.B.TestsetID != "" {
			return true
		}
	}
	return false
}

type CalcResult struct {
	Tables  int
	Scored  int
	Skipped int
}

// Calculate scores the pairs of every pair table with method and writes calc
// tables.
func (s *Service) Calculate(ctx context.Context, method similarity.Method, jaccard bool, distributor *similarity.Distributor) (CalcResult, error) {
	if err := s.ready(); err != nil {
		return CalcResult{}, err
	}
	if err := distributor.Check(method); err != nil {
		return CalcResult{}, err
	}
	tables, err := s.requireTables(ctx, StagePair, StepPairing)
	if err != nil {
		return CalcResult{}, err
	}

	results, err := forEachTable(ctx, s, tables, func(ctx context.Context, _ int, table string) (CalcResult, error) {
		rows, err := s.read(ctx, StagePair, table, StepPairing)
		if err != nil {
			return CalcResult{}, err
		}
		pairs, err := pairing.FromRows(rows)
		if err != nil {
			return CalcResult{}, missingUpstream(StepPairing, err, "pair table %s is malformed", table)
		}
		summary, err := scoring.Aggregate(pairs, method, jaccard, distributor)
		if err != nil {
			return CalcResult{}, err
		}
		if err := s.store.WriteTable(ctx, TableName(StageCalc, table), pairing.Rows(pairs)); err != nil {
			return CalcResult{}, fmt.Errorf("write calc table: %w", err)
		}
		s.logger.Info().
			Str("table", table).
			Str("method", method.String()).
			Int("scored", summary.Scored).
			Int("skipped", summary.Skipped).
			Msg("calculation done")
		return CalcResult{Tables: 1, Scored: summary.Scored, Skipped: summary.Skipped}, nil
	})
	if err != nil {
		return CalcResult{}, err
	}

	var total CalcResult
	for _, r := range results {
		total.Tables += r.Tables
		total.Scored += r.Scored
		total.Skipped += r.Skipped
	}
	return total, nil
}

type EvalResult struct {
	Tables     int
	Duplicates int
	Outputs    []string
	Reports    []evaluate.Report
}

// Evaluate classifies the scored pairs of every calc table and writes the
// duplicates to output tables. Tables without duplicates get no output.
func (s *Service) Evaluate(ctx context.Context, method similarity.Method, table evaluate.Table) (EvalResult, error) {
	if err := s.ready(); err != nil {
		return EvalResult{}, err
	}
	tables, err := s.requireTables(ctx, StageCalc, StepCalculation)
	if err != nil {
		return EvalResult{}, err
	}

	type tableEval struct {
		duplicates int
		output     string
		report     *evaluate.Report
	}
	results, err := forEachTable(ctx, s, tables, func(ctx context.Context, position int, name string) (tableEval, error) {
		rows, err := s.read(ctx, StageCalc, name, StepCalculation)
		if err != nil {
			return tableEval{}, err
		}
		pairs, err := pairing.FromRows(rows)
		if err != nil {
			return tableEval{}, missingUpstream(StepCalculation, err, "calc table %s is malformed", name)
		}
		if !scored(pairs, method) {
			return tableEval{}, missingUpstream(StepCalculation, nil, "calc table %s has no %s scores", name, method)
		}

		classifier, err := evaluate.NewClassifier(method, table)
		if err != nil {
			return tableEval{}, err
		}
		thresholds, err := classifier.ComputeThresholds(pairs)
		if err != nil {
			return tableEval{}, err
		}
		kept, err := classifier.Classify(pairs)
		if err != nil {
			return tableEval{}, err
		}

		logger := s.logger.With().Str("table", name).Str("method", method.String()).Logger()
		logger.Info().
			Int("pairs", len(pairs)).
			Int("duplicates", len(kept)).
			Float64("threshold_same_source", thresholds.SameSource).
			Float64("threshold_cross_source", thresholds.CrossSource).
			Msg("evaluation done")

		var out tableEval
		if evaluate.Annotated(pairs) {
			report := evaluate.NewReport(pairs, kept, thresholds)
			report.Log(logger, name)
			out.report = &report
		}
		if len(kept) == 0 {
			logger.Info().Msg("no duplicates found")
			return out, nil
		}
		out.duplicates = len(kept)
		out.output = OutputTable(insideOutputSuffix, position, name)
		if err := s.store.WriteTable(ctx, out.output, rowsKeepingLabels(kept)); err != nil {
			return tableEval{}, fmt.Errorf("write output table: %w", err)
		}
		return out, nil
	})
	if err != nil {
		return EvalResult{}, err
	}

	result := EvalResult{Tables: len(tables)}
	for _, r := range results {
		result.Duplicates += r.duplicates
		if r.output != "" {
			result.Outputs = append(result.Outputs, r.output)
		}
		if r.report != nil {
			result.Reports = append(result.Reports, *r.report)
		}
	}
	return result, nil
}

// scored reports whether the method ran over pairs: some pair carries its
// score, or no pair had texts to score.
func scored(pairs []pairing.Pair, method similarity.Method) bool {
	scorable := false
	for _, p := range pairs {
		if _, ok := p.A.Score(method.String()); ok {
			return true
		}
		if p.A.Has(record.FieldNormalizedText) && p.B.Has(record.FieldNormalizedText) {
			scorable = true
		}
	}
	return !scorable
}

// rowsKeepingLabels flattens pairs without renumbering them.
func rowsKeepingLabels(pairs []pairing.Pair) []record.Record {
	rows := make([]record.Record, 0, 2*len(pairs))
	for _, p := range pairs {
		rows = append(rows, p.A, p.B)
	}
	return rows
}
