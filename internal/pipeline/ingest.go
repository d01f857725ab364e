package pipeline

import (
	"context"
	"fmt"

	"horse.fit/jobdedup/internal/ids"
	"horse.fit/jobdedup/internal/record"
	"horse.fit/jobdedup/internal/textprep"
)

// ImportTable stores imported records as input_<dataset>__<table>.
func (s *Service) ImportTable(ctx context.Context, ds Dataset, table string, records []record.Record) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: nothing to import into %s", ErrEmptyRecordSet, table)
	}
	name := TableName(InputStage(ds), table)
	if err := s.store.WriteTable(ctx, name, records); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	s.logger.Info().Str("table", name).Int("records", len(records)).Msg("import table written")
	return nil
}

type IDResult struct {
	Tables  int
	Records int
	LastID  string
}

// AssignIDs gives every imported record of the dataset a fresh unique id and
// writes id_<dataset> tables. Tables are handled one after another so that
// ids follow table order.
func (s *Service) AssignIDs(ctx context.Context, ds Dataset, gen *ids.Generator) (IDResult, error) {
	if err := s.ready(); err != nil {
		return IDResult{}, err
	}
	stage := InputStage(ds)
	tables, err := s.requireTables(ctx, stage, StepImport)
	if err != nil {
		return IDResult{}, err
	}

	var result IDResult
	for _, table := range tables {
		records, err := s.read(ctx, stage, table, StepImport)
		if err != nil {
			return result, err
		}
		last, err := gen.Assign(records)
		if err != nil {
			return result, fmt.Errorf("assign ids for %s: %w", table, err)
		}
		if err := s.store.WriteTable(ctx, TableName(IDStage(ds), table), records); err != nil {
			return result, fmt.Errorf("write id table %s: %w", table, err)
		}
		s.logger.Info().
			Str("table", TableName(IDStage(ds), table)).
			Int("records", len(records)).
			Str("last_id", last).
			Msg("unique ids assigned")
		result.Tables++
		result.Records += len(records)
		if last != "" {
			result.LastID = last
		}
	}
	return result, nil
}

type PreprocessResult struct {
	Tables      int
	Records     int
	MissingText int
}

// Preprocess writes the normalized text of every record of the dataset into
// prepro_<dataset> tables.
func (s *Service) Preprocess(ctx context.Context, ds Dataset, prep *textprep.Preprocessor) (PreprocessResult, error) {
	if err := s.ready(); err != nil {
		return PreprocessResult{}, err
	}
	stage := IDStage(ds)
	tables, err := s.requireTables(ctx, stage, StepIDHandling)
	if err != nil {
		return PreprocessResult{}, err
	}

	results, err := forEachTable(ctx, s, tables, func(ctx context.Context, _ int, table string) (PreprocessResult, error) {
		records, err := s.read(ctx, stage, table, StepIDHandling)
		if err != nil {
			return PreprocessResult{}, err
		}
		if err := requireIDs(records, stage, table); err != nil {
			return PreprocessResult{}, err
		}
		var r PreprocessResult
		for i := range records {
			records[i].NormalizedText = prep.Normalize(records[i].FullText)
			if records[i].NormalizedText == "" {
				r.MissingText++
			}
		}
		if err := s.store.WriteTable(ctx, TableName(PreproStage(ds), table), records); err != nil {
			return PreprocessResult{}, fmt.Errorf("write prepro table: %w", err)
		}
		s.logger.Info().
			Str("table", TableName(PreproStage(ds), table)).
			Int("records", len(records)).
			Int("missing_text", r.MissingText).
			Msg("preprocessing done")
		r.Tables = 1
		r.Records = len(records)
		return r, nil
	})
	if err != nil {
		return PreprocessResult{}, err
	}

	var total PreprocessResult
	for _, r := range results {
		total.Tables += r.Tables
		total.Records += r.Records
		total.MissingText += r.MissingText
	}
	return total, nil
}
