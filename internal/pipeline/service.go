// Package pipeline runs the duplicate detection stages over the table store:
// id assignment, preprocessing, pairing, score calculation, evaluation, and
// the cross-dataset shortlist and pairing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/jobdedup/internal/record"
	"horse.fit/jobdedup/internal/store"
)

type Options struct {
	// Workers bounds the number of tables processed at once.
	Workers int
	// TableFilter keeps only tables whose name contains it.
	TableFilter string
}

type Service struct {
	store       store.Store
	logger      zerolog.Logger
	workers     int
	tableFilter string
}

func NewService(st store.Store, logger zerolog.Logger, opts Options) *Service {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Service{
		store:       st,
		logger:      logger,
		workers:     workers,
		tableFilter: strings.TrimSpace(opts.TableFilter),
	}
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return fmt.Errorf("pipeline service is not initialized")
	}
	return nil
}

// tables lists the table names of a stage, without the stage prefix, in
// sorted order.
func (s *Service) tables(ctx context.Context, stage string) ([]string, error) {
	names, err := s.store.ListTables(ctx, stage+stageSeparator)
	if err != nil {
		return nil, fmt.Errorf("list %s tables: %w", stage, err)
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		_, table, ok := SplitTableName(name)
		if !ok || table == "" {
			continue
		}
		if s.tableFilter != "" && !strings.Contains(table, s.tableFilter) {
			continue
		}
		out = append(out, table)
	}
	return out, nil
}

// requireTables is tables, failing with a MissingUpstreamError when the
// stage holds none.
func (s *Service) requireTables(ctx context.Context, stage, step string) ([]string, error) {
	tables, err := s.tables(ctx, stage)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, missingUpstream(step, nil, "no %s tables found", stage)
	}
	return tables, nil
}

func (s *Service) read(ctx context.Context, stage, table, step string) ([]record.Record, error) {
	rows, err := s.store.ReadTable(ctx, TableName(stage, table))
	if errors.Is(err, store.ErrTableNotFound) {
		return nil, missingUpstream(step, err, "table %s not found", TableName(stage, table))
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// forEachTable runs fn for every table with at most Workers in flight. The
// results keep the order of tables.
func forEachTable[T any](ctx context.Context, s *Service, tables []string, fn func(ctx context.Context, position int, table string) (T, error)) ([]T, error) {
	results := make([]T, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := fn(ctx, i, table)
			if err != nil {
				return fmt.Errorf("table %s: %w", table, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func requireIDs(records []record.Record, stage, table string) error {
	for i, rec := range records {
		if !rec.Has(record.FieldUniqueID) {
			return missingUpstream(StepIDHandling, nil, "row %d of %s has no unique_id", i+1, TableName(stage, table))
		}
	}
	return nil
}
