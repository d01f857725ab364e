package store

import (
	"context"
	"fmt"
	"sync"

	"horse.fit/jobdedup/internal/record"
)

// Memory keeps tables in process memory.
type Memory struct {
	mu      sync.RWMutex
	tables map[string][]record.Record
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]record.Record)}
}

func (m *Memory) ReadTable(ctx context.Context, name string) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, ErrTableNotFound)
	}
	return record.CloneAll(rows), nil
}

func (m *Memory) WriteTable(ctx context.Context, name string, records []record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTableName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = record.CloneAll(records)
	return nil
}

func (m *Memory) ListTables(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	return filterPrefix(names, prefix), nil
}

func (m *Memory) Close() error { return nil }
