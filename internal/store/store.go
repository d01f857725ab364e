package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"horse.fit/jobdedup/internal/config"
	"horse.fit/jobdedup/internal/record"
)

var ErrTableNotFound = errors.New("table not found")

// Store reads and writes whole record tables keyed by name. Writing a table
// replaces its previous content; reads return rows in write order.
type Store interface {
	ReadTable(ctx context.Context, name string) ([]record.Record, error)
	WriteTable(ctx context.Context, name string, records []record.Record) error
	ListTables(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// ScoreColumns are the per-method score columns persisted by the SQL drivers.
var ScoreColumns = []string{"levenshtein", "countvec", "tfidf", "doc2vec", "shingling"}

// Options tune table reads.
type Options struct {
	// ChunkSize is the page size used when reading a table.
	ChunkSize int
	// MaxRows caps the rows read per table; 0 means unlimited.
	MaxRows int
}

// Open builds the store selected by cfg.StoreDriver, wrapped so that writes
// to the same table are serialized.
func Open(ctx context.Context, cfg *config.Config) (*Serialized, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	opts := Options{ChunkSize: cfg.ChunkSize, MaxRows: cfg.MaxRowsPerTable}

	var (
		inner Store
		err   error
	)
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		inner, err = OpenSQLite(ctx, cfg.StorePath, opts)
	case config.DriverPostgres:
		inner, err = OpenPostgres(ctx, cfg, opts)
	case config.DriverMemory:
		inner = NewMemory()
	default:
		err = fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}
	return NewSerialized(inner), nil
}

// Serialized guards writes with one mutex per table name. Reads pass through.
type Serialized struct {
	Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSerialized(inner Store) *Serialized {
	return &Serialized{Store: inner, locks: make(map[string]*sync.Mutex)}
}

func (s *Serialized) WriteTable(ctx context.Context, name string, records []record.Record) error {
	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()
	return s.Store.WriteTable(ctx, name, records)
}

func (s *Serialized) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}

func validateTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("table name is empty")
	}
	if strings.ContainsAny(name, "\x00\n\r") {
		return fmt.Errorf("table name %q contains control characters", name)
	}
	return nil
}

func filterPrefix(names []string, prefix string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func capRows(records []record.Record, maxRows int) []record.Record {
	if maxRows > 0 && len(records) > maxRows {
		return records[:maxRows]
	}
	return records
}
