package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"horse.fit/jobdedup/internal/record"
)

const sqliteColumns = `position, unique_id, date, full_text, normalized_text, location_name,
	profession_code, advertiser_name, source_website, testset_id, pairing_label, duplicate,
	levenshtein, countvec, tfidf, doc2vec, shingling`

const sqliteTableSchema = `(
	position INTEGER PRIMARY KEY,
	unique_id TEXT NOT NULL DEFAULT '',
	date TEXT NOT NULL DEFAULT '',
	full_text TEXT NOT NULL DEFAULT '',
	normalized_text TEXT NOT NULL DEFAULT '',
	location_name TEXT NOT NULL DEFAULT '',
	profession_code TEXT NOT NULL DEFAULT '',
	advertiser_name TEXT NOT NULL DEFAULT '',
	source_website TEXT NOT NULL DEFAULT '',
	testset_id TEXT NOT NULL DEFAULT '',
	pairing_label TEXT NOT NULL DEFAULT '',
	duplicate INTEGER NOT NULL DEFAULT 0,
	levenshtein REAL,
	countvec REAL,
	tfidf REAL,
	doc2vec REAL,
	shingling REAL
)`

// SQLite stores every table in one database file.
type SQLite struct {
	db   *sql.DB
	opts Options
}

func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite admits a single writer.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 5000
	}
	return &SQLite{db: db, opts: opts}, nil
}

func (s *SQLite) ReadTable(ctx context.Context, name string) ([]record.Record, error) {
	exists, err := s.hasTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("read %s: %w", name, ErrTableNotFound)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY position LIMIT ? OFFSET ?", sqliteColumns, quoteIdent(name))
	var out []record.Record
	for offset := 0; ; offset += s.opts.ChunkSize {
		limit := s.opts.ChunkSize
		if s.opts.MaxRows > 0 && offset+limit > s.opts.MaxRows {
			limit = s.opts.MaxRows - offset
		}
		if limit <= 0 {
			break
		}

		n, err := s.readChunk(ctx, query, limit, offset, &out)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if n < limit {
			break
		}
	}
	return out, nil
}

func (s *SQLite) readChunk(ctx context.Context, query string, limit, offset int, out *[]record.Record) (int, error) {
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			row       recordRow
			duplicate int
		)
		if err := rows.Scan(
			&row.Position, &row.UniqueID, &row.Date, &row.FullText, &row.NormalizedText,
			&row.LocationName, &row.ProfessionCode, &row.AdvertiserName, &row.SourceWebsite,
			&row.TestsetID, &row.PairingLabel, &duplicate,
			&row.Levenshtein, &row.Countvec, &row.TFIDF, &row.Doc2vec, &row.Shingling,
		); err != nil {
			return n, err
		}
		row.Duplicate = duplicate != 0
		*out = append(*out, row.toRecord())
		n++
	}
	return n, rows.Err()
}

func (s *SQLite) WriteTable(ctx context.Context, name string, records []record.Record) error {
	if err := validateTableName(name); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	ident := quoteIdent(name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+ident); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+ident+" "+sqliteTableSchema); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", ident, sqliteColumns))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", name, err)
	}
	defer stmt.Close()

	for i, rec := range records {
		row := toRow(i+1, rec)
		duplicate := 0
		if row.Duplicate {
			duplicate = 1
		}
		if _, err := stmt.ExecContext(ctx,
			row.Position, row.UniqueID, row.Date, row.FullText, row.NormalizedText,
			row.LocationName, row.ProfessionCode, row.AdvertiserName, row.SourceWebsite,
			row.TestsetID, row.PairingLabel, duplicate,
			row.Levenshtein, row.Countvec, row.TFIDF, row.Doc2vec, row.Shingling,
		); err != nil {
			return fmt.Errorf("insert %s row %d: %w", name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

func (s *SQLite) ListTables(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return filterPrefix(names, prefix), nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) hasTable(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", name, err)
	}
	return n > 0, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
