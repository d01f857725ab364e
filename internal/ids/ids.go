// Package ids hands out run-wide unique record ids from a hex counter kept in
// a file, formatted as XXXX-XXXX-XXXX-XXXX.
package ids

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"horse.fit/jobdedup/internal/record"
)

var ErrExhausted = errors.New("unique id counter exhausted")

// Generator owns the counter file. It is safe for concurrent use within one
// process.
type Generator struct {
	mu   sync.Mutex
	path string
}

func NewGenerator(path string) (*Generator, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("id counter path is empty")
	}
	return &Generator{path: path}, nil
}

// Last returns the last issued counter value, 0 when the file does not exist.
func (g *Generator) Last() (uint64, error) {
	raw, err := os.ReadFile(g.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read id counter %s: %w", g.path, err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(strings.ReplaceAll(text, "-", ""), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id counter %s: %w", g.path, err)
	}
	return value, nil
}

// Assign overwrites the unique id of every record with a fresh id, in order,
// and persists the new counter value. It returns the last id issued.
func (g *Generator) Assign(records []record.Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	last, err := g.Last()
	if err != nil {
		return "", err
	}
	if uint64(len(records)) > math.MaxUint64-last {
		return "", ErrExhausted
	}

	for i := range records {
		last++
		records[i].UniqueID = Format(last)
	}
	if err := g.store(last); err != nil {
		return "", err
	}
	return Format(last), nil
}

func (g *Generator) store(value uint64) error {
	if dir := filepath.Dir(g.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create id counter directory: %w", err)
		}
	}
	tmp := g.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.ToUpper(strconv.FormatUint(value, 16))), 0o644); err != nil {
		return fmt.Errorf("write id counter: %w", err)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		return fmt.Errorf("replace id counter: %w", err)
	}
	return nil
}

// Format renders a counter value as a dashed, zero padded, upper-case id.
func Format(value uint64) string {
	hex := fmt.Sprintf("%016X", value)
	return hex[0:4] + "-" + hex[4:8] + "-" + hex[8:12] + "-" + hex[12:16]
}
