package pairing

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"horse.fit/jobdedup/internal/record"
)

// KnownDuplicates is the set of annotated duplicate testset id pairs. Order
// within a pair does not matter.
type KnownDuplicates struct {
	pairs map[[2]string]struct{}
}

// LoadKnownDuplicates reads a file of "id1,id2" lines. A missing file is
// reported with an error wrapping os.ErrNotExist.
func LoadKnownDuplicates(path string) (KnownDuplicates, error) {
	f, err := os.Open(path)
	if err != nil {
		return KnownDuplicates{}, fmt.Errorf("open known duplicates: %w", err)
	}
	defer f.Close()
	return ParseKnownDuplicates(f)
}

// ParseKnownDuplicates reads "id1,id2" lines. Blank lines are ignored.
func ParseKnownDuplicates(r io.Reader) (KnownDuplicates, error) {
	known := KnownDuplicates{pairs: make(map[[2]string]struct{})}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) != 2 {
			return KnownDuplicates{}, fmt.Errorf("known duplicates line %d: expected id1,id2, got %q", line, text)
		}
		a, b := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if a == "" || b == "" {
			return KnownDuplicates{}, fmt.Errorf("known duplicates line %d: empty id", line)
		}
		known.pairs[unordered(a, b)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return KnownDuplicates{}, fmt.Errorf("read known duplicates: %w", err)
	}
	return known, nil
}

func (k KnownDuplicates) Contains(a, b string) bool {
	_, ok := k.pairs[unordered(a, b)]
	return ok
}

func (k KnownDuplicates) Len() int { return len(k.pairs) }

// AnnotateSummary counts the outcome of Annotate.
type AnnotateSummary struct {
	Marked  int
	Skipped int
}

// Annotate sets Duplicate on both records of every pair whose testset ids
// are a known duplicate. Pairs lacking a testset id on either side are
// counted as skipped.
func Annotate(pairs []Pair, known KnownDuplicates) AnnotateSummary {
	var summary AnnotateSummary
	for i := range pairs {
		a, b := pairs[i].A, pairs[i].B
		if !a.Has(record.FieldTestsetID) || !b.Has(record.FieldTestsetID) {
			summary.Skipped++
			continue
		}
		if known.Contains(strings.TrimSpace(a.TestsetID), strings.TrimSpace(b.TestsetID)) {
			pairs[i].A.Duplicate = true
			pairs[i].B.Duplicate = true
			summary.Marked++
		}
	}
	return summary
}
