// Package export renders duplicate tables as an XLSX workbook.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"horse.fit/jobdedup/internal/record"
)

var ErrNoTables = errors.New("no tables to export")

// maxCellText is the XLSX cell length limit.
const maxCellText = 32767

// Table is one sheet of the workbook.
type Table struct {
	Name string
	Rows []record.Record
}

var baseHeaders = []string{
	string(record.FieldPairingLabel),
	string(record.FieldUniqueID),
	string(record.FieldDate),
	string(record.FieldSourceWebsite),
	string(record.FieldLocationName),
	string(record.FieldProfessionCode),
	string(record.FieldAdvertiserName),
	string(record.FieldTestsetID),
	"duplicate",
}

// Workbook returns the XLSX bytes with one sheet per table.
func Workbook(tables []Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]struct{}, len(tables))
	for i, table := range tables {
		sheet := sheetName(table.Name, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return nil, fmt.Errorf("rename first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, table.Rows); err != nil {
			return nil, fmt.Errorf("write sheet %s: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes the workbook to path.
func WriteFile(path string, tables []Table) error {
	raw, err := Workbook(tables)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	return os.WriteFile(path, raw, 0o644)
}

func writeSheet(f *excelize.File, sheet string, rows []record.Record) error {
	methods := scoreColumns(rows)
	headers := append(append(append([]string(nil), baseHeaders...), methods...), string(record.FieldFullText))
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, rec := range rows {
		values := []any{
			rec.PairingLabel,
			rec.UniqueID,
			rec.Date,
			rec.SourceWebsite,
			rec.LocationName,
			rec.ProfessionCode,
			rec.AdvertiserName,
			rec.TestsetID,
			rec.Duplicate,
		}
		for _, m := range methods {
			if score, ok := rec.Score(m); ok {
				values = append(values, score)
			} else {
				values = append(values, "")
			}
		}
		values = append(values, truncate(rec.FullText, maxCellText))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	_ = f.SetColWidth(sheet, "A", "B", 22)
	_ = f.SetColWidth(sheet, last, last, 80)
	return nil
}

func scoreColumns(rows []record.Record) []string {
	set := make(map[string]struct{})
	for _, rec := range rows {
		for _, m := range rec.ScoreMethods() {
			set[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// sheetName fits a table name into the XLSX sheet name rules: at most 31
// characters, none of []:*?/\ and unique within the workbook.
func sheetName(table string, used map[string]struct{}) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(table))
	if name == "" {
		name = "table"
	}
	name = truncateRunes(name, 31)
	candidate := name
	for n := 2; ; n++ {
		if _, taken := used[strings.ToLower(candidate)]; !taken {
			break
		}
		suffix := fmt.Sprintf("~%d", n)
		candidate = truncateRunes(name, 31-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = struct{}{}
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	var b bytes.Buffer
	for _, r := range s {
		if b.Len()+len(string(r)) > n {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
