package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"horse.fit/jobdedup/internal/cli"
	"horse.fit/jobdedup/internal/pipeline"
	"horse.fit/jobdedup/internal/record"
)

func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	datasetRaw := fs.String("dataset", "", "Dataset to import into: test or train")
	dir := fs.String("dir", "", "Directory containing .json job ad files")
	recursive := fs.Bool("recursive", true, "Recursively scan subdirectories")
	tableOverride := fs.String("table", "", "Store every file in this one table instead of one table per file name")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	dataset, err := pipeline.ParseDataset(*datasetRaw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "--dataset: %v\n", err)
		return 2
	}
	if strings.TrimSpace(*dir) == "" {
		fmt.Fprintln(os.Stderr, "--dir is required")
		return 2
	}
	if *tableOverride != "" && tableName(*tableOverride) == "" {
		fmt.Fprintln(os.Stderr, "--table must contain letters or digits")
		return 2
	}

	rt, code := loadRuntime("import", envLoader)
	if code != 0 {
		return code
	}

	files, err := collectJSONFiles(strings.TrimSpace(*dir), *recursive)
	if err != nil {
		return rt.fail("Import", err)
	}
	if len(files) == 0 {
		return rt.fail("Import", fmt.Errorf("no .json files found under %s", strings.TrimSpace(*dir)))
	}

	checked, valid := validateFiles(files)
	if checked.Invalid > 0 {
		rt.logger.Error().Int("invalid", checked.Invalid).Int("scanned", checked.Scanned).Msg("import aborted")
		fmt.Fprintf(os.Stderr, "Import aborted: %d of %d files are invalid\n", checked.Invalid, checked.Scanned)
		return 1
	}

	tables := make(map[string][]record.Record)
	for _, path := range files {
		name := tableName(*tableOverride)
		if name == "" {
			name = tableName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		}
		if name == "" {
			return rt.fail("Import", fmt.Errorf("cannot derive a table name from %s", path))
		}
		for _, ad := range valid[path] {
			tables[name] = append(tables[name], ad.Record())
		}
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, closeStore, err := rt.openService(ctx)
	if err != nil {
		return rt.fail("Import", err)
	}
	defer closeStore()

	for _, name := range names {
		if err := svc.ImportTable(ctx, dataset, name, tables[name]); err != nil {
			return rt.fail("Import", err)
		}
	}

	rt.logger.Info().
		Str("dataset", string(dataset)).
		Int("files", checked.Scanned).
		Int("tables", len(names)).
		Int("records", checked.Ads).
		Msg("import completed")
	fmt.Printf("import dataset=%s files=%d tables=%d records=%d\n", dataset, checked.Scanned, len(names), checked.Ads)
	return 0
}

// tableName lowercases raw and maps every run of characters outside
// [a-z0-9] to a single underscore.
func tableName(raw string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
