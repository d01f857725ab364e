package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/jobdedup/internal/cli"
	"horse.fit/jobdedup/internal/export"
	"horse.fit/jobdedup/internal/pipeline"
)

func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	out := fs.String("out", "results.xlsx", "Path of the xlsx workbook to write")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*out) == "" {
		fmt.Fprintln(os.Stderr, "--out must not be empty")
		return 2
	}

	rt, code := loadRuntime("export", envLoader)
	if code != 0 {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, closeStore, err := rt.openService(ctx)
	if err != nil {
		return rt.fail("Export", err)
	}
	defer closeStore()

	names, err := svc.OutputTables(ctx)
	if err != nil {
		return rt.fail("Export", err)
	}
	if len(names) == 0 {
		rt.logger.Info().Msg("no output tables to export")
		fmt.Println(noSimilarities)
		return 0
	}

	tables := make([]export.Table, 0, len(names))
	rows := 0
	for _, name := range names {
		records, err := svc.ReadOutput(ctx, name)
		if err != nil {
			return rt.fail("Export", err)
		}
		_, short, _ := pipeline.SplitTableName(name)
		tables = append(tables, export.Table{Name: short, Rows: records})
		rows += len(records)
	}

	path := strings.TrimSpace(*out)
	if err := export.WriteFile(path, tables); err != nil {
		return rt.fail("Export", err)
	}

	rt.logger.Info().
		Int("sheets", len(tables)).
		Int("rows", rows).
		Str("path", path).
		Msg("export completed")
	fmt.Printf("export sheets=%d rows=%d path=%s\n", len(tables), rows, path)
	return 0
}
