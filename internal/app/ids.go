package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/jobdedup/internal/cli"
	"horse.fit/jobdedup/internal/ids"
	"horse.fit/jobdedup/internal/pipeline"
)

func runIDHandling(args []string) int {
	fs := flag.NewFlagSet("id_handling", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	test := fs.Bool("test", false, "Assign ids to the imported test tables")
	train := fs.Bool("train", false, "Assign ids to the imported train tables")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	rt, code := loadRuntime("id_handling", envLoader)
	if code != 0 {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, closeStore, err := rt.openService(ctx)
	if err != nil {
		return rt.fail("ID handling", err)
	}
	defer closeStore()

	return rt.assignIDs(ctx, svc, idDatasets(*test, *train))
}

// idDatasets returns the datasets selected by the flags, both when none is
// set. Test ids are always issued before train ids.
func idDatasets(test, train bool) []pipeline.Dataset {
	if !test && !train {
		return []pipeline.Dataset{pipeline.Test, pipeline.Train}
	}
	var out []pipeline.Dataset
	if test {
		out = append(out, pipeline.Test)
	}
	if train {
		out = append(out, pipeline.Train)
	}
	return out
}

func (rt *runtime) assignIDs(ctx context.Context, svc *pipeline.Service, datasets []pipeline.Dataset) int {
	gen, err := ids.NewGenerator(rt.cfg.IDCounterFile)
	if err != nil {
		return rt.fail("ID handling", err)
	}
	for _, ds := range datasets {
		result, err := svc.AssignIDs(ctx, ds, gen)
		if err != nil {
			return rt.fail("ID handling", err)
		}
		rt.logger.Info().
			Str("dataset", string(ds)).
			Int("tables", result.Tables).
			Int("records", result.Records).
			Str("last_id", result.LastID).
			Msg("id_handling completed")
		fmt.Printf("id_handling dataset=%s tables=%d records=%d last_id=%s\n", ds, result.Tables, result.Records, result.LastID)
	}
	return 0
}
