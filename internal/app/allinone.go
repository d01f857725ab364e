package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/jobdedup/internal/cli"
	"horse.fit/jobdedup/internal/similarity"
)

// runAllInOne assigns ids to both datasets, trains the outside model and runs
// the complete analysis with every step enabled.
func runAllInOne(args []string) int {
	fs := flag.NewFlagSet("all_in_one", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Hour, "Command timeout")
	jaccard := fs.Bool("jaccard", false, "Use the jaccard coefficient for shingling instead of the cosine")
	methodIn := fs.String("method_in", string(similarity.EditDistance), "Similarity method of the inside analysis")
	methodOut := fs.String("method_out", string(similarity.TFIDF), "Shortlist model of the outside analysis: tfidf or doc2vec")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	plan, err := newAnalysisPlan(analysisComplete, *methodIn, *methodOut, *jaccard)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	plan.selectSteps(false, false, false, false, false)

	rt, code := loadRuntime("all_in_one", envLoader)
	if code != 0 {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, closeStore, err := rt.openService(ctx)
	if err != nil {
		return rt.fail("All in one", err)
	}
	defer closeStore()

	if code := rt.assignIDs(ctx, svc, idDatasets(true, true)); code != 0 {
		return code
	}
	for _, method := range modelsFor(plan) {
		if code := rt.model(ctx, svc, modelingTask{method: method, training: true}); code != 0 {
			return code
		}
	}
	return rt.analyze(ctx, svc, plan)
}

// modelsFor lists the models the plan's methods load, outside model first.
func modelsFor(plan analysisPlan) []similarity.Method {
	out := []similarity.Method{plan.methodOut}
	if (plan.methodIn == similarity.TFIDF || plan.methodIn == similarity.Embedding) && plan.methodIn != plan.methodOut {
		out = append(out, plan.methodIn)
	}
	return out
}
