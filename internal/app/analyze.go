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
	"horse.fit/jobdedup/internal/evaluate"
	"horse.fit/jobdedup/internal/pairing"
	"horse.fit/jobdedup/internal/pipeline"
	"horse.fit/jobdedup/internal/similarity"
)

const (
	analysisInside   = "inside"
	analysisOutside  = "outside"
	analysisComplete = "complete"
)

const noSimilarities = "no similarities were found"

// analysisPlan selects the steps of one analyze run.
type analysisPlan struct {
	inside  bool
	outside bool

	preprocessing bool
	pairing       bool
	calculation   bool
	evaluation    bool
	mostSim       bool

	jaccard   bool
	methodIn  similarity.Method
	methodOut similarity.Method
}

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Hour, "Command timeout")
	analysisType := fs.String("analysis_type", analysisComplete, "Analysis to run: inside, outside or complete")
	preprocessing := fs.Bool("preprocessing", false, "Run the preprocessing step")
	pairingStep := fs.Bool("pairing", false, "Run the pairing step")
	calculation := fs.Bool("calculation", false, "Run the similarity calculation step (inside)")
	evaluation := fs.Bool("evaluation", false, "Run the threshold evaluation step (inside)")
	mostSim := fs.Bool("mostsim", false, "Run the nearest-neighbour shortlist step (outside)")
	jaccard := fs.Bool("jaccard", false, "Use the jaccard coefficient for shingling instead of the cosine")
	methodIn := fs.String("method_in", string(similarity.EditDistance), "Similarity method of the inside analysis")
	methodOut := fs.String("method_out", string(similarity.TFIDF), "Shortlist model of the outside analysis: tfidf or doc2vec")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	plan, err := newAnalysisPlan(*analysisType, *methodIn, *methodOut, *jaccard)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	plan.selectSteps(*preprocessing, *pairingStep, *calculation, *evaluation, *mostSim)

	rt, code := loadRuntime("analyze", envLoader)
	if code != 0 {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, closeStore, err := rt.openService(ctx)
	if err != nil {
		return rt.fail("Analyze", err)
	}
	defer closeStore()

	return rt.analyze(ctx, svc, plan)
}

func newAnalysisPlan(analysisType, methodIn, methodOut string, jaccard bool) (analysisPlan, error) {
	plan := analysisPlan{jaccard: jaccard}
	switch strings.ToLower(strings.TrimSpace(analysisType)) {
	case analysisInside:
		plan.inside = true
	case analysisOutside:
		plan.outside = true
	case analysisComplete:
		plan.inside, plan.outside = true, true
	default:
		return analysisPlan{}, fmt.Errorf("--analysis_type must be inside, outside or complete (got %q)", analysisType)
	}

	in, err := similarity.ParseMethod(methodIn)
	if err != nil {
		return analysisPlan{}, fmt.Errorf("--method_in: %w", err)
	}
	out, err := similarity.ParseMethod(methodOut)
	if err != nil {
		return analysisPlan{}, fmt.Errorf("--method_out: %w", err)
	}
	if out != similarity.TFIDF && out != similarity.Embedding {
		return analysisPlan{}, fmt.Errorf("--method_out must be tfidf or doc2vec (got %q)", methodOut)
	}
	plan.methodIn, plan.methodOut = in, out
	return plan, nil
}

// selectSteps enables the flagged steps, or every step when none is flagged.
func (p *analysisPlan) selectSteps(preprocessing, pairingStep, calculation, evaluation, mostSim bool) {
	if !preprocessing && !pairingStep && !calculation && !evaluation && !mostSim {
		preprocessing, pairingStep, calculation, evaluation, mostSim = true, true, true, true, true
	}
	p.preprocessing = preprocessing
	p.pairing = pairingStep
	p.calculation = calculation && p.inside
	p.evaluation = evaluation && p.inside
	p.mostSim = mostSim && p.outside
}

func (rt *runtime) analyze(ctx context.Context, svc *pipeline.Service, plan analysisPlan) int {
	started := time.Now()

	if plan.preprocessing {
		if code := rt.preprocess(ctx, svc, plan); code != 0 {
			return code
		}
	}

	params := pairing.NewFilterParams(rt.settings.MetadataFilter, rt.logger)
	found := 0
	if plan.inside {
		n, code := rt.analyzeInside(ctx, svc, plan, params)
		if code != 0 {
			return code
		}
		found += n
	}
	if plan.outside {
		n, code := rt.analyzeOutside(ctx, svc, plan, params)
		if code != 0 {
			return code
		}
		found += n
	}

	rt.logger.Info().
		Bool("inside", plan.inside).
		Bool("outside", plan.outside).
		Int("found", found).
		Dur("took", time.Since(started)).
		Msg("analyze completed")
	return 0
}

func (rt *runtime) preprocess(ctx context.Context, svc *pipeline.Service, plan analysisPlan) int {
	prep, err := rt.preprocessor()
	if err != nil {
		return rt.fail("Preprocessing", err)
	}
	datasets := []pipeline.Dataset{pipeline.Test}
	if plan.outside {
		datasets = append(datasets, pipeline.Train)
	}
	for _, ds := range datasets {
		result, err := svc.Preprocess(ctx, ds, prep)
		if err != nil {
			return rt.fail("Preprocessing", err)
		}
		fmt.Printf("preprocessing dataset=%s tables=%d records=%d missing_text=%d\n", ds, result.Tables, result.Records, result.MissingText)
	}
	return 0
}

// analyzeInside runs the inside steps of plan and returns the number of
// duplicates written to output tables.
func (rt *runtime) analyzeInside(ctx context.Context, svc *pipeline.Service, plan analysisPlan, params pairing.FilterParams) (int, int) {
	if plan.pairing {
		known, err := svc.LoadAnnotations(rt.settings.SolutionAnnotated)
		if err != nil {
			return 0, rt.fail("Pairing", err)
		}
		result, err := svc.PairInside(ctx, params, known)
		if err != nil {
			return 0, rt.fail("Pairing", err)
		}
		fmt.Printf("pairing analysis=inside tables=%d pairs=%d annotated=%d\n", result.Tables, result.Pairs, result.Annotated)
		if result.Pairs == 0 {
			fmt.Println(noSimilarities)
			return 0, 0
		}
	}

	if plan.calculation {
		distributor, err := rt.distributor(plan.methodIn)
		if err != nil {
			return 0, rt.fail("Calculation", err)
		}
		result, err := svc.Calculate(ctx, plan.methodIn, plan.jaccard, distributor)
		if err != nil {
			return 0, rt.fail("Calculation", err)
		}
		fmt.Printf("calculation method=%s tables=%d scored=%d skipped=%d\n", plan.methodIn, result.Tables, result.Scored, result.Skipped)
	}

	if !plan.evaluation {
		return 0, 0
	}
	table, err := evaluate.TableFromSettings(rt.settings.Thresholds)
	if err != nil {
		return 0, rt.fail("Evaluation", err)
	}
	result, err := svc.Evaluate(ctx, plan.methodIn, table)
	if err != nil {
		return 0, rt.fail("Evaluation", err)
	}
	fmt.Printf("evaluation method=%s tables=%d duplicates=%d outputs=%s\n",
		plan.methodIn, result.Tables, result.Duplicates, strings.Join(result.Outputs, ","))
	for _, report := range result.Reports {
		fmt.Printf("report pairs=%d tp=%d fp=%d tn=%d fn=%d precision=%.4f recall=%.4f f1=%.4f\n",
			report.Pairs, report.TruePositives, report.FalsePositives, report.TrueNegatives, report.FalseNegatives,
			report.Precision, report.Recall, report.F1)
	}
	if result.Duplicates == 0 {
		fmt.Println(noSimilarities)
	}
	return result.Duplicates, 0
}

// analyzeOutside runs the outside steps of plan and returns the number of
// candidate pairs written to output tables.
func (rt *runtime) analyzeOutside(ctx context.Context, svc *pipeline.Service, plan analysisPlan, params pairing.FilterParams) (int, int) {
	path := rt.cfg.WorkPath("shortlist_" + plan.methodOut.String() + ".json")

	if plan.mostSim {
		var (
			result pipeline.ShortlistResult
			err    error
		)
		modelPath := rt.cfg.ModelPath(plan.methodOut.String())
		switch plan.methodOut {
		case similarity.TFIDF:
			m, loadErr := pipeline.LoadTFIDF(modelPath)
			if loadErr != nil {
				return 0, rt.fail("Most similar", loadErr)
			}
			result, err = svc.MostSimilarTFIDF(ctx, m, rt.settings.TopK, path)
		default:
			m, loadErr := pipeline.LoadEmbedding(modelPath)
			if loadErr != nil {
				return 0, rt.fail("Most similar", loadErr)
			}
			result, err = svc.MostSimilarEmbedding(ctx, m, rt.settings.TopK, path)
		}
		if err != nil {
			return 0, rt.fail("Most similar", err)
		}
		fmt.Printf("mostsim method=%s entries=%d candidates=%d path=%s\n", plan.methodOut, result.Entries, result.Candidates, result.Path)
	}

	if !plan.pairing {
		return 0, 0
	}
	result, err := svc.PairOutside(ctx, params, path, &pairing.RunWarnings{})
	if err != nil {
		return 0, rt.fail("Pairing", err)
	}
	fmt.Printf("pairing analysis=outside tables=%d pairs=%d missing_train=%d outputs=%s\n",
		result.Tables, result.Pairs, result.MissingTrain, strings.Join(result.Outputs, ","))
	if result.Pairs == 0 {
		fmt.Println(noSimilarities)
	}
	return result.Pairs, 0
}

// distributor loads only the model the method needs.
func (rt *runtime) distributor(method similarity.Method) (*similarity.Distributor, error) {
	var opts []similarity.Option
	switch method {
	case similarity.TFIDF:
		m, err := pipeline.LoadTFIDF(rt.cfg.ModelPath(method.String()))
		if err != nil {
			return nil, err
		}
		opts = append(opts, similarity.WithTFIDF(m))
	case similarity.Embedding:
		m, err := pipeline.LoadEmbedding(rt.cfg.ModelPath(method.String()))
		if err != nil {
			return nil, err
		}
		opts = append(opts, similarity.WithEmbedding(m))
	}
	return similarity.NewDistributor(opts...), nil
}
