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
	"horse.fit/jobdedup/internal/config"
	"horse.fit/jobdedup/internal/model/embedding"
	"horse.fit/jobdedup/internal/model/tfidf"
	"horse.fit/jobdedup/internal/pipeline"
	"horse.fit/jobdedup/internal/similarity"
)

type modelingTask struct {
	method      similarity.Method
	training    bool
	retraining  bool
	sanityCheck bool
}

func runModeling(args []string) int {
	fs := flag.NewFlagSet("modeling", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Minute, "Command timeout")
	modelingType := fs.String("modeling_type", "", "Model to work on: tfidf or doc2vec")
	training := fs.Bool("training", false, "Train the model from the id_train tables")
	retraining := fs.Bool("retraining", false, "Retrain the saved doc2vec model with the id_train tables")
	sanityCheck := fs.Bool("sanity_check", false, "Report the self-retrieval rate of the model over the training corpus")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	task, err := parseModelingTask(*modelingType, *training, *retraining, *sanityCheck)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	rt, code := loadRuntime("modeling", envLoader)
	if code != 0 {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, closeStore, err := rt.openService(ctx)
	if err != nil {
		return rt.fail("Modeling", err)
	}
	defer closeStore()

	return rt.model(ctx, svc, task)
}

func parseModelingTask(raw string, training, retraining, sanityCheck bool) (modelingTask, error) {
	if strings.TrimSpace(raw) == "" {
		return modelingTask{}, fmt.Errorf("--modeling_type is required (tfidf or doc2vec)")
	}
	method, err := similarity.ParseMethod(raw)
	if err != nil || (method != similarity.TFIDF && method != similarity.Embedding) {
		return modelingTask{}, fmt.Errorf("--modeling_type must be tfidf or doc2vec (got %q)", raw)
	}
	if training && retraining {
		return modelingTask{}, fmt.Errorf("--training and --retraining are mutually exclusive")
	}
	if retraining && method != similarity.Embedding {
		return modelingTask{}, fmt.Errorf("--retraining is only supported for doc2vec")
	}
	if !training && !retraining && !sanityCheck {
		training = true
	}
	return modelingTask{method: method, training: training, retraining: retraining, sanityCheck: sanityCheck}, nil
}

func (rt *runtime) model(ctx context.Context, svc *pipeline.Service, task modelingTask) int {
	prep, err := rt.preprocessor()
	if err != nil {
		return rt.fail("Modeling", err)
	}
	docs, err := svc.TrainingCorpus(ctx, prep)
	if err != nil {
		return rt.fail("Modeling", err)
	}
	path := rt.cfg.ModelPath(task.method.String())

	switch task.method {
	case similarity.TFIDF:
		return rt.modelTFIDF(docs, path, task)
	default:
		return rt.modelEmbedding(docs, path, task)
	}
}

func (rt *runtime) modelTFIDF(docs []embedding.Document, path string, task modelingTask) int {
	corpus := pipeline.Texts(docs)

	var (
		m   *tfidf.Model
		err error
	)
	if task.training {
		started := time.Now()
		m, err = tfidf.Fit(corpus, tfidf.Options{SublinearTF: rt.settings.TFIDF.SublinearTF})
		if err != nil {
			return rt.fail("Modeling", err)
		}
		if err := m.Save(path); err != nil {
			return rt.fail("Modeling", err)
		}
		rt.logger.Info().
			Str("method", "tfidf").
			Int("documents", m.Documents).
			Int("vocabulary", len(m.Vocabulary)).
			Dur("took", time.Since(started)).
			Str("path", path).
			Msg("modeling completed")
		fmt.Printf("modeling type=tfidf documents=%d vocabulary=%d path=%s\n", m.Documents, len(m.Vocabulary), path)
	}

	if task.sanityCheck {
		if m == nil {
			if m, err = pipeline.LoadTFIDF(path); err != nil {
				return rt.fail("Modeling", err)
			}
		}
		rt.reportSanity("tfidf", m.SanityCheck(corpus), len(corpus))
	}
	return 0
}

func (rt *runtime) modelEmbedding(docs []embedding.Document, path string, task modelingTask) int {
	var (
		m   *embedding.Model
		err error
	)
	switch {
	case task.training:
		started := time.Now()
		m, err = embedding.Train(docs, embeddingOptions(rt.settings.Embedding))
		if err != nil {
			return rt.fail("Modeling", err)
		}
		if code := rt.saveEmbedding(m, path, "trained", started); code != 0 {
			return code
		}
	case task.retraining:
		started := time.Now()
		previous, err := pipeline.LoadEmbedding(path)
		if err != nil {
			return rt.fail("Modeling", err)
		}
		m, err = previous.Retrain(docs)
		if err != nil {
			return rt.fail("Modeling", err)
		}
		if code := rt.saveEmbedding(m, path, "retrained", started); code != 0 {
			return code
		}
	}

	if task.sanityCheck {
		if m == nil {
			if m, err = pipeline.LoadEmbedding(path); err != nil {
				return rt.fail("Modeling", err)
			}
		}
		rt.reportSanity("doc2vec", m.SanityCheck(), len(m.DocIDs))
	}
	return 0
}

func (rt *runtime) saveEmbedding(m *embedding.Model, path, action string, started time.Time) int {
	if err := m.Save(path); err != nil {
		return rt.fail("Modeling", err)
	}
	rt.logger.Info().
		Str("method", "doc2vec").
		Str("action", action).
		Int("documents", len(m.DocIDs)).
		Int("vocabulary", len(m.Words)).
		Dur("took", time.Since(started)).
		Str("path", path).
		Msg("modeling completed")
	fmt.Printf("modeling type=doc2vec action=%s documents=%d vocabulary=%d path=%s\n", action, len(m.DocIDs), len(m.Words), path)
	return 0
}

func (rt *runtime) reportSanity(method string, rate float64, documents int) {
	rt.logger.Info().
		Str("method", method).
		Int("documents", documents).
		Float64("self_retrieval_rate", rate).
		Msg("sanity check completed")
	fmt.Printf("sanity_check type=%s documents=%d self_retrieval_rate=%.4f\n", method, documents, rate)
}

func embeddingOptions(s config.EmbeddingSettings) embedding.Options {
	return embedding.Options{
		VectorSize: s.VectorSize,
		MinCount:   s.MinCount,
		Window:     s.Window,
		Epochs:     s.Epochs,
		Seed:       s.Seed,
	}
}
