package app

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/jobdedup/internal/cli"
	"horse.fit/jobdedup/internal/config"
	"horse.fit/jobdedup/internal/logging"
	"horse.fit/jobdedup/internal/pipeline"
	"horse.fit/jobdedup/internal/store"
	"horse.fit/jobdedup/internal/textprep"
)

// runtime carries what every command needs after its flags are parsed.
type runtime struct {
	command  string
	cfg      *config.Config
	settings config.Settings
	logger   zerolog.Logger
}

// loadRuntime reads the env file, the process config and the settings file
// and builds a logger tagged with a fresh run id. A non-zero code means the
// command must return it.
func loadRuntime(command string, envLoader *cli.EnvLoader) (*runtime, int) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, 1
	}
	logger = logging.WithRun(logger, command, uuid.NewString())

	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.SettingsFile).Msg("settings load failed")
		fmt.Fprintf(os.Stderr, "Failed to load settings: %v\n", err)
		return nil, 1
	}

	return &runtime{command: command, cfg: cfg, settings: settings, logger: logger}, 0
}

// openService opens the table store and wraps it in a pipeline service. The
// returned close function releases the store.
func (rt *runtime) openService(ctx context.Context) (*pipeline.Service, func(), error) {
	st, err := store.Open(ctx, rt.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", rt.cfg.StoreDriver, err)
	}
	svc := pipeline.NewService(st, rt.logger, pipeline.Options{
		Workers:     rt.cfg.Workers,
		TableFilter: rt.cfg.TableFilter,
	})
	closeFn := func() {
		if err := st.Close(); err != nil {
			rt.logger.Warn().Err(err).Msg("store close failed")
		}
	}
	return svc, closeFn, nil
}

func (rt *runtime) preprocessor() (*textprep.Preprocessor, error) {
	return textprep.New(textprep.Options{
		Language: rt.settings.Preprocessing.Language,
		Stem:     rt.settings.Preprocessing.Stem,
	})
}

// fail logs err and prints it for the user. Missing upstream steps are
// printed as an instruction to repeat that step.
func (rt *runtime) fail(label string, err error) int {
	if missing, ok := pipeline.AsMissingUpstream(err); ok {
		rt.logger.Error().Err(err).Str("step", missing.Step).Msg(rt.command + " needs an earlier step")
		fmt.Fprintln(os.Stderr, missing.Error())
		return 1
	}
	rt.logger.Error().Err(err).Msg(rt.command + " failed")
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", label, err)
	return 1
}
