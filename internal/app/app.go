package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"GrantScanner/internal/config"
	"GrantScanner/internal/domain"
	"GrantScanner/internal/evaluator"
	"GrantScanner/internal/extract"
	"GrantScanner/internal/infrastructure/parser"
	"GrantScanner/internal/infrastructure/scheduler"
	"GrantScanner/internal/infrastructure/storage"
	"GrantScanner/internal/infrastructure/telegram"
	"GrantScanner/internal/infrastructure/telemetry"
	"GrantScanner/internal/lifecycle"
	"GrantScanner/internal/logging"
	"GrantScanner/internal/metrics"
	"GrantScanner/internal/ports"
	"GrantScanner/internal/scanner"
	"GrantScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	recorder *telemetry.Recorder
	db       *sql.DB
	// ephemeral stores lose everything between processes, so reads refresh first.
	ephemeral bool
}

// Options lets callers and tests replace infrastructure defaults.
type Options struct {
	HTTPClient *http.Client
	Clock      func() time.Time
}

// New builds the application from configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewGitHubScanner(opts.HTTPClient, parser.GitHubOptions{
		BaseURL:       cfg.GitHub.APIURL,
		Token:         cfg.GitHub.Token,
		PerPage:       cfg.GitHub.PerPage,
		MaxPages:      cfg.GitHub.MaxPages,
		RequestDelay:  cfg.GitHub.RequestDelay,
		RateLimitWait: cfg.GitHub.RateLimitWait,
	}, baseLogger.With("component", "scanner.github")))
	registry.Register(parser.NewFileScanner(nil))

	source := parser.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source"))

	a := &Application{cfg: cfg, logger: baseLogger, recorder: telemetry.NewRecorder()}

	var (
		repository ports.ProposalRepository
		cache      ports.MetricsCache
	)
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		pg := storage.NewPostgresRepository(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		repository, cache = pg, pg
	default:
		mem := storage.NewMemoryRepository()
		repository, cache = mem, mem
		a.ephemeral = true
	}

	eval, err := evaluator.New(rubricFromConfig(cfg.Rubric), clock)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("rubric: %w", err)
	}

	processor := usecase.NewProcessor(usecase.ProcessorDeps{
		Extractor:  extract.New(extract.Config{RejectionKeywords: cfg.Engine.RejectionKeywords}),
		Classifier: lifecycle.NewClassifier(classifierConfig(cfg.Engine)),
		Recorder:   a.recorder,
		Logger:     baseLogger.With("component", "processor"),
		Clock:      clock,
		Workers:    cfg.Engine.Workers,
	})

	var notifier ports.Notifier
	tg := cfg.Notifications.Telegram
	if tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.APIURL)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Repository: repository,
		Cache:      cache,
		Notifier:   notifier,
		Processor:  processor,
		Aggregator: metrics.NewAggregator(clock),
		Evaluator:  eval,
		Observer:   a.recorder,
		Logger:     baseLogger.With("component", "pipeline"),
	})
	return a, nil
}

// Run performs a single refresh pass.
func (a *Application) Run(ctx context.Context) (usecase.RefreshResult, error) {
	return a.pipeline.Refresh(ctx)
}

// Schedule runs refreshes on the configured cron expression until ctx ends,
// serving Prometheus counters alongside when telemetry is enabled.
func (a *Application) Schedule(ctx context.Context) error {
	driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, scheduler.Options{
		Location:   a.cfg.Scheduler.Location(),
		RunOnStart: a.cfg.Scheduler.RunOnStart,
		Logger:     a.logger.With("component", "scheduler"),
	})
	if err != nil {
		return err
	}

	jobs := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))

	g, gctx := errgroup.WithContext(ctx)
	if addr := a.cfg.Telemetry.Addr; addr != "" {
		g.Go(func() error {
			return a.recorder.Serve(gctx, addr, a.logger.With("component", "telemetry"))
		})
	}
	g.Go(func() error {
		if err := jobs.Start(gctx); err != nil {
			return err
		}
		a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Location().String())
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return jobs.Stop(stopCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Metrics returns the aggregated summary.
func (a *Application) Metrics(ctx context.Context) (domain.MetricsSummary, error) {
	if err := a.warmUp(ctx); err != nil {
		return domain.MetricsSummary{}, err
	}
	return a.pipeline.Metrics(ctx)
}

// Evaluate scores one stored proposal and renders the curator report.
func (a *Application) Evaluate(ctx context.Context, ref string) (string, error) {
	if err := a.warmUp(ctx); err != nil {
		return "", err
	}
	proposal, report, err := a.pipeline.Evaluate(ctx, ref)
	if err != nil {
		return "", err
	}
	return evaluator.RenderCuratorReport(proposal, report)
}

// Close releases the database handle, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *Application) warmUp(ctx context.Context) error {
	if !a.ephemeral {
		return nil
	}
	if _, err := a.pipeline.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh in-memory store: %w", err)
	}
	return nil
}

func rubricFromConfig(cfg config.RubricConfig) evaluator.Rubric {
	if len(cfg.Weights) == 0 {
		return evaluator.DefaultRubric()
	}
	weights := make(map[domain.Criterion]float64, len(cfg.Weights))
	for name, w := range cfg.Weights {
		weights[domain.Criterion(name)] = w
	}
	return evaluator.Rubric{Weights: weights}
}

func classifierConfig(cfg config.EngineConfig) lifecycle.Config {
	out := lifecycle.DefaultConfig()
	if cfg.StaleThresholdDays > 0 {
		out.StaleThresholdDays = cfg.StaleThresholdDays
	}
	for label, category := range cfg.LabelCategories {
		out.LabelCategories[label] = domain.Category(strings.ToUpper(strings.TrimSpace(category)))
	}
	return out
}
