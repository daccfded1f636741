package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	httpadapter "github.com/mkoehler/docsort/internal/adapters/http"
	"github.com/mkoehler/docsort/internal/config"
	"github.com/mkoehler/docsort/internal/core/batch"
	"github.com/mkoehler/docsort/internal/core/classify"
	"github.com/mkoehler/docsort/internal/core/domain"
	"github.com/mkoehler/docsort/internal/core/extract"
	"github.com/mkoehler/docsort/internal/core/template"
	"github.com/mkoehler/docsort/internal/core/usecase"
	"github.com/mkoehler/docsort/internal/core/workflow"
	"github.com/mkoehler/docsort/internal/infrastructure/extractor/pdftext"
	"github.com/mkoehler/docsort/internal/infrastructure/fileservice/localfs"
	"github.com/mkoehler/docsort/internal/infrastructure/llm/lmstudio"
	"github.com/mkoehler/docsort/internal/infrastructure/queue/nats"
	"github.com/mkoehler/docsort/internal/infrastructure/repository/postgres"
	"github.com/mkoehler/docsort/internal/infrastructure/resilience"
	"github.com/mkoehler/docsort/internal/infrastructure/watcher"
	"github.com/mkoehler/docsort/internal/observability/metrics"
)

type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Categories domain.CategorySet

	DB        *sql.DB
	Queue     *nats.Queue
	Jobs      *postgres.JobRepository
	Rules     *postgres.RuleRepository
	Pipeline  *usecase.DocumentPipeline
	Processor *batch.Processor
	Watcher   *watcher.Watcher
	Router    *httpadapter.Router
	Metrics   *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	jobs := postgres.NewJobRepository(db)
	if err := jobs.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	rules := postgres.NewRuleRepository(db)

	categories, err := classify.LoadCategorySet(cfg.CategoryCatalog)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load category catalog: %w", err)
	}

	if err := seedRules(ctx, cfg.RuleSeedPath, categories, rules); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed workflow rules: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultPolicy(), logger),
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	// The classifier falls back to keyword scoring on any inference error,
	// so retrying the AI call only adds latency. One attempt, breaker on.
	inferencePolicy := resilience.DefaultPolicy()
	inferencePolicy.MaxAttempts = 1
	inference := lmstudio.New(
		cfg.LMStudioURL,
		cfg.LMStudioModel,
		cfg.InferenceTimeout,
		resilience.NewExecutor(inferencePolicy, logger),
	)

	classifier := classify.New(inference, categories, cfg.InferenceTimeout, classify.WithLogger(logger))
	recognizer := template.NewRecognizer(template.DefaultRegistry())
	namer := extract.NewFilenameGenerator(extract.NewDateExtractor(), extract.NewTitleExtractor(), nil)
	extractor := pdftext.NewExtractor(pdftext.NewCache(cfg.ExtractCacheSize))
	files := localfs.New(logger)

	pipeline := usecase.NewDocumentPipeline(
		extractor,
		recognizer,
		classifier,
		namer,
		rules,
		files,
		cfg.ArchiveRoot,
		logger,
	)

	workerMetrics := metrics.NewWorkerMetrics(service)
	processor := batch.NewProcessor(pipeline, jobs, cfg.BatchWorkers, logger,
		batch.WithQueue(queue),
		batch.WithObserver(metrics.NewWorkerObserver(workerMetrics, service)),
	)
	inboxWatcher := watcher.New(cfg.InboxDir, processor, cfg.WatchDebounce, logger)

	router := httpadapter.NewRouter(
		pipeline,
		processor,
		rules,
		files,
		pdftext.NewPreview(),
		categories,
		httpadapter.RouterConfig{
			ArchiveRoot:    cfg.ArchiveRoot,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
			MaxInFlight:    cfg.MaxInFlight,
			Logger:         logger,
		},
	)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Categories: categories,
		DB:         db,
		Queue:      queue,
		Jobs:       jobs,
		Rules:      rules,
		Pipeline:   pipeline,
		Processor:  processor,
		Watcher:    inboxWatcher,
		Router:     router,
		Metrics:    workerMetrics,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// seedRules loads the optional rule seed file and inserts each rule. Inserts
// are id-idempotent, so reseeding on every start is safe.
func seedRules(ctx context.Context, path string, categories domain.CategorySet, repo *postgres.RuleRepository) error {
	if path == "" {
		return nil
	}
	seeded, err := workflow.LoadRules(path, categories)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for i := range seeded {
		if err := repo.Create(ctx, &seeded[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
