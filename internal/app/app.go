package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/config"
	"github.com/cozy-creator/influencer-studio/internal/db"
	"github.com/cozy-creator/influencer-studio/internal/db/drivers"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
	"github.com/cozy-creator/influencer-studio/internal/metrics"
	"github.com/cozy-creator/influencer-studio/internal/mq"
	"github.com/cozy-creator/influencer-studio/internal/services/auth"
	"github.com/cozy-creator/influencer-studio/internal/services/characters"
	"github.com/cozy-creator/influencer-studio/internal/services/filestorage"
	"github.com/cozy-creator/influencer-studio/internal/services/fileuploader"
	"github.com/cozy-creator/influencer-studio/internal/services/orchestrator"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
	"github.com/cozy-creator/influencer-studio/pkg/logger"
)

type App struct {
	config     *config.Config
	ctx        context.Context
	cancelFunc context.CancelFunc

	driver   drivers.Driver
	db       *bun.DB
	store    *repository.Store
	mq       mq.MQ
	uploader *fileuploader.Uploader
	metrics  *metrics.Metrics
	verifier auth.Verifier

	Logger       *zap.Logger
	Orchestrator *orchestrator.Orchestrator
	Characters   *characters.Service
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithDB(driver drivers.Driver) OptionFunc {
	return func(app *App) error {
		app.driver = driver
		app.db = driver.GetDB()
		app.store = repository.NewStore(app.db)
		return nil
	}
}

// WithDBConnection opens the configured database. The schema is managed by
// the migration commands.
func WithDBConnection() OptionFunc {
	return func(app *App) error {
		driver, err := db.NewConnection(app.ctx, app.config)
		if err != nil {
			return err
		}
		return WithDB(driver)(app)
	}
}

func WithStore(store *repository.Store) OptionFunc {
	return func(app *App) error {
		app.store = store
		app.db = store.DB()
		return nil
	}
}

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

func WithMQ() OptionFunc {
	return func(app *App) error {
		queue, err := mq.NewMQ(app.config)
		if err != nil {
			return err
		}
		app.mq = queue
		return nil
	}
}

func WithFileUploader() OptionFunc {
	return func(app *App) error {
		storage, err := filestorage.NewFileStorage(app.config)
		if err != nil {
			return err
		}
		app.uploader = fileuploader.NewFileUploader(storage, app.config.Jobs.UploadWorkers)
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) OptionFunc {
	return func(app *App) error {
		app.metrics = m
		return nil
	}
}

func WithVerifier(verifier auth.Verifier) OptionFunc {
	return func(app *App) error {
		app.verifier = verifier
		return nil
	}
}

// WithAuth builds the verifier from config.
func WithAuth() OptionFunc {
	return func(app *App) error {
		verifier, err := auth.NewVerifier(app.config)
		if err != nil {
			return err
		}
		app.verifier = verifier
		return nil
	}
}

func WithOrchestrator(o *orchestrator.Orchestrator) OptionFunc {
	return func(app *App) error {
		app.Orchestrator = o
		return nil
	}
}

func WithCharacters(svc *characters.Service) OptionFunc {
	return func(app *App) error {
		app.Characters = svc
		return nil
	}
}

// WithServices wires the provider clients into the orchestrator and the
// characters service. It needs the store, the uploader and the queue.
func WithServices() OptionFunc {
	return func(app *App) error {
		if app.store == nil || app.uploader == nil {
			return errors.New("services need a database and a file uploader")
		}

		cfg := app.config
		fal := providers.NewFalClient(providers.FalOptions{APIKey: cfg.Fal.APIKey, QueueURL: cfg.Fal.BaseURL})
		xai := providers.NewXAIClient(providers.XAIOptions{APIKey: cfg.XAI.APIKey, BaseURL: cfg.XAI.BaseURL})
		llm := providers.NewOpenRouter(providers.OpenRouterOptions{
			APIKey:  cfg.OpenRouter.APIKey,
			BaseURL: cfg.OpenRouter.BaseURL,
			Model:   cfg.OpenRouter.Model,
		})
		images := providers.ImageGenerators{Standard: fal, Spicy: xai}

		var dispatcher orchestrator.Dispatcher
		if app.mq != nil {
			dispatcher = orchestrator.NewMQDispatcher(app.mq, cfg.Pulsar.ShotsTopic)
		}

		orch, err := orchestrator.New(orchestrator.Options{
			Store:      app.store,
			Providers:  providers.DefaultRegistry(fal, xai),
			Images:     images,
			Rehoster:   app.uploader,
			BridgeTo:   fal,
			Prompts:    llm,
			Dispatcher: dispatcher,
			Metrics:    app.Metrics(),
			Logger:     app.Logger.Named("orchestrator"),
			Jobs:       cfg.Jobs,
			WebhookURL: cfg.WebhookURL(),
			WebhookKey: cfg.Webhook.Secret,
		})
		if err != nil {
			return err
		}
		app.Orchestrator = orch

		svc, err := characters.NewService(characters.Options{
			Store:    app.store,
			Writer:   llm,
			Images:   images,
			Rehoster: app.uploader,
			Timeout:  cfg.Jobs.PromptTimeout,
			Logger:   app.Logger.Named("characters"),
		})
		if err != nil {
			return err
		}
		app.Characters = svc

		return nil
	}
}

func NewApp(cfg *config.Config, options ...OptionFunc) (*App, error) {
	log, err := logger.InitLogger(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     cfg,
		Logger:     log,
		cancelFunc: cancel,
	}

	for _, opt := range options {
		if err := opt(app); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize app: %w", err)
		}
	}

	return app, nil
}

func (app *App) Close() {
	app.cancelFunc()

	if app.mq != nil {
		if err := app.mq.Close(); err != nil {
			app.Logger.Warn("failed to close queue", zap.Error(err))
		}
	}
	if app.uploader != nil {
		app.uploader.Stop()
	}
	if app.driver != nil {
		if err := app.driver.Close(); err != nil {
			app.Logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = app.Logger.Sync()
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) MQ() mq.MQ {
	return app.mq
}

func (app *App) DB() *bun.DB {
	return app.db
}

func (app *App) Store() *repository.Store {
	return app.store
}

func (app *App) Uploader() *fileuploader.Uploader {
	return app.uploader
}

func (app *App) Verifier() auth.Verifier {
	return app.verifier
}

// Metrics returns the app's collectors, creating them on first use.
func (app *App) Metrics() *metrics.Metrics {
	if app.metrics == nil {
		app.metrics = metrics.New()
	}
	return app.metrics
}
