package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/account"
	"cvbuilder/internal/ai"
	"cvbuilder/internal/analyses"
	googleauth "cvbuilder/internal/auth"
	"cvbuilder/internal/events"
	"cvbuilder/internal/files"
	"cvbuilder/internal/llm"
	"cvbuilder/internal/llm/gemini"
	"cvbuilder/internal/llm/openai"
	"cvbuilder/internal/queue"
	"cvbuilder/internal/resumes"
	"cvbuilder/internal/sanitize"
	"cvbuilder/internal/services/health"
	"cvbuilder/internal/settings"
	sharedauth "cvbuilder/internal/shared/auth"
	"cvbuilder/internal/shared/config"
	"cvbuilder/internal/shared/server"
	"cvbuilder/internal/shared/storage/db"
	"cvbuilder/internal/shared/storage/object"
	localstore "cvbuilder/internal/shared/storage/object/local"
	s3store "cvbuilder/internal/shared/storage/object/s3"
	"cvbuilder/internal/shared/telemetry"
	"cvbuilder/internal/subscriptions"
	"cvbuilder/internal/templates"
	"cvbuilder/internal/usage"
	"cvbuilder/internal/users"
)

// App holds shared dependencies and the HTTP router.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Store   object.ObjectStore
	Queue   queue.Client
	Events  events.Publisher
	Signer  *sharedauth.Signer
	LLM     llm.Completer
	Catalog *templates.Catalog

	Resumes       *resumes.Service
	Files         *files.Service
	AI            *ai.Service
	Analyses      *analyses.Service
	Subscriptions *subscriptions.Service
	Usage         *usage.Service
	Settings      *settings.Service
	Users         *users.Service
	Account       *account.Service

	closers []func(context.Context) error
}

type repos struct {
	resumes       resumes.Repo
	files         files.Repo
	analyses      analyses.Repo
	subscriptions subscriptions.Repo
	settings      settings.Repo
	users         users.Repo
}

// Build prepares every dependency and the router. Background goroutines, such
// as the template watcher, stop when ctx is done.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil && !db.IsLambdaRuntime() {
		app.onClose(func(context.Context) error { return sqlDB.Close() })
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	signer, err := sharedauth.NewSigner(cfg.JWTSecret, sharedauth.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("jwt signer: %w", err)
	}
	app.Signer = signer

	completer, err := NewCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.LLM = completer

	app.Catalog = buildCatalog(ctx, cfg)

	if err := buildServices(ctx, app, buildRepos(sqlDB)); err != nil {
		return nil, err
	}
	app.Router = buildRouter(app)
	return app, nil
}

// Close flushes pending autosaves, waits for in-process analyses and releases
// connections. Errors are logged; the first one is returned.
func (a *App) Close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			telemetry.Warn("bootstrap.close_failed", map[string]any{"error": err.Error()})
			if first == nil {
				first = err
			}
		}
	}
	a.closers = nil
	return first
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:    cfg.AWSRegion,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			KMSKeyID:  cfg.SSEKMSKeyID,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// NewCompleter builds the configured LLM provider, wrapped with retries.
func NewCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case "openai":
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.OpenAIBaseURL, cfg.LLMTimeout)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		return llm.NewRetrying(client), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return llm.NewRetrying(client), nil
	default:
		return llm.PlaceholderClient{}, nil
	}
}

func buildCatalog(ctx context.Context, cfg config.Config) *templates.Catalog {
	dir := strings.TrimSpace(cfg.TemplatesDir)
	if dir == "" {
		return templates.Default()
	}
	catalog, err := templates.Load(dir)
	if err != nil {
		telemetry.Warn("templates.load_failed", map[string]any{"dir": dir, "error": err.Error()})
		catalog = templates.Default()
	}
	go func() {
		if err := templates.Watch(ctx, dir, catalog); err != nil {
			telemetry.Warn("templates.watch_failed", map[string]any{"dir": dir, "error": err.Error()})
		}
	}()
	return catalog
}

func buildRepos(sqlDB *sql.DB) repos {
	if sqlDB == nil {
		return repos{
			resumes:       resumes.NewMemoryRepo(),
			files:         files.NewMemoryRepo(),
			analyses:      analyses.NewMemoryRepo(),
			subscriptions: subscriptions.NewMemoryRepo(),
			settings:      settings.NewMemoryRepo(),
			users:         users.NewMemoryRepo(),
		}
	}
	return repos{
		resumes:       &resumes.PGRepo{DB: sqlDB},
		files:         &files.PGRepo{DB: sqlDB},
		analyses:      &analyses.PGRepo{DB: sqlDB},
		subscriptions: &subscriptions.PGRepo{DB: sqlDB},
		settings:      &settings.PGRepo{DB: sqlDB},
		users:         &users.PGRepo{DB: sqlDB},
	}
}

// QuotaFromEntitlements sizes the AI quota by the user's subscription.
func QuotaFromEntitlements(subs *subscriptions.Service) usage.QuotaFunc {
	return func(ctx context.Context, userID string) (usage.Quota, error) {
		snap, err := subs.Get(ctx, userID)
		if err != nil {
			return usage.Quota{}, err
		}
		ent := snap.Entitlements
		return usage.Quota{Plan: string(snap.Subscription.Plan), Limit: ent.AIQuota, Period: ent.QuotaPeriod}, nil
	}
}

func buildServices(ctx context.Context, app *App, r repos) error {
	cfg := app.Config

	app.Subscriptions = subscriptions.NewService(r.subscriptions, cfg.TrialDays)
	quotas := QuotaFromEntitlements(app.Subscriptions)
	if app.DB != nil {
		app.Usage = usage.NewPostgresService(usage.NewPGStore(app.DB), quotas)
	} else {
		app.Usage = usage.NewService(quotas)
	}

	app.Resumes = resumes.NewService(r.resumes, app.Catalog, cfg.AutosaveDelay)
	app.onClose(app.Resumes.Close)
	app.Files = files.NewService(app.Store, r.files)
	app.Settings = settings.NewService(r.settings, app.Catalog)
	app.Users = users.NewService(r.users)

	app.AI = ai.NewService(app.LLM, app.Subscriptions, app.Usage, app.Resumes, app.Files)
	app.AI.Timeout = cfg.LLMTimeout

	publisher, err := buildEvents(cfg)
	if err != nil {
		return err
	}
	app.Events = publisher
	if closer, ok := publisher.(*events.AMQPPublisher); ok {
		app.onClose(func(context.Context) error { return closer.Close() })
	}

	app.Analyses = analyses.NewService(r.analyses, app.AI, app.Subscriptions, nil, publisher)
	q, err := buildQueue(ctx, app)
	if err != nil {
		return err
	}
	app.Queue = q
	app.Analyses.Queue = q

	app.Account = &account.Service{
		Resumes:       app.Resumes,
		Files:         app.Files,
		Analyses:      app.Analyses,
		Users:         app.Users,
		Settings:      app.Settings,
		Subscriptions: app.Subscriptions,
		Usage:         app.Usage,
	}
	return nil
}

func buildEvents(cfg config.Config) (events.Publisher, error) {
	if strings.TrimSpace(cfg.AMQPURL) == "" {
		return events.Nop{}, nil
	}
	pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsExchange)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.events_disabled", map[string]any{"error": err.Error()})
			return events.Nop{}, nil
		}
		return nil, err
	}
	return pub, nil
}

func buildQueue(ctx context.Context, app *App) (queue.Client, error) {
	cfg := app.Config
	switch cfg.QueueProvider {
	case "sqs":
		if strings.TrimSpace(cfg.SQSQueueURL) == "" {
			return nil, errors.New("QUEUE_PROVIDER=sqs requires SQS_QUEUE_URL")
		}
		return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
	case "amqp":
		if strings.TrimSpace(cfg.AMQPURL) == "" {
			return nil, errors.New("QUEUE_PROVIDER=amqp requires AMQP_URL")
		}
		client, err := queue.NewAMQPClient(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, err
		}
		app.onClose(func(context.Context) error { return client.Close() })
		return client, nil
	default:
		inline := queue.NewInlineClient(app.Analyses.HandleMessage)
		app.onClose(inline.Wait)
		return inline, nil
	}
}

func buildRouter(app *App) *gin.Engine {
	cfg := app.Config
	importer := ai.NewImporter(app.AI, app.Resumes)

	checks := health.NewService()
	if app.DB != nil {
		checks.Add("db", app.DB)
	}

	return server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Verifier: app.Signer,
		Health:   checks,

		ResumeHandler:       resumes.NewHandler(app.Resumes),
		TemplateHandler:     templates.NewHandler(app.Catalog, app.Resumes, app.Subscriptions),
		SanitizeHandler:     sanitize.NewHandler(),
		FileHandler:         files.NewHandler(app.Files, importer, ai.MapError),
		AIHandler:           ai.NewHandler(app.AI),
		AnalysisHandler:     analyses.NewHandler(app.Analyses),
		SubscriptionHandler: subscriptions.NewHandler(app.Subscriptions, cfg.BillingWebhookSecret),
		UsageHandler:        usage.NewHandler(app.Usage, subscriptions.MapError),
		SettingsHandler:     settings.NewHandler(app.Settings),
		AccountHandler:      account.NewHandler(app.Account),
		UserHandler:         users.NewHandler(app.Users),
		GoogleAuth: googleauth.NewGoogleService(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.UIRedirectURL,
			app.Signer,
			app.Users,
		),
	})
}
