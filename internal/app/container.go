package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/talentforge/hirespark/adapter/api"
	"github.com/talentforge/hirespark/internal/scoring/application/commands"
	"github.com/talentforge/hirespark/internal/scoring/application/extract"
	"github.com/talentforge/hirespark/internal/scoring/application/queries"
	"github.com/talentforge/hirespark/internal/scoring/application/services"
	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/talentforge/hirespark/internal/scoring/infrastructure/ai"
	"github.com/talentforge/hirespark/internal/scoring/infrastructure/directory"
	"github.com/talentforge/hirespark/internal/scoring/infrastructure/export"
	"github.com/talentforge/hirespark/internal/scoring/infrastructure/notify"
	"github.com/talentforge/hirespark/internal/scoring/infrastructure/persistence"
	"github.com/talentforge/hirespark/internal/scoring/infrastructure/quota"
	"github.com/talentforge/hirespark/internal/shared/infrastructure/eventbus"
	"github.com/talentforge/hirespark/internal/shared/infrastructure/migrations"
	"github.com/talentforge/hirespark/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage
	PGPool   *pgxpool.Pool
	SQLiteDB *sql.DB

	// Redis
	RedisClient *redis.Client

	// Messaging
	Publisher eventbus.MessagePublisher

	// Repositories
	Tasks      domain.TaskRepository
	History    domain.HistoryRepository
	Applicants domain.ApplicantRepository
	Directory  *directory.MemoryDirectory

	// Services
	Extractor    *extract.Extractor
	Orchestrator *services.Orchestrator
	Assistant    *services.Assistant
	Limiter      services.SubscriptionLimiter
	Pool         *services.TaskPool

	// API
	Server *api.Server
}

// NewContainer wires the application from configuration.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: newLogger(cfg),
	}

	if err := c.initStorage(ctx); err != nil {
		return nil, err
	}
	c.initRedis()
	c.initPublisher()
	c.initDirectory()
	c.initLimiter()

	model, err := c.newModelClient(ctx)
	if err != nil {
		return nil, err
	}

	c.Extractor = extract.NewExtractor(c.Logger)
	c.Orchestrator = services.NewOrchestrator(
		model, c.Applicants, c.Logger, cfg.AITimeout, cfg.AIMaxAttempts)
	c.Assistant = services.NewAssistant(model, c.Logger, cfg.AITimeout)

	notifier := notify.NewBusNotifier(c.Publisher, c.Logger)
	processor := services.NewTaskProcessor(
		c.Tasks, c.History, c.Directory, c.Extractor, c.Orchestrator,
		c.Limiter, notifier, c.Logger)
	c.Pool = services.NewTaskPool(processor, c.Logger,
		services.WithWorkers(cfg.WorkerCount),
		services.WithQueueSize(cfg.QueueSize),
		services.WithJobTimeout(cfg.JobTimeout))

	scoringHandler := api.NewScoringHandler(
		commands.NewScoreResumeHandler(c.Directory, c.History, c.Extractor, c.Orchestrator, c.Limiter, c.Logger),
		commands.NewSubmitTaskHandler(c.Tasks, c.Directory, c.Pool, c.Limiter, c.Logger),
		queries.NewGetTaskHandler(c.Tasks, c.Directory),
		queries.NewListTasksHandler(c.Tasks, c.Directory),
		queries.NewListHistoryHandler(c.History, c.Directory),
		export.NewHistoryExporter(c.History, c.Logger),
		c.Directory,
		c.Logger,
	)
	assistantHandler := api.NewAssistantHandler(c.Assistant, c.Logger)

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.HTTPAddr
	c.Server = api.NewServer(serverCfg, scoringHandler, assistantHandler, c.Logger)

	return c, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func (c *Container) initStorage(ctx context.Context) error {
	if c.Config.UsePostgres() {
		pool, err := pgxpool.New(ctx, c.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return fmt.Errorf("migrate postgres: %w", err)
		}
		c.PGPool = pool
		c.Tasks = persistence.NewPostgresTaskRepository(pool)
		c.History = persistence.NewPostgresHistoryRepository(pool)
		c.Applicants = persistence.NewPostgresApplicantRepository(pool)
		c.Logger.Info("storage initialized", slog.String("driver", "postgres"))
		return nil
	}

	dbConn, err := sql.Open("sqlite", c.Config.SQLitePath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite is not safe for concurrent writers on one connection.
	dbConn.SetMaxOpenConns(1)
	if err := migrations.RunSQLiteMigrations(ctx, dbConn); err != nil {
		_ = dbConn.Close()
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	c.SQLiteDB = dbConn
	c.Tasks = persistence.NewSQLiteTaskRepository(dbConn)
	c.History = persistence.NewSQLiteHistoryRepository(dbConn)
	c.Applicants = persistence.NewSQLiteApplicantRepository(dbConn)
	c.Logger.Info("storage initialized",
		slog.String("driver", "sqlite"),
		slog.String("path", c.Config.SQLitePath))
	return nil
}

func (c *Container) initRedis() {
	if c.Config.RedisURL == "" {
		return
	}
	opts, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		c.Logger.Warn("invalid redis url, quota falls back to memory",
			slog.String("error", err.Error()))
		return
	}
	c.RedisClient = redis.NewClient(opts)
}

func (c *Container) initPublisher() {
	if c.Config.RabbitMQURL == "" {
		c.Publisher = eventbus.NewNoopPublisher(c.Logger)
		return
	}
	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		c.Logger.Warn("rabbitmq unavailable, task notifications disabled",
			slog.String("error", err.Error()))
		c.Publisher = eventbus.NewNoopPublisher(c.Logger)
		return
	}
	c.Publisher = publisher
}

func (c *Container) initDirectory() {
	opts := make([]directory.Option, 0, 1)
	if c.Config.AutoRegisterOwners {
		opts = append(opts, directory.WithAutoRegister())
	}
	c.Directory = directory.NewMemoryDirectory(opts...)

	for _, email := range strings.Split(c.Config.AdminEmails, ",") {
		if email = strings.TrimSpace(email); email != "" {
			c.Directory.Register(email, domain.RoleAdmin)
		}
	}
}

func (c *Container) initLimiter() {
	if c.RedisClient != nil {
		c.Limiter = quota.NewRedisLimiter(c.RedisClient, c.Config.MonthlyScoreAllowance)
		return
	}
	c.Limiter = quota.NewMemoryLimiter(c.Config.MonthlyScoreAllowance)
}

// modelBackend implements both the scoring and assistant model surfaces.
type modelBackend interface {
	services.Scorer
	services.AssistantModel
}

func (c *Container) newModelClient(ctx context.Context) (modelBackend, error) {
	switch strings.ToLower(c.Config.AIProvider) {
	case "gemini":
		return ai.NewGeminiClient(ctx, c.Config.AIAPIKey, c.Config.AIModel)
	default:
		return ai.NewOpenAIClient(ai.OpenAIConfig{
			BaseURL: c.Config.AIBaseURL,
			APIKey:  c.Config.AIAPIKey,
			Model:   c.Config.AIModel,
		}, c.Logger), nil
	}
}

// Close releases container resources. The worker pool is drained first so
// in-flight tasks can still reach storage and the bus.
func (c *Container) Close(ctx context.Context) {
	if c.Pool != nil {
		c.Pool.Shutdown(ctx)
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			c.Logger.Warn("closing publisher failed", slog.String("error", err.Error()))
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("closing redis failed", slog.String("error", err.Error()))
		}
	}
	if c.PGPool != nil {
		c.PGPool.Close()
	}
	if c.SQLiteDB != nil {
		if err := c.SQLiteDB.Close(); err != nil {
			c.Logger.Warn("closing sqlite failed", slog.String("error", err.Error()))
		}
	}
}
