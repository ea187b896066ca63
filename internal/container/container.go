package container

import (
	"context"
	"time"

	"versus-be/internal/config"
	"versus-be/internal/repository"
	"versus-be/internal/service"
	"versus-be/internal/service/auth"
	"versus-be/pkg/database"
	"versus-be/pkg/logger"
	"versus-be/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *database.PostgresDB
	RedisClient *redis.Client
	Services    *service.Services
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns: int32(cfg.DBMaxConns),
		MinConns: int32(cfg.DBMinConns),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Database pool initialized")

	// Redis is optional: without it every cached read degrades to the
	// database and idempotency locks are skipped.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			logger.Info("Redis client initialized")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding without caching")
	}

	testRepo := repository.NewTestRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	cacheService := service.NewCacheService(redisClient, logger.Logger)

	services := &service.Services{
		Auth:     auth.NewService(cfg.JWTSecret, logger),
		Test:     service.NewTestService(testRepo, cacheService, logger.Logger, cfg.VoteRetryLimit),
		Session:  service.NewSessionService(testRepo, outboxRepo, cacheService, logger.Logger, cfg.VoteRetryLimit),
		Category: service.NewCategoryService(categoryRepo, logger.Logger),
		Notifier: service.NewNotifierService(outboxRepo, categoryRepo, service.NewLogSink(logger), logger,
			time.Duration(cfg.OutboxPollPeriod)*time.Second),
	}

	return &Container{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		RedisClient: redisClient,
		Services:    services,
	}, nil
}

// Close releases every held resource.
func (c *Container) Close() {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HasRedis returns true if the Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// Health pings every backing store.
func (c *Container) Health(ctx context.Context) map[string]string {
	status := map[string]string{"database": "ok"}
	if err := c.DB.Health(ctx); err != nil {
		status["database"] = err.Error()
	}
	if c.RedisClient != nil {
		status["redis"] = "ok"
		if err := c.RedisClient.Health(ctx); err != nil {
			status["redis"] = err.Error()
		}
	} else {
		status["redis"] = "disabled"
	}
	return status
}
