package container

import (
	"context"
	"fmt"

	"vntrbirds-be/internal/catalog"
	"vntrbirds-be/internal/config"
	"vntrbirds-be/internal/realtime"
	"vntrbirds-be/internal/repository"
	"vntrbirds-be/internal/service"
	"vntrbirds-be/pkg/database"
	"vntrbirds-be/pkg/logger"
	"vntrbirds-be/pkg/metrics"
	"vntrbirds-be/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB
	RedisClient  *redis.Client
	Metrics      *metrics.Metrics
	Feed         realtime.Feed
	Hub          *realtime.Hub
	Catalog      *catalog.Catalog
	Repositories *repository.Repositories
	Services     *service.Services
}

// New creates a new dependency injection container. The database is
// required; Redis is optional and only widens the change feed across
// instances.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.WithField("items", cat.Len()).Info("Catalog loaded")

	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns: int32(cfg.DBMaxConns),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection established")

	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, using in-process change feed")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, using in-process change feed")
	}

	repos := &repository.Repositories{
		Teams:       repository.NewTeamRepository(db),
		Submissions: repository.NewSubmissionRepository(db),
		Settings:    repository.NewSettingsRepository(db),
	}

	c := Build(cfg, logger, cat, repos, redisClient, service.NewSupabaseClient(cfg, logger))
	c.DB = db
	return c, nil
}

// Build wires services on top of already constructed stores. redisClient may
// be nil.
func Build(cfg *config.Config, logger *logger.Logger, cat *catalog.Catalog, repos *repository.Repositories, redisClient *redis.Client, blobs service.BlobStore) *Container {
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	var feed realtime.Feed
	if redisClient != nil {
		feed = realtime.NewRedisFeed(redisClient, logger, m)
	} else {
		feed = realtime.NewMemoryFeed()
	}

	services := &service.Services{
		Registry:    service.NewRegistryService(repos.Teams, logger, m),
		Intake:      service.NewIntakeService(cat, repos.Submissions, blobs, feed, cfg.MaxFileMB, logger, m),
		Hunt:        service.NewHuntService(cat, repos.Teams, repos.Submissions, feed, logger),
		Leaderboard: service.NewLeaderboardService(repos.Submissions, feed, cfg.HighlightWindow, logger, m),
		Settings:    service.NewSettingsService(repos.Settings, feed, logger, m),
		Admin:       service.NewAdminService(cfg.AdminPassphrase, cfg.AdminTokenSecret, cfg.AdminTokenTTL, redisClient, logger),
		Overview:    service.NewOverviewService(repos.Submissions, blobs, logger),
		Export:      service.NewExportService(blobs, logger, m),
	}

	return &Container{
		Config:       cfg,
		Logger:       logger,
		RedisClient:  redisClient,
		Metrics:      m,
		Feed:         feed,
		Hub:          realtime.NewHub(logger, m),
		Catalog:      cat,
		Repositories: repos,
		Services:     services,
	}
}

// Start loads the live projections and begins following the change feed
func (c *Container) Start(ctx context.Context) error {
	if err := c.Services.Settings.Start(ctx); err != nil {
		return fmt.Errorf("failed to start settings: %w", err)
	}
	if err := c.Services.Leaderboard.Start(ctx); err != nil {
		return fmt.Errorf("failed to start leaderboard: %w", err)
	}
	return nil
}

// Stop stops the live projections
func (c *Container) Stop(ctx context.Context) error {
	var firstErr error
	if err := c.Services.Leaderboard.Stop(ctx); err != nil {
		firstErr = err
	}
	if err := c.Services.Settings.Stop(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Close releases the feed and the store connections
func (c *Container) Close() {
	if c.Hub != nil {
		c.Hub.CloseAll()
	}
	if c.Feed != nil {
		if err := c.Feed.Close(); err != nil {
			c.Logger.WithError(err).Error("Failed to close change feed")
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.WithError(err).Error("Failed to close Redis client")
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

// GetDB returns the database pool (nil when built without one)
func (c *Container) GetDB() *database.PostgresDB {
	return c.DB
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// GetHub returns the websocket hub
func (c *Container) GetHub() *realtime.Hub {
	return c.Hub
}
