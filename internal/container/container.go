package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	database "github.com/FACorreiaa/go-trip-planner/app/db"
	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api/explore"
	"github.com/FACorreiaa/go-trip-planner/internal/api/generation"
	"github.com/FACorreiaa/go-trip-planner/internal/api/planner"
	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/api/trip"
	"github.com/FACorreiaa/go-trip-planner/internal/cache"
	"github.com/FACorreiaa/go-trip-planner/internal/categories"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Container holds all application dependencies
type Container struct {
	Config            *config.Config
	Logger            *slog.Logger
	Pool              *pgxpool.Pool
	Redis             *redis.Client
	POIHandler        *poi.POIHandler
	TripHandler       *trip.TripHandler
	ExploreHandler    *explore.ExploreHandler
	GenerationHandler *generation.GenerationHandler
	PlannerHandler    *planner.PlannerHandler
}

// NewContainer connects to the database and the cache backend and builds
// every handler.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	pool, err := database.Init(ctx, dbConfig, logger)
	if err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, Logger: logger, Pool: pool}

	store, err := c.cacheStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	poiTTL := cfg.Cache.POITTL
	if poiTTL <= 0 {
		poiTTL = cache.POICacheTTL
	}
	poiCache := cache.NewTTLCache[[]types.POI](store, cache.POICachePrefix, poiTTL, logger, cache.WithMetrics(metrics.Get()))

	mapper, err := categories.NewMapper()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load category taxonomy: %w", err)
	}

	poiRepo := poi.NewRepository(pool, logger)
	poiService := poi.NewServiceImpl(poiRepo, poiCache, logger)
	c.POIHandler = poi.NewPOIHandler(poiService, logger)

	tripRepo := trip.NewRepository(pool, logger)
	tripService := trip.NewServiceImpl(tripRepo, logger)
	c.TripHandler = trip.NewTripHandler(tripService, logger)

	places := explore.NewGeoapifyClient(cfg.Geoapify, logger)
	exploreService := explore.NewServiceImpl(places, poiCache, logger)
	c.ExploreHandler = explore.NewExploreHandler(exploreService, logger)

	var generator generation.Generator
	generator, err = generation.NewGeminiGenerator(ctx, cfg.GenAI, logger)
	if err != nil {
		if !errors.Is(err, generation.ErrMissingAPIKey) {
			c.Close()
			return nil, err
		}
		logger.Warn("Trip generation disabled", slog.Any("error", err))
		generator = generation.Unavailable{Err: err}
	}
	generationService := generation.NewServiceImpl(generator, mapper, logger)
	c.GenerationHandler = generation.NewGenerationHandler(generationService, logger)

	c.PlannerHandler = planner.NewPlannerHandler(mapper, logger)
	return c, nil
}

func (c *Container) cacheStore(ctx context.Context) (cache.Store, error) {
	switch c.Config.Cache.Backend {
	case "redis":
		client, err := cache.Connect(ctx, c.Config.Repositories.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.Redis = client
		c.Logger.Info("Using redis cache backend")
		return cache.NewRedisStore(client), nil
	case "", "memory":
		return cache.NewMemoryStore(c.Config.Cache.CleanupEvery), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Config.Cache.Backend)
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Failed to close redis client", slog.Any("error", err))
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
