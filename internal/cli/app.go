package cli

import (
	"context"
	"fmt"

	"github.com/asaskevich/EventBus"
	"github.com/enchung913/career-recommender/internal/config"
	"github.com/enchung913/career-recommender/internal/kvstore"
	"github.com/enchung913/career-recommender/internal/logger"
	"github.com/enchung913/career-recommender/internal/metrics"
	"github.com/enchung913/career-recommender/internal/repositories"
	"github.com/enchung913/career-recommender/internal/services"
	log "github.com/sirupsen/logrus"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg         *config.Config
	db          *repositories.DbContext
	store       *kvstore.RedisStore
	bus         EventBus.Bus
	recorder    *services.EventRecorder
	similarity  *services.SimilarityBuilder
	engine      *services.ScoringEngine
	maintenance *services.Maintenance
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger.Setup(ctx, cfg.Logger)
	metrics.Register()

	location, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("can't create db context: %w", err)
	}

	if cfg.DB.AutoMigrate {
		if err = dbContext.Migrate(); err != nil {
			_ = dbContext.Close()
			return nil, fmt.Errorf("can't migrate db context: %w", err)
		}
	}

	store, err := kvstore.NewRedisStore(ctx, kvstore.RedisOptions{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		_ = dbContext.Close()
		return nil, fmt.Errorf("can't connect to redis: %w", err)
	}

	bus := EventBus.New()

	students := repositories.NewStudentsRepository(dbContext.DB)
	catalog, err := repositories.NewCachedCatalog(
		repositories.NewCatalogRepository(dbContext.DB), cfg.Recommender.Scoring.CatalogCacheTTL, bus)
	if err != nil {
		_ = store.Close()
		_ = dbContext.Close()
		return nil, err
	}

	clock := services.SystemClock()

	return &app{
		cfg:        cfg,
		db:         dbContext,
		store:      store,
		bus:        bus,
		recorder:   services.NewEventRecorder(store, clock),
		similarity: services.NewSimilarityBuilder(store, students, bus, cfg.Recommender.Similarity),
		engine: services.NewScoringEngine(store, students, catalog,
			repositories.NewApplicationsRepository(dbContext.DB), cfg.Recommender.Scoring),
		maintenance: services.NewMaintenance(repositories.NewMaintenanceRepository(dbContext.DB), clock, location, bus),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warnf("failed to close redis: %v", err)
	}
	if err := a.db.Close(); err != nil {
		log.Warnf("failed to close db: %v", err)
	}
	logger.Cleanup()
}
