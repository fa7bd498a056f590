package repositories

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/enchung913/career-recommender/internal/events"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

const openResourcesCacheKey = "open_resources"

type catalogRepository interface {
	OpenResources(ctx context.Context) ([]entities.Resource, error)
}

// CachedCatalog keeps the open catalog in memory. A zero ttl disables caching.
type CachedCatalog struct {
	repo  catalogRepository
	cache *gocache.Cache
	ttl   time.Duration
}

func NewCachedCatalog(repo catalogRepository, ttl time.Duration, bus EventBus.Bus) (*CachedCatalog, error) {
	c := &CachedCatalog{repo: repo, cache: gocache.New(ttl, 2*ttl), ttl: ttl}

	if bus != nil {
		if err := bus.Subscribe(events.CatalogChangedTopic, c.onCatalogChanged); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *CachedCatalog) OpenResources(ctx context.Context) ([]entities.Resource, error) {
	if c.ttl > 0 {
		if value, found := c.cache.Get(openResourcesCacheKey); found {
			return value.([]entities.Resource), nil
		}
	}

	resources, err := c.repo.OpenResources(ctx)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 {
		c.cache.Set(openResourcesCacheKey, resources, gocache.DefaultExpiration)
	}
	return resources, nil
}

func (c *CachedCatalog) Flush() {
	c.cache.Flush()
}

func (c *CachedCatalog) onCatalogChanged(event events.CatalogChanged) {
	c.Flush()
	log.Debugf("catalog cache flushed: %s", event.Reason)
}
