package repositories

import (
	"context"

	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Catalog struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// OpenResources returns every resource that is not deleted, unavailable or closed,
// with its eligibility conditions, ordered by id.
func (repo *Catalog) OpenResources(ctx context.Context) ([]entities.Resource, error) {
	var resources []entities.Resource
	err := repo.db.WithContext(ctx).
		Preload("Conditions", func(db *gorm.DB) *gorm.DB { return db.Order("condition_id") }).
		Where("is_deleted = ?", false).
		Where("status NOT IN ?", []string{entities.ResourceUnavailable, entities.ResourceClosed}).
		Order("resource_id").
		Find(&resources).Error
	if err != nil {
		return nil, errors.Wrap(err, "load open resources")
	}
	return resources, nil
}
