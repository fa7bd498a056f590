package repositories

import (
	"context"
	"time"

	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Maintenance struct {
	db *gorm.DB
}

func NewMaintenanceRepository(db *gorm.DB) *Maintenance {
	return &Maintenance{db: db}
}

// ExpireApplications moves submitted applications whose resource deadline is before today to pending.
func (repo *Maintenance) ExpireApplications(ctx context.Context, today time.Time) (int64, error) {
	expired := repo.db.WithContext(ctx).
		Model(&entities.Resource{}).
		Select("resource_id").
		Where("deadline IS NOT NULL AND deadline < ?", today)

	res := repo.db.WithContext(ctx).
		Model(&entities.Application{}).
		Where("review_status = ?", entities.ReviewSubmitted).
		Where("resource_id IN (?)", expired).
		Update("review_status", entities.ReviewPending)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "expire applications")
	}
	return res.RowsAffected, nil
}

// CloseExpiredResources closes resources that are still open after their deadline.
func (repo *Maintenance) CloseExpiredResources(ctx context.Context, today time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).
		Model(&entities.Resource{}).
		Where("deadline IS NOT NULL AND deadline < ?", today).
		Where("is_deleted = ?", false).
		Where("status NOT IN ?", []string{entities.ResourceUnavailable, entities.ResourceClosed}).
		Update("status", entities.ResourceClosed)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "close expired resources")
	}
	return res.RowsAffected, nil
}
