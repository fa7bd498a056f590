package repositories

import (
	"context"

	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Applications struct {
	db *gorm.DB
}

func NewApplicationsRepository(db *gorm.DB) *Applications {
	return &Applications{db: db}
}

type applicationCountRow struct {
	UserID string
	Total  int
}

// CountByStudent counts, per student, the applications on file for any of the given resources.
// Rejected applications are not counted.
func (repo *Applications) CountByStudent(ctx context.Context, resourceIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(resourceIDs) == 0 {
		return counts, nil
	}

	var rows []applicationCountRow
	if err := repo.db.WithContext(ctx).
		Model(&entities.Application{}).
		Select("user_id, COUNT(*) AS total").
		Where("resource_id IN ?", resourceIDs).
		Where("review_status <> ?", entities.ReviewRejected).
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "count applications")
	}

	for _, r := range rows {
		counts[r.UserID] = r.Total
	}
	return counts, nil
}
