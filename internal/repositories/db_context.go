package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

// NewDbContext opens postgres for "postgres://", "postgresql://" or "host=" connection strings
// and sqlite for anything else (a file path or ":memory:").
func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(dialector(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	// every pooled connection to ":memory:" would otherwise get its own empty database
	if strings.TrimSpace(connectionString) == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &DbContext{DB: db}, nil
}

func dialector(connectionString string) gorm.Dialector {
	if isPostgres(connectionString) {
		return postgres.Open(connectionString)
	}
	return sqlite.Open(connectionString)
}

func isPostgres(connectionString string) bool {
	cs := strings.TrimSpace(connectionString)
	return strings.HasPrefix(cs, "postgres://") ||
		strings.HasPrefix(cs, "postgresql://") ||
		strings.HasPrefix(cs, "host=")
}

// Migrate creates the tables the engine reads. The surrounding application owns the real schema,
// so this is meant for local runs and tests.
func (c *DbContext) Migrate() error {
	tables := []struct {
		name  string
		model any
	}{
		{"User", &entities.User{}},
		{"StudentProfile", &entities.StudentProfile{}},
		{"StudentDepartment", &entities.StudentDepartment{}},
		{"StudentCourse", &entities.StudentCourse{}},
		{"StudentGPA", &entities.StudentGPA{}},
		{"Resource", &entities.Resource{}},
		{"ResourceCondition", &entities.ResourceCondition{}},
		{"Application", &entities.Application{}},
	}

	for _, table := range tables {
		if err := c.DB.AutoMigrate(table.model); err != nil {
			return fmt.Errorf("failed to migrate %s entity: %w", table.name, err)
		}
	}

	if err := c.DB.Exec("CREATE INDEX IF NOT EXISTS idx_application_resource_user ON application (resource_id, user_id)").
		Error; err != nil {
		return fmt.Errorf("failed to create application index: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}

func (c *DbContext) Ping(ctx context.Context) error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.PingContext(ctx)
}
