package services

import (
	"context"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/enchung913/career-recommender/internal/config"
	"github.com/enchung913/career-recommender/internal/domain/models"
	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/enchung913/career-recommender/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Events recorded during the day show up as similarity signal after the nightly batch.
func Test_Pipeline_EventsToRecommendations(t *testing.T) {
	dbCtx := newTestDb(t)
	store, _ := newTestStore(t)
	ctx := context.Background()
	db := dbCtx.DB

	require.NoError(t, db.Create(&[]entities.StudentProfile{
		{UserID: "s1", DepartmentID: "cs"},
		{UserID: "s2", DepartmentID: "cs"},
		{UserID: "s3", DepartmentID: "ee"},
	}).Error)
	require.NoError(t, db.Create(&[]entities.StudentDepartment{
		{UserID: "s1", DepartmentID: "cs", Role: entities.EnrollmentMajor, StartSemester: "112-1"},
		{UserID: "s2", DepartmentID: "cs", Role: entities.EnrollmentMajor, StartSemester: "112-1"},
		{UserID: "s3", DepartmentID: "ee", Role: entities.EnrollmentMajor, StartSemester: "112-1"},
	}).Error)
	require.NoError(t, db.Create(&[]entities.StudentCourse{
		{UserID: "s1", CourseID: "algo"}, {UserID: "s1", CourseID: "db"},
		{UserID: "s2", CourseID: "algo"}, {UserID: "s2", CourseID: "db"}, {UserID: "s2", CourseID: "os"},
		{UserID: "s3", CourseID: "circuits"},
	}).Error)
	require.NoError(t, db.Create(&[]entities.Resource{
		{ResourceID: "r1", CompanySupplierID: ptr("c1"), ResourceType: "Internship", Status: entities.ResourceAvailable},
		{ResourceID: "r2", CompanySupplierID: ptr("c1"), ResourceType: "Internship", Status: entities.ResourceAvailable},
	}).Error)

	clock := newFakeClock(time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC))
	recorder := NewEventRecorder(store, clock)
	recorder.RecordResourceClick(ctx, "s2", "r2", "Internship")
	for _, view := range [][2]string{{"c1", "s1"}, {"c1", "s2"}, {"c2", "s1"}, {"c2", "s2"}, {"c2", "s3"}} {
		clock.Advance(time.Minute)
		recorder.RecordProfileView(ctx, view[0], view[1])
	}

	bus := EventBus.New()
	rc := config.DefaultRecommenderConfig()
	students := repositories.NewStudentsRepository(db)
	catalog, err := repositories.NewCachedCatalog(repositories.NewCatalogRepository(db), rc.Scoring.CatalogCacheTTL, bus)
	require.NoError(t, err)

	builder := NewSimilarityBuilder(store, students, bus, rc.Similarity)
	for _, matrix := range builder.Matrices() {
		_, err = builder.Run(ctx, matrix)
		require.NoError(t, err)
	}

	engine := NewScoringEngine(store, students, catalog, repositories.NewApplicationsRepository(db), rc.Scoring)

	resources, err := engine.RankCandidatesForSubject(ctx, "s1", models.Student)
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "r2", resources[0].ID)
	assert.Equal(t, 1.0, resources[0].Components.Similarity)

	ranked, err := engine.RankCandidatesForSubject(ctx, "c1", models.Company)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	s3, ok := findCandidate(ranked, "s3")
	require.True(t, ok)
	assert.Equal(t, 1.0, s3.Components.Similarity)
}

func findCandidate(ranked []models.RankedCandidate, id string) (models.RankedCandidate, bool) {
	for _, c := range ranked {
		if c.ID == id {
			return c, true
		}
	}
	return models.RankedCandidate{}, false
}
