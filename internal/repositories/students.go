package repositories

import (
	"context"

	"github.com/enchung913/career-recommender/internal/domain/models"
	"github.com/enchung913/career-recommender/internal/entities"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type Students struct {
	db *gorm.DB
}

func NewStudentsRepository(db *gorm.DB) *Students {
	return &Students{db: db}
}

func DepartmentToken(departmentID string, role entities.EnrollmentRole) string {
	return "dept:" + departmentID + ":" + string(role)
}

func CourseToken(courseID string) string {
	return "course:" + courseID
}

// FeatureSets maps every student with at least one enrollment fact or completed course
// to its distinct feature tokens.
func (repo *Students) FeatureSets(ctx context.Context) (map[string][]string, error) {
	var departments []entities.StudentDepartment
	if err := repo.db.WithContext(ctx).
		Select("user_id", "department_id", "role").
		Order("user_id").
		Find(&departments).Error; err != nil {
		return nil, errors.Wrap(err, "load enrollment facts")
	}

	var courses []entities.StudentCourse
	if err := repo.db.WithContext(ctx).
		Select("user_id", "course_id").
		Order("user_id").
		Find(&courses).Error; err != nil {
		return nil, errors.Wrap(err, "load completed courses")
	}

	features := make(map[string][]string)
	for _, d := range departments {
		features[d.UserID] = append(features[d.UserID], DepartmentToken(d.DepartmentID, d.Role))
	}
	for _, c := range courses {
		features[c.UserID] = append(features[c.UserID], CourseToken(c.CourseID))
	}

	for id, tokens := range features {
		features[id] = lo.Uniq(tokens)
	}
	return features, nil
}

// Profile returns nil without error when the student does not exist.
func (repo *Students) Profile(ctx context.Context, userID string) (*entities.StudentProfile, error) {
	var profile entities.StudentProfile
	if err := repo.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "load profile %s", userID)
	}
	return &profile, nil
}

func (repo *Students) Profiles(ctx context.Context) ([]entities.StudentProfile, error) {
	var profiles []entities.StudentProfile
	if err := repo.db.WithContext(ctx).
		Select("user_id", "department_id", "is_poor").
		Order("user_id").
		Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "load profiles")
	}
	return profiles, nil
}

func (repo *Students) GPARecords(ctx context.Context, userID string) ([]models.TermGPA, error) {
	var rows []entities.StudentGPA
	if err := repo.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "load gpa records of %s", userID)
	}
	return lo.Map(rows, func(r entities.StudentGPA, _ int) models.TermGPA {
		return models.TermGPA{Semester: r.Semester, GPA: r.GPA}
	}), nil
}

// AllGPARecords groups every GPA record by student.
func (repo *Students) AllGPARecords(ctx context.Context) (map[string][]models.TermGPA, error) {
	var rows []entities.StudentGPA
	if err := repo.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load gpa records")
	}

	grouped := make(map[string][]models.TermGPA)
	for _, r := range rows {
		grouped[r.UserID] = append(grouped[r.UserID], models.TermGPA{Semester: r.Semester, GPA: r.GPA})
	}
	return grouped, nil
}

type studentSummaryRow struct {
	UserID       string
	RealName     string
	StudentID    string
	DepartmentID string
}

// Summaries loads display fields for the given students in one query.
func (repo *Students) Summaries(ctx context.Context, userIDs []string) (map[string]models.StudentSummary, error) {
	if len(userIDs) == 0 {
		return map[string]models.StudentSummary{}, nil
	}

	var rows []studentSummaryRow
	if err := repo.db.WithContext(ctx).
		Table("student_profile AS sp").
		Select("sp.user_id, u.real_name, sp.student_id, sp.department_id").
		Joins("LEFT JOIN users u ON u.user_id = sp.user_id").
		Where("sp.user_id IN ?", userIDs).
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load student summaries")
	}

	return lo.SliceToMap(rows, func(r studentSummaryRow) (string, models.StudentSummary) {
		return r.UserID, models.StudentSummary{
			Name:          r.RealName,
			StudentNumber: r.StudentID,
			DepartmentID:  r.DepartmentID,
		}
	}), nil
}
