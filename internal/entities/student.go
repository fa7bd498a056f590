package entities

type EnrollmentRole string

const (
	EnrollmentMajor       EnrollmentRole = "major"
	EnrollmentMinor       EnrollmentRole = "minor"
	EnrollmentDoubleMajor EnrollmentRole = "double_major"
)

type User struct {
	UserID   string `gorm:"primaryKey"`
	RealName string
	Role     string
}

func (User) TableName() string { return "users" }

type StudentProfile struct {
	UserID       string `gorm:"primaryKey"`
	StudentID    string
	DepartmentID string
	EntryYear    int
	IsPoor       bool
	Grade        int
}

func (StudentProfile) TableName() string { return "student_profile" }

type StudentDepartment struct {
	UserID        string         `gorm:"primaryKey"`
	DepartmentID  string         `gorm:"primaryKey"`
	Role          EnrollmentRole `gorm:"primaryKey"`
	StartSemester string         `gorm:"primaryKey"`
	EndSemester   *string
}

func (StudentDepartment) TableName() string { return "student_department" }

type StudentCourse struct {
	UserID   string `gorm:"primaryKey"`
	CourseID string `gorm:"primaryKey"`
	Semester string
}

func (StudentCourse) TableName() string { return "student_course" }

type StudentGPA struct {
	UserID   string   `gorm:"primaryKey"`
	Semester string   `gorm:"primaryKey"`
	GPA      *float64 `gorm:"column:gpa"`
}

func (StudentGPA) TableName() string { return "student_gpa" }
