package entities

import "time"

const (
	ResourceAvailable   = "Available"
	ResourceUnavailable = "Unavailable"
	ResourceClosed      = "Closed"
)

type Resource struct {
	ResourceID           string `gorm:"primaryKey"`
	ResourceType         string
	Quota                int
	DepartmentSupplierID *string
	CompanySupplierID    *string
	Title                string
	Deadline             *time.Time
	Description          string
	Status               string `gorm:"default:Unavailable"`
	IsDeleted            bool
	Conditions           []ResourceCondition `gorm:"foreignKey:ResourceID;constraint:OnDelete:CASCADE"`
}

func (Resource) TableName() string { return "resource" }

// IsOpen reports whether the resource can still be recommended.
func (r Resource) IsOpen() bool {
	return !r.IsDeleted && r.Status != ResourceUnavailable && r.Status != ResourceClosed
}

type ResourceCondition struct {
	ConditionID  string   `gorm:"primaryKey"`
	ResourceID   string   `gorm:"index"`
	DepartmentID *string  `gorm:"column:department_id"`
	AvgGPA       *float64 `gorm:"column:avg_gpa"`
	CurrentGPA   *float64 `gorm:"column:current_gpa"`
	IsPoor       *bool    `gorm:"column:is_poor"`
}

func (ResourceCondition) TableName() string { return "resource_condition" }
