package entities

import "time"

const (
	ReviewSubmitted = "submitted"
	ReviewPending   = "pending"
	ReviewApproved  = "approved"
	ReviewRejected  = "rejected"
)

type Application struct {
	ApplicationID string `gorm:"primaryKey"`
	ResourceID    string `gorm:"index"`
	UserID        string `gorm:"index"`
	ReviewStatus  string `gorm:"default:submitted"`
	CreatedAt     time.Time
}

func (Application) TableName() string { return "application" }
