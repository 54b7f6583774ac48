package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is an authenticated account. It owns resumes and at most one
// active subscription.
type User struct {
	gorm.Model
	Email        string   `gorm:"uniqueIndex;size:255"`
	PasswordHash string   `gorm:"size:255"`
	Resumes      []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume is a persisted resume document. Content holds the structured
// sections as JSONB (see internal/resume.Content).
type Resume struct {
	gorm.Model
	Title      string         `gorm:"size:255"`
	Status     string         `gorm:"size:32;default:draft"`
	Content    datatypes.JSON `gorm:"type:jsonb"`
	TemplateID uint           `gorm:"index"`
	UserID     uint           `gorm:"index"`
	User       User           `gorm:"constraint:OnDelete:CASCADE"`
}

// Template is an immutable catalog entry. Rows are seeded by the admin tool
// and never mutated through the API. ThumbnailKey points into object storage.
type Template struct {
	gorm.Model
	Name         string         `gorm:"size:255"`
	Description  string         `gorm:"size:1024"`
	ThumbnailKey string         `gorm:"size:512"`
	Style        string         `gorm:"size:32;index"`
	ColorScheme  string         `gorm:"size:32"`
	Industries   datatypes.JSON `gorm:"type:jsonb"`
	Popular      bool           `gorm:"default:false"`
	Premium      bool           `gorm:"default:false"`
}

// SubscriptionPlan describes one purchasable tier. Features holds the
// entitlement payload as JSONB (see entitlement.Features).
type SubscriptionPlan struct {
	gorm.Model
	Name        string         `gorm:"uniqueIndex;size:64"`
	Description string         `gorm:"size:512"`
	Price       float64        `gorm:"type:decimal(10,2)"`
	Features    datatypes.JSON `gorm:"type:jsonb"`
}

// UserSubscription links a user to a plan. At most one row per user carries
// status "active"; the worker flips rows past their period end to "expired".
type UserSubscription struct {
	gorm.Model
	UserID             uint             `gorm:"index"`
	User               User             `gorm:"constraint:OnDelete:CASCADE"`
	PlanID             uint             `gorm:"index"`
	Plan               SubscriptionPlan `gorm:"foreignKey:PlanID"`
	Status             string           `gorm:"size:32;index"`
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

const (
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)
