package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	BillingPeriodMonthly = "MONTHLY"
	BillingPeriodYearly  = "YEARLY"

	SubscriptionStatusPending   = "PENDING"
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusCancelled = "CANCELLED"
	SubscriptionStatusExpired   = "EXPIRED"
)

type Plan struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug          string    `gorm:"type:varchar(50);unique;not null" json:"slug"`
	Description   string    `gorm:"type:text" json:"description"`
	Price         float64   `gorm:"not null" json:"price"`
	TaxRate       float64   `gorm:"default:0" json:"tax_rate"`
	BillingPeriod string    `gorm:"type:varchar(20);default:'MONTHLY'" json:"billing_period"`

	// AnalysisLimit is the number of analyses allowed per billing period.
	AnalysisLimit int  `gorm:"default:5" json:"analysis_limit"`
	ChatEnabled   bool `gorm:"default:true" json:"chat_enabled"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

type Subscription struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID    uuid.UUID  `gorm:"type:uuid;not null" json:"plan_id"`
	Plan      Plan       `gorm:"foreignKey:PlanID" json:"plan"`
	OrderID   string     `gorm:"type:varchar(64);unique;not null" json:"order_id"`
	Status    string     `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	StartsAt  *time.Time `json:"starts_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}
