package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	UserRoleUser  = "USER"
	UserRoleAdmin = "ADMIN"

	UserStatusPending = "PENDING"
	UserStatusActive  = "ACTIVE"
)

type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string    `gorm:"type:varchar(255);unique;not null" json:"email"`
	FullName      string    `gorm:"type:varchar(255);not null" json:"full_name"`
	PasswordHash  *string   `gorm:"type:varchar(255)" json:"-"`
	GoogleID      *string   `gorm:"type:varchar(255);index" json:"-"`
	AvatarURL     *string   `gorm:"type:varchar(512)" json:"avatar_url,omitempty"`
	Role          string    `gorm:"type:varchar(20);default:'USER'" json:"role"`
	Status        string    `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	EmailVerified bool      `gorm:"default:false" json:"email_verified"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

type EmailVerificationToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string    `gorm:"type:varchar(10);not null" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}
