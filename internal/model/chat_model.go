package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	AnalysisID uuid.UUID  `gorm:"type:uuid;not null;index" json:"analysis_id"`
	UpstreamID string     `gorm:"type:varchar(64)" json:"-"`
	Title      string     `gorm:"type:varchar(255);not null" json:"title"`
	CreatedAt  time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChatSessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"chat_session_id"`
	Role          string    `gorm:"type:varchar(10);not null" json:"role"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}
