package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Analysis is one submitted job against the analysis backend.
type Analysis struct {
	ID         uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID                   `gorm:"type:uuid;not null;index:idx_analyses_user_created,priority:1" json:"user_id"`
	UpstreamID string                      `gorm:"type:varchar(64);index" json:"upstream_id"`
	Platform   string                      `gorm:"type:varchar(20);not null" json:"platform"`
	PostURLs   datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"post_urls"`

	// Stage/Progress mirror the latest accepted status event. Progress never
	// decreases once stored.
	Stage    string `gorm:"type:varchar(50);default:'queued'" json:"stage"`
	Progress int    `gorm:"default:0" json:"progress"`

	// Observation fields, populated when the pipeline completes. Reveal order
	// is caption, visual, engagement, platform signals.
	Caption         string `gorm:"type:text" json:"caption"`
	Visual          string `gorm:"type:text" json:"visual"`
	Engagement      string `gorm:"type:text" json:"engagement"`
	PlatformSignals string `gorm:"type:text" json:"platform_signals"`

	// Raw result payload from the backend, kept for re-rendering.
	Result datatypes.JSON `gorm:"type:jsonb" json:"result,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_analyses_user_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// StatusEvent is one entry of an analysis's ordered status feed.
type StatusEvent struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AnalysisID         uuid.UUID `gorm:"type:uuid;not null;index:idx_status_events_analysis_created,priority:1" json:"analysis_id"`
	Stage              string    `gorm:"type:varchar(50);not null" json:"stage"`
	Message            string    `gorm:"type:text;not null" json:"message"`
	ActionableMessage  *string   `gorm:"type:text" json:"actionable_message,omitempty"`
	ProgressPercentage int       `gorm:"not null" json:"progress_percentage"`
	IsError            bool      `gorm:"default:false" json:"is_error"`
	CreatedAt          time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_status_events_analysis_created,priority:2" json:"created_at"`
}
