package dto

import (
	"time"

	"github.com/google/uuid"
)

// CreateAnalysisRequest accepts post URLs either as a list or as a single
// comma-separated string; the service normalizes both forms.
type CreateAnalysisRequest struct {
	Platform string   `json:"platform" validate:"required"`
	PostURLs []string `json:"post_urls,omitempty"`
	// Raw comma-separated form, used by the paste-a-list input.
	PostURLsRaw string `json:"post_urls_raw,omitempty"`
}

type CreateAnalysisResponse struct {
	Id       uuid.UUID `json:"id"`
	Platform string    `json:"platform"`
	Stage    string    `json:"stage"`
	PostURLs []string  `json:"post_urls"`
}

type AnalysisSummaryResponse struct {
	Id        uuid.UUID `json:"id"`
	Platform  string    `json:"platform"`
	Stage     string    `json:"stage"`
	Progress  int       `json:"progress"`
	PostURLs  []string  `json:"post_urls"`
	CreatedAt time.Time `json:"created_at"`
}

type AnalysisDetailResponse struct {
	Id          uuid.UUID        `json:"id"`
	Platform    string           `json:"platform"`
	Stage       string           `json:"stage"`
	Progress    int              `json:"progress"`
	PostURLs    []string         `json:"post_urls"`
	Observation *ObservationDTO  `json:"observation,omitempty"`
	Events      []StatusEventDTO `json:"events,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

type ObservationDTO struct {
	Caption         string `json:"caption,omitempty"`
	Visual          string `json:"visual,omitempty"`
	Engagement      string `json:"engagement,omitempty"`
	PlatformSignals string `json:"platform_signals,omitempty"`
}

type StatusEventDTO struct {
	Stage             string    `json:"stage"`
	Message           string    `json:"message"`
	ActionableMessage *string   `json:"actionable_message,omitempty"`
	Progress          int       `json:"progress"`
	IsError           bool      `json:"is_error"`
	CreatedAt         time.Time `json:"created_at"`
}

// StartRevealRequest kicks off (or replays) the progressive observation
// reveal for a completed analysis.
type StartRevealRequest struct {
	// "animated" or "static"; empty defaults to the server config.
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=animated static"`
}
