package dto

import (
	"time"

	"github.com/google/uuid"
)

type ProfileResponse struct {
	Id            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,min=3"`
}

type UsageResponse struct {
	AnalysesThisMonth int       `json:"analyses_this_month"`
	AnalysisLimit     int       `json:"analysis_limit"`
	PeriodStart       time.Time `json:"period_start"`
	ChatEnabled       bool      `json:"chat_enabled"`
}
