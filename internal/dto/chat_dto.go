package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatSessionResponse struct {
	Id         uuid.UUID `json:"id"`
	AnalysisId uuid.UUID `json:"analysis_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	SessionId uuid.UUID        `json:"session_id"`
	Messages  []ChatMessageDTO `json:"messages"`
}

type ChatMessageDTO struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type SendMessageRequest struct {
	AnalysisId uuid.UUID `json:"analysis_id" validate:"required"`
	Message    string    `json:"message" validate:"required"`
}

// SendMessageResponse acknowledges the optimistic send; the assistant reply
// arrives over the websocket as chat_chunk frames.
type SendMessageResponse struct {
	SessionId uuid.UUID      `json:"session_id"`
	Sent      ChatMessageDTO `json:"sent"`
	Streaming bool           `json:"streaming"`
}
