package repository

import (
	"context"
	"time"

	"postlens-be/internal/model"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *model.ChatSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ChatSession, error)
	FindAllByUserAndAnalysis(ctx context.Context, userID, analysisID uuid.UUID) ([]model.ChatSession, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, title string, updatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ChatMessageRepository interface {
	Create(ctx context.Context, message *model.ChatMessage) error

	// FindAllBySessionID returns the transcript in creation order.
	FindAllBySessionID(ctx context.Context, sessionID uuid.UUID) ([]model.ChatMessage, error)
	CountBySessionID(ctx context.Context, sessionID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySessionID(ctx context.Context, sessionID uuid.UUID) error
}
