package repository

import (
	"context"
	"time"

	"postlens-be/internal/model"

	"github.com/google/uuid"
)

type AnalysisRepository interface {
	Create(ctx context.Context, analysis *model.Analysis) error
	Update(ctx context.Context, analysis *model.Analysis) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Analysis, error)
	FindAllByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Analysis, error)

	// CountByUserSince supports usage accounting against the plan allowance.
	CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}

type StatusEventRepository interface {
	Create(ctx context.Context, event *model.StatusEvent) error

	// FindAllByAnalysisID returns the feed in creation order.
	FindAllByAnalysisID(ctx context.Context, analysisID uuid.UUID) ([]model.StatusEvent, error)

	// LatestProgress returns the highest progress stored so far, 0 when the
	// feed is empty.
	LatestProgress(ctx context.Context, analysisID uuid.UUID) (int, error)
}
