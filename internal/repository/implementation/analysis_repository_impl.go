package implementation

import (
	"context"
	"errors"
	"time"

	"postlens-be/internal/model"
	"postlens-be/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnalysisRepositoryImpl struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) repository.AnalysisRepository {
	return &AnalysisRepositoryImpl{db: db}
}

func (r *AnalysisRepositoryImpl) Create(ctx context.Context, analysis *model.Analysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

func (r *AnalysisRepositoryImpl) Update(ctx context.Context, analysis *model.Analysis) error {
	return r.db.WithContext(ctx).Save(analysis).Error
}

func (r *AnalysisRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Analysis, error) {
	var a model.Analysis
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AnalysisRepositoryImpl) FindAllByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Analysis, error) {
	var list []model.Analysis
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *AnalysisRepositoryImpl) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Analysis{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

type StatusEventRepositoryImpl struct {
	db *gorm.DB
}

func NewStatusEventRepository(db *gorm.DB) repository.StatusEventRepository {
	return &StatusEventRepositoryImpl{db: db}
}

func (r *StatusEventRepositoryImpl) Create(ctx context.Context, event *model.StatusEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *StatusEventRepositoryImpl) FindAllByAnalysisID(ctx context.Context, analysisID uuid.UUID) ([]model.StatusEvent, error) {
	var list []model.StatusEvent
	err := r.db.WithContext(ctx).
		Where("analysis_id = ?", analysisID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *StatusEventRepositoryImpl) LatestProgress(ctx context.Context, analysisID uuid.UUID) (int, error) {
	var progress *int
	err := r.db.WithContext(ctx).
		Model(&model.StatusEvent{}).
		Where("analysis_id = ?", analysisID).
		Select("MAX(progress_percentage)").
		Scan(&progress).Error
	if err != nil {
		return 0, err
	}
	if progress == nil {
		return 0, nil
	}
	return *progress, nil
}
