package implementation

import (
	"context"
	"errors"

	"postlens-be/internal/model"
	"postlens-be/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BillingRepositoryImpl struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) repository.BillingRepository {
	return &BillingRepositoryImpl{db: db}
}

func (r *BillingRepositoryImpl) FindAllPlans(ctx context.Context) ([]model.Plan, error) {
	var plans []model.Plan
	err := r.db.WithContext(ctx).Order("price ASC").Find(&plans).Error
	return plans, err
}

func (r *BillingRepositoryImpl) FindPlanByID(ctx context.Context, id uuid.UUID) (*model.Plan, error) {
	var p model.Plan
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *BillingRepositoryImpl) FindPlanBySlug(ctx context.Context, slug string) (*model.Plan, error) {
	var p model.Plan
	err := r.db.WithContext(ctx).First(&p, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *BillingRepositoryImpl) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *BillingRepositoryImpl) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *BillingRepositoryImpl) FindSubscriptionByOrderID(ctx context.Context, orderID string) (*model.Subscription, error) {
	var s model.Subscription
	err := r.db.WithContext(ctx).Preload("Plan").First(&s, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *BillingRepositoryImpl) FindActiveSubscription(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	var s model.Subscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND status = ?", userID, model.SubscriptionStatusActive).
		Order("created_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
