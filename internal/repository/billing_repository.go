package repository

import (
	"context"

	"postlens-be/internal/model"

	"github.com/google/uuid"
)

type BillingRepository interface {
	FindAllPlans(ctx context.Context) ([]model.Plan, error)
	FindPlanByID(ctx context.Context, id uuid.UUID) (*model.Plan, error)
	FindPlanBySlug(ctx context.Context, slug string) (*model.Plan, error)

	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	UpdateSubscription(ctx context.Context, sub *model.Subscription) error
	FindSubscriptionByOrderID(ctx context.Context, orderID string) (*model.Subscription, error)
	FindActiveSubscription(ctx context.Context, userID uuid.UUID) (*model.Subscription, error)
}
