package service

import (
	"context"
	"crypto/sha512"
	"errors"
	"fmt"
	"time"

	"postlens-be/internal/config"
	"postlens-be/internal/dto"
	"postlens-be/internal/model"
	"postlens-be/internal/pkg/logger"
	"postlens-be/internal/repository"
	"postlens-be/pkg/events"
	pkgNats "postlens-be/pkg/nats"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

type IPaymentService interface {
	GetPlans(ctx context.Context) ([]dto.PlanResponse, error)
	Checkout(ctx context.Context, userID uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest) error
	GetSubscriptionStatus(ctx context.Context, userID uuid.UUID) (*dto.SubscriptionStatusResponse, error)
	CancelSubscription(ctx context.Context, userID uuid.UUID) error
}

type paymentService struct {
	billingRepo    repository.BillingRepository
	userRepo       repository.UserRepository
	cfg            config.BillingConfig
	clientURL      string
	eventPublisher *pkgNats.Publisher
	logger         logger.ILogger
}

func NewPaymentService(
	billingRepo repository.BillingRepository,
	userRepo repository.UserRepository,
	cfg config.BillingConfig,
	clientURL string,
	eventPublisher *pkgNats.Publisher,
	log logger.ILogger,
) IPaymentService {
	return &paymentService{
		billingRepo:    billingRepo,
		userRepo:       userRepo,
		cfg:            cfg,
		clientURL:      clientURL,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (s *paymentService) GetPlans(ctx context.Context) ([]dto.PlanResponse, error) {
	plans, err := s.billingRepo.FindAllPlans(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, dto.PlanResponse{
			Id:            p.ID,
			Name:          p.Name,
			PriceIDR:      int64(p.Price),
			AnalysisLimit: p.AnalysisLimit,
			ChatEnabled:   p.ChatEnabled,
		})
	}
	return out, nil
}

func (s *paymentService) Checkout(ctx context.Context, userID uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	plan, err := s.billingRepo.FindPlanByID(ctx, req.PlanId)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, errors.New("plan not found")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, errors.New("user not found")
	}

	sub := &model.Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    plan.ID,
		OrderID:   uuid.New().String(),
		Status:    model.SubscriptionStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.billingRepo.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	var sClient snap.Client
	env := midtrans.Sandbox
	if s.cfg.MidtransEnv == "production" {
		env = midtrans.Production
	}
	sClient.New(s.cfg.MidtransServerKey, env)

	grossAmount := int64(plan.Price + plan.Price*plan.TaxRate)

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  sub.OrderID,
			GrossAmt: grossAmount,
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
		Callbacks: &snap.Callbacks{
			Finish: fmt.Sprintf("%s/app?payment=success", s.clientURL),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: user.FullName,
			Email: user.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    plan.ID.String(),
				Price: grossAmount,
				Qty:   1,
				Name:  plan.Name,
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}

	snapResp, midErr := sClient.CreateTransaction(snapReq)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}

	return &dto.CheckoutResponse{
		OrderId:     sub.OrderID,
		SnapToken:   snapResp.Token,
		RedirectURL: snapResp.RedirectURL,
	}, nil
}

func (s *paymentService) HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest) error {
	if s.cfg.MidtransServerKey == "" {
		return errors.New("server configuration error")
	}

	// Midtrans signature = SHA512(order_id + status_code + gross_amount + server_key)
	signatureInput := req.OrderId + req.StatusCode + req.GrossAmount + s.cfg.MidtransServerKey
	expected := fmt.Sprintf("%x", sha512.Sum512([]byte(signatureInput)))
	if req.SignatureKey != expected {
		s.logger.Warn("PaymentService", "Webhook signature mismatch", map[string]interface{}{
			"order_id": req.OrderId,
		})
		return errors.New("invalid signature")
	}

	sub, err := s.billingRepo.FindSubscriptionByOrderID(ctx, req.OrderId)
	if err != nil {
		return err
	}
	if sub == nil {
		return errors.New("subscription not found")
	}

	switch req.TransactionStatus {
	case "capture", "settlement":
		if sub.Status == model.SubscriptionStatusActive {
			return nil
		}
		now := time.Now()
		expires := now.AddDate(0, 1, 0)
		if sub.Plan.BillingPeriod == model.BillingPeriodYearly {
			expires = now.AddDate(1, 0, 0)
		}
		sub.Status = model.SubscriptionStatusActive
		sub.StartsAt = &now
		sub.ExpiresAt = &expires
		sub.UpdatedAt = now
		if err := s.billingRepo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		if s.eventPublisher != nil {
			_ = s.eventPublisher.Publish(ctx, events.NewSubscriptionActivated(sub.UserID, sub.Plan.Slug))
		}
	case "deny", "cancel", "expire":
		sub.Status = model.SubscriptionStatusExpired
		sub.UpdatedAt = time.Now()
		if err := s.billingRepo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
	case "pending":
		// No action; wait for the final notification.
	default:
		s.logger.Warn("PaymentService", "Unknown transaction status", map[string]interface{}{
			"order_id": req.OrderId,
			"status":   req.TransactionStatus,
		})
	}
	return nil
}

func (s *paymentService) GetSubscriptionStatus(ctx context.Context, userID uuid.UUID) (*dto.SubscriptionStatusResponse, error) {
	sub, err := s.billingRepo.FindActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}

	var periodEnd time.Time
	if sub.ExpiresAt != nil {
		periodEnd = *sub.ExpiresAt
	}
	return &dto.SubscriptionStatusResponse{
		SubscriptionId:   sub.ID,
		PlanName:         sub.Plan.Name,
		Status:           sub.Status,
		CurrentPeriodEnd: periodEnd,
		AnalysisLimit:    sub.Plan.AnalysisLimit,
		ChatEnabled:      sub.Plan.ChatEnabled,
		IsActive:         sub.Status == model.SubscriptionStatusActive,
	}, nil
}

func (s *paymentService) CancelSubscription(ctx context.Context, userID uuid.UUID) error {
	sub, err := s.billingRepo.FindActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return errors.New("no active subscription")
	}

	sub.Status = model.SubscriptionStatusCancelled
	sub.UpdatedAt = time.Now()
	if err := s.billingRepo.UpdateSubscription(ctx, sub); err != nil {
		return err
	}
	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, events.NewSubscriptionCancelled(userID, sub.Plan.Slug))
	}
	return nil
}
