package service

import (
	"context"
	"errors"
	"time"

	"postlens-be/internal/dto"
	"postlens-be/internal/repository"

	"github.com/google/uuid"
)

type IAccountService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	GetUsage(ctx context.Context, userID uuid.UUID) (*dto.UsageResponse, error)
}

type accountService struct {
	userRepo     repository.UserRepository
	analysisRepo repository.AnalysisRepository
	billingRepo  repository.BillingRepository
}

func NewAccountService(userRepo repository.UserRepository, analysisRepo repository.AnalysisRepository, billingRepo repository.BillingRepository) IAccountService {
	return &accountService{
		userRepo:     userRepo,
		analysisRepo: analysisRepo,
		billingRepo:  billingRepo,
	}
}

func (s *accountService) GetProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	return &dto.ProfileResponse{
		Id:            user.ID,
		Email:         user.Email,
		FullName:      user.FullName,
		Role:          user.Role,
		Status:        user.Status,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	user.FullName = req.FullName
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

func (s *accountService) GetUsage(ctx context.Context, userID uuid.UUID) (*dto.UsageResponse, error) {
	limit := freeAnalysisLimit
	chatEnabled := true
	sub, err := s.billingRepo.FindActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		limit = sub.Plan.AnalysisLimit
		chatEnabled = sub.Plan.ChatEnabled
	}

	periodStart := startOfMonth(time.Now())
	used, err := s.analysisRepo.CountByUserSince(ctx, userID, periodStart)
	if err != nil {
		return nil, err
	}

	return &dto.UsageResponse{
		AnalysesThisMonth: int(used),
		AnalysisLimit:     limit,
		PeriodStart:       periodStart,
		ChatEnabled:       chatEnabled,
	}, nil
}
