package service

import (
	"context"
	"errors"
	"fmt"

	"postlens-be/internal/pkg/logger"
	"postlens-be/internal/pkg/mailer"
	"postlens-be/internal/repository"
	"postlens-be/pkg/events"
	pkgNats "postlens-be/pkg/nats"

	"github.com/google/uuid"
)

// ConsumerService runs the durable event consumers: side effects that must
// survive a restart, like the analysis-ready email.
type ConsumerService struct {
	subscriber   *pkgNats.Subscriber
	userRepo     repository.UserRepository
	analysisRepo repository.AnalysisRepository
	emailService mailer.IEmailService
	clientURL    string
	logger       logger.ILogger
}

func NewConsumerService(
	subscriber *pkgNats.Subscriber,
	userRepo repository.UserRepository,
	analysisRepo repository.AnalysisRepository,
	emailService mailer.IEmailService,
	clientURL string,
	log logger.ILogger,
) *ConsumerService {
	return &ConsumerService{
		subscriber:   subscriber,
		userRepo:     userRepo,
		analysisRepo: analysisRepo,
		emailService: emailService,
		clientURL:    clientURL,
		logger:       log,
	}
}

func (s *ConsumerService) Start() error {
	if err := s.subscriber.Subscribe("events."+events.TypeAnalysisCompleted, "postlens-analysis-mail", s.handleAnalysisCompleted); err != nil {
		return err
	}
	if err := s.subscriber.Subscribe("events."+events.TypeUserRegistered, "postlens-registrations", s.handleUserRegistered); err != nil {
		return err
	}
	return nil
}

func (s *ConsumerService) handleAnalysisCompleted(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	analysisID, err := uuidFromPayload(payload, "analysis_id")
	if err != nil {
		return err
	}
	userID, err := uuidFromPayload(payload, "user_id")
	if err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || user == nil {
		return errors.New("user not found for completed analysis")
	}
	analysis, err := s.analysisRepo.FindByID(ctx, analysisID)
	if err != nil || analysis == nil {
		return errors.New("analysis not found")
	}

	analysisURL := fmt.Sprintf("%s/analyses/%s", s.clientURL, analysisID)
	if err := s.emailService.SendAnalysisReady(user.Email, analysis.Platform, analysisURL); err != nil {
		// Mail failure should not requeue the event forever.
		s.logger.Warn("ConsumerService", "Analysis-ready mail failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	return nil
}

func (s *ConsumerService) handleUserRegistered(ctx context.Context, event events.Event) error {
	s.logger.Info("ConsumerService", "User registered", event.Payload())
	return nil
}

func uuidFromPayload(payload map[string]interface{}, key string) (uuid.UUID, error) {
	raw, ok := payload[key].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("event payload missing %s", key)
	}
	return uuid.Parse(raw)
}
