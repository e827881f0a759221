package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"postlens-be/internal/constant"
	"postlens-be/internal/dto"
	"postlens-be/internal/model"
	"postlens-be/internal/pkg/logger"
	"postlens-be/internal/repository"
	"postlens-be/internal/websocket"
	"postlens-be/pkg/events"
	pkgNats "postlens-be/pkg/nats"
	"postlens-be/pkg/upstream"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Analyses allowed per month without a paid plan.
const freeAnalysisLimit = 5

// How long we keep the upstream status feed open before giving up on a run.
const monitorTimeout = 30 * time.Minute

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrNoPostURLs          = errors.New("at least one post url is required")
	ErrAnalysisLimit       = errors.New("monthly analysis limit reached")
	ErrAnalysisNotFound    = errors.New("analysis not found")
)

// AnalysisBackend is the slice of the upstream client this service uses.
type AnalysisBackend interface {
	CreateJob(ctx context.Context, req *upstream.CreateJobRequest) (*upstream.CreateJobResponse, error)
	StreamStatus(ctx context.Context, analysisID string) (<-chan upstream.StatusEvent, error)
	FetchObservation(ctx context.Context, analysisID string) (*upstream.Observation, error)
}

type IAnalysisService interface {
	CreateAnalysis(ctx context.Context, userID uuid.UUID, req *dto.CreateAnalysisRequest) (*dto.CreateAnalysisResponse, error)
	GetAnalysis(ctx context.Context, userID, analysisID uuid.UUID) (*dto.AnalysisDetailResponse, error)
	ListAnalyses(ctx context.Context, userID uuid.UUID, limit, offset int) ([]dto.AnalysisSummaryResponse, error)
}

type analysisService struct {
	analysisRepo   repository.AnalysisRepository
	statusRepo     repository.StatusEventRepository
	billingRepo    repository.BillingRepository
	backend        AnalysisBackend
	hub            *websocket.Hub
	eventPublisher *pkgNats.Publisher
	logger         logger.ILogger
}

func NewAnalysisService(
	analysisRepo repository.AnalysisRepository,
	statusRepo repository.StatusEventRepository,
	billingRepo repository.BillingRepository,
	backend AnalysisBackend,
	hub *websocket.Hub,
	eventPublisher *pkgNats.Publisher,
	log logger.ILogger,
) IAnalysisService {
	return &analysisService{
		analysisRepo:   analysisRepo,
		statusRepo:     statusRepo,
		billingRepo:    billingRepo,
		backend:        backend,
		hub:            hub,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

// ParsePostURLs merges the list and comma-separated forms of the request into
// one cleaned slice: entries trimmed, empties dropped, order preserved.
func ParsePostURLs(req *dto.CreateAnalysisRequest) ([]string, error) {
	raw := append([]string{}, req.PostURLs...)
	if req.PostURLsRaw != "" {
		raw = append(raw, strings.Split(req.PostURLsRaw, ",")...)
	}

	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		parsed, err := url.ParseRequestURI(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return nil, errors.New("invalid post url: " + u)
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return nil, ErrNoPostURLs
	}
	return urls, nil
}

func (s *analysisService) CreateAnalysis(ctx context.Context, userID uuid.UUID, req *dto.CreateAnalysisRequest) (*dto.CreateAnalysisResponse, error) {
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if !constant.IsSupportedPlatform(platform) {
		return nil, ErrUnsupportedPlatform
	}

	urls, err := ParsePostURLs(req)
	if err != nil {
		return nil, err
	}

	if err := s.checkUsage(ctx, userID); err != nil {
		return nil, err
	}

	analysis := &model.Analysis{
		ID:        uuid.New(),
		UserID:    userID,
		Platform:  platform,
		PostURLs:  datatypes.NewJSONSlice(urls),
		Stage:     constant.StageQueued,
		Progress:  0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.analysisRepo.Create(ctx, analysis); err != nil {
		return nil, err
	}

	job, err := s.backend.CreateJob(ctx, &upstream.CreateJobRequest{
		Platform: platform,
		PostURLs: urls,
	})
	if err != nil {
		s.recordFailure(context.Background(), analysis, "The analysis service is unavailable right now.")
		return nil, err
	}

	analysis.UpstreamID = job.AnalysisID
	if err := s.analysisRepo.Update(ctx, analysis); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, events.NewAnalysisCreated(analysis.ID, userID, platform, len(urls)))
	}

	go s.monitor(analysis.ID, job.AnalysisID, userID)

	return &dto.CreateAnalysisResponse{
		Id:       analysis.ID,
		Platform: platform,
		Stage:    analysis.Stage,
		PostURLs: urls,
	}, nil
}

func (s *analysisService) checkUsage(ctx context.Context, userID uuid.UUID) error {
	limit := freeAnalysisLimit
	sub, err := s.billingRepo.FindActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub != nil {
		limit = sub.Plan.AnalysisLimit
	}

	periodStart := startOfMonth(time.Now())
	used, err := s.analysisRepo.CountByUserSince(ctx, userID, periodStart)
	if err != nil {
		return err
	}
	if used >= int64(limit) {
		return ErrAnalysisLimit
	}
	return nil
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monitor consumes the upstream status feed for one analysis, persists each
// event, pushes it to the owner's websocket, and finalizes the record on the
// terminal stage. Progress never moves backwards: a lower percentage than the
// highest seen so far is clamped up.
func (s *analysisService) monitor(analysisID uuid.UUID, upstreamID string, userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), monitorTimeout)
	defer cancel()

	feed, err := s.backend.StreamStatus(ctx, upstreamID)
	if err != nil {
		s.logger.Error("AnalysisService", "Failed to open status feed", map[string]interface{}{
			"analysis_id": analysisID,
			"error":       err.Error(),
		})
		analysis, findErr := s.analysisRepo.FindByID(ctx, analysisID)
		if findErr == nil && analysis != nil {
			s.recordFailure(ctx, analysis, "Lost connection to the analysis service.")
		}
		return
	}

	highest := 0
	terminal := false
	for ev := range feed {
		if terminal {
			continue // drain anything after the terminal event
		}

		if ev.ProgressPercentage > highest {
			highest = ev.ProgressPercentage
		}

		stored := &model.StatusEvent{
			ID:                 uuid.New(),
			AnalysisID:         analysisID,
			Stage:              ev.Stage,
			Message:            ev.Message,
			ActionableMessage:  ev.ActionableMessage,
			ProgressPercentage: highest,
			IsError:            ev.IsError,
			CreatedAt:          time.Now(),
		}
		if err := s.statusRepo.Create(ctx, stored); err != nil {
			s.logger.Error("AnalysisService", "Failed to persist status event", map[string]interface{}{
				"analysis_id": analysisID,
				"error":       err.Error(),
			})
		}

		analysis, err := s.analysisRepo.FindByID(ctx, analysisID)
		if err != nil || analysis == nil {
			continue
		}
		analysis.Stage = ev.Stage
		analysis.Progress = highest
		analysis.UpdatedAt = time.Now()
		_ = s.analysisRepo.Update(ctx, analysis)

		s.hub.Send(userID, model.StreamFrame{
			Type: model.FrameStatusEvent,
			Data: dto.StatusEventDTO{
				Stage:             stored.Stage,
				Message:           stored.Message,
				ActionableMessage: stored.ActionableMessage,
				Progress:          stored.ProgressPercentage,
				IsError:           stored.IsError,
				CreatedAt:         stored.CreatedAt,
			},
		})

		switch ev.Stage {
		case constant.StageComplete:
			terminal = true
			s.finalize(ctx, analysis, userID)
		case constant.StageFailed:
			terminal = true
			if s.eventPublisher != nil {
				_ = s.eventPublisher.Publish(ctx, events.NewAnalysisFailed(analysisID, userID, ev.Message))
			}
		}
	}

	if !terminal {
		// The feed drained without ever reporting a terminal stage (upstream
		// hangup or the monitor timeout); the record must not sit on a
		// non-terminal stage forever. The monitor context is likely expired
		// by now, so the failure is written on a fresh one.
		s.logger.Warn("AnalysisService", "Status feed ended without a terminal stage", map[string]interface{}{
			"analysis_id": analysisID,
		})
		failCtx := context.Background()
		analysis, err := s.analysisRepo.FindByID(failCtx, analysisID)
		if err == nil && analysis != nil {
			s.recordFailure(failCtx, analysis, "Lost connection to the analysis service.")
			if s.eventPublisher != nil {
				_ = s.eventPublisher.Publish(failCtx, events.NewAnalysisFailed(analysisID, userID, "status feed interrupted"))
			}
		}
	}
}

// finalize pulls the observation payload once the pipeline reports
// completion.
func (s *analysisService) finalize(ctx context.Context, analysis *model.Analysis, userID uuid.UUID) {
	obs, err := s.backend.FetchObservation(ctx, analysis.UpstreamID)
	if err != nil {
		s.logger.Error("AnalysisService", "Failed to fetch observation", map[string]interface{}{
			"analysis_id": analysis.ID,
			"error":       err.Error(),
		})
		s.recordFailure(ctx, analysis, "The analysis finished but its results could not be retrieved.")
		return
	}

	analysis.Caption = obs.Caption
	analysis.Visual = obs.Visual
	analysis.Engagement = obs.Engagement
	analysis.PlatformSignals = obs.PlatformSignals
	if len(obs.Result) > 0 {
		analysis.Result = datatypes.JSON(obs.Result)
	}
	analysis.Stage = constant.StageComplete
	analysis.Progress = 100
	analysis.UpdatedAt = time.Now()
	if err := s.analysisRepo.Update(ctx, analysis); err != nil {
		s.logger.Error("AnalysisService", "Failed to store observation", map[string]interface{}{
			"analysis_id": analysis.ID,
			"error":       err.Error(),
		})
		return
	}

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, events.NewAnalysisCompleted(analysis.ID, userID))
	}
}

func (s *analysisService) recordFailure(ctx context.Context, analysis *model.Analysis, message string) {
	analysis.Stage = constant.StageFailed
	analysis.UpdatedAt = time.Now()
	_ = s.analysisRepo.Update(ctx, analysis)

	stored := &model.StatusEvent{
		ID:                 uuid.New(),
		AnalysisID:         analysis.ID,
		Stage:              constant.StageFailed,
		Message:            message,
		ProgressPercentage: analysis.Progress,
		IsError:            true,
		CreatedAt:          time.Now(),
	}
	_ = s.statusRepo.Create(ctx, stored)

	s.hub.Send(analysis.UserID, model.StreamFrame{
		Type: model.FrameStatusEvent,
		Data: dto.StatusEventDTO{
			Stage:     stored.Stage,
			Message:   stored.Message,
			Progress:  stored.ProgressPercentage,
			IsError:   true,
			CreatedAt: stored.CreatedAt,
		},
	})
}

func (s *analysisService) GetAnalysis(ctx context.Context, userID, analysisID uuid.UUID) (*dto.AnalysisDetailResponse, error) {
	analysis, err := s.analysisRepo.FindByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if analysis == nil || analysis.UserID != userID {
		return nil, ErrAnalysisNotFound
	}

	feed, err := s.statusRepo.FindAllByAnalysisID(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	resp := &dto.AnalysisDetailResponse{
		Id:        analysis.ID,
		Platform:  analysis.Platform,
		Stage:     analysis.Stage,
		Progress:  analysis.Progress,
		PostURLs:  analysis.PostURLs,
		CreatedAt: analysis.CreatedAt,
	}
	for _, ev := range feed {
		resp.Events = append(resp.Events, dto.StatusEventDTO{
			Stage:             ev.Stage,
			Message:           ev.Message,
			ActionableMessage: ev.ActionableMessage,
			Progress:          ev.ProgressPercentage,
			IsError:           ev.IsError,
			CreatedAt:         ev.CreatedAt,
		})
	}
	if analysis.Stage == constant.StageComplete {
		resp.Observation = &dto.ObservationDTO{
			Caption:         analysis.Caption,
			Visual:          analysis.Visual,
			Engagement:      analysis.Engagement,
			PlatformSignals: analysis.PlatformSignals,
		}
		completedAt := analysis.UpdatedAt
		resp.CompletedAt = &completedAt
	}
	return resp, nil
}

func (s *analysisService) ListAnalyses(ctx context.Context, userID uuid.UUID, limit, offset int) ([]dto.AnalysisSummaryResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := s.analysisRepo.FindAllByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AnalysisSummaryResponse, 0, len(list))
	for _, a := range list {
		out = append(out, dto.AnalysisSummaryResponse{
			Id:        a.ID,
			Platform:  a.Platform,
			Stage:     a.Stage,
			Progress:  a.Progress,
			PostURLs:  a.PostURLs,
			CreatedAt: a.CreatedAt,
		})
	}
	return out, nil
}
