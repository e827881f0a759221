package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"postlens-be/internal/config"
	"postlens-be/internal/constant"
	"postlens-be/internal/model"
	"postlens-be/internal/pkg/logger"
	"postlens-be/internal/repository"
	"postlens-be/internal/signal"
	"postlens-be/internal/websocket"
	"postlens-be/pkg/reveal"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

var ErrAnalysisNotComplete = errors.New("analysis has not completed yet")

// IStreamService drives the progressive observation reveal: frames go out
// over the websocket while typing-progress signals feed the in-process bus.
type IStreamService interface {
	// StartReveal kicks off the reveal for a completed analysis. A second call
	// for the same user supersedes the running one. mode is "animated",
	// "static", or empty for the configured default.
	StartReveal(ctx context.Context, userID, analysisID uuid.UUID, mode string) error

	// CancelReveal freezes the user's running reveal, if any.
	CancelReveal(userID uuid.UUID)
}

type streamService struct {
	analysisRepo repository.AnalysisRepository
	hub          *websocket.Hub
	bus          *signal.Bus
	cfg          config.RevealConfig
	logger       logger.ILogger

	mu     sync.Mutex
	active map[uuid.UUID]*reveal.Orchestrator
}

func NewStreamService(
	analysisRepo repository.AnalysisRepository,
	hub *websocket.Hub,
	bus *signal.Bus,
	cfg config.RevealConfig,
	log logger.ILogger,
) IStreamService {
	return &streamService{
		analysisRepo: analysisRepo,
		hub:          hub,
		bus:          bus,
		cfg:          cfg,
		logger:       log,
		active:       make(map[uuid.UUID]*reveal.Orchestrator),
	}
}

func revealHeader(platform string) string {
	switch platform {
	case constant.PlatformInstagram:
		return "Instagram Post Analysis"
	case constant.PlatformX:
		return "X Post Analysis"
	case constant.PlatformYouTube:
		return "YouTube Post Analysis"
	}
	return "Post Analysis"
}

func (s *streamService) StartReveal(ctx context.Context, userID, analysisID uuid.UUID, mode string) error {
	analysis, err := s.analysisRepo.FindByID(ctx, analysisID)
	if err != nil {
		return err
	}
	if analysis == nil || analysis.UserID != userID {
		return ErrAnalysisNotFound
	}
	if analysis.Stage != constant.StageComplete {
		return ErrAnalysisNotComplete
	}

	animate := s.cfg.Animate
	switch mode {
	case "animated":
		animate = true
	case "static":
		animate = false
	}

	fields := reveal.ObservationFields{
		Caption:         analysis.Caption,
		Visual:          analysis.Visual,
		Engagement:      analysis.Engagement,
		PlatformSignals: analysis.PlatformSignals,
	}

	orch := reveal.NewOrchestrator(revealHeader(analysis.Platform), fields, reveal.OrchestratorConfig{
		Animate: animate,
		Pacing: reveal.Config{
			InitialDelay:  time.Duration(s.cfg.InitialDelayMs) * time.Millisecond,
			LineInterval:  time.Duration(s.cfg.LineIntervalMs) * time.Millisecond,
			WordInterval:  time.Duration(s.cfg.WordIntervalMs) * time.Millisecond,
			ProgressEvery: s.cfg.ProgressEvery,
		},
		OnSectionStart: func(index int, section reveal.Section) {
			s.hub.Send(userID, model.StreamFrame{
				Type: model.FrameRevealStart,
				Data: map[string]interface{}{
					"analysis_id":   analysisID,
					"section_id":    section.ID,
					"section_index": index,
					"title":         section.Title,
				},
			})
		},
		OnProgress: func(ev reveal.ProgressEvent) {
			s.hub.Send(userID, model.StreamFrame{
				Type: model.FrameRevealUnit,
				Data: map[string]interface{}{
					"analysis_id":   analysisID,
					"block":         ev.Block,
					"section_id":    ev.SectionID,
					"section_index": ev.SectionIndex,
					"unit_index":    ev.UnitIndex,
					"displayed":     ev.Displayed,
				},
			})
			_ = s.bus.TypingProgress(signal.TypingProgress{
				UserID:    userID.String(),
				Source:    "observation",
				SectionID: ev.SectionID,
				UnitIndex: ev.UnitIndex,
				Displayed: ev.Displayed,
			})
		},
		OnSectionComplete: func(index int, section reveal.Section) {
			s.hub.Send(userID, model.StreamFrame{
				Type: model.FrameRevealDone,
				Data: map[string]interface{}{
					"analysis_id":   analysisID,
					"section_id":    section.ID,
					"section_index": index,
					"all_complete":  false,
				},
			})
		},
		OnAllComplete: func() {
			s.hub.Send(userID, model.StreamFrame{
				Type: model.FrameRevealDone,
				Data: map[string]interface{}{
					"analysis_id":  analysisID,
					"all_complete": true,
				},
			})
			s.mu.Lock()
			delete(s.active, userID)
			s.mu.Unlock()
		},
	})

	s.mu.Lock()
	if prev, ok := s.active[userID]; ok {
		prev.Cancel()
	}
	s.active[userID] = orch
	s.mu.Unlock()

	go orch.Run()
	return nil
}

func (s *streamService) CancelReveal(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if orch, ok := s.active[userID]; ok {
		orch.Cancel()
		delete(s.active, userID)
	}
}

// SignalForwarder relays bus signals to their target user's websocket so the
// browser sees the same broadcasts in-process listeners do.
type SignalForwarder struct {
	bus    *signal.Bus
	hub    *websocket.Hub
	logger logger.ILogger
}

func NewSignalForwarder(bus *signal.Bus, hub *websocket.Hub, log logger.ILogger) *SignalForwarder {
	return &SignalForwarder{bus: bus, hub: hub, logger: log}
}

// Run subscribes to every signal topic and forwards until ctx is cancelled.
func (f *SignalForwarder) Run(ctx context.Context) error {
	topics := []string{
		signal.TopicMessagesLoaded,
		signal.TopicMessageSending,
		signal.TopicMessageError,
		signal.TopicTypingProgress,
	}
	for _, topic := range topics {
		messages, err := f.bus.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go f.forward(topic, messages)
	}
	return nil
}

func (f *SignalForwarder) forward(topic string, messages <-chan *message.Message) {
	for msg := range messages {
		var envelope struct {
			UserID string `json:"user_id"`
		}
		if err := signal.Decode(msg, &envelope); err != nil {
			f.logger.Warn("SignalForwarder", "Undecodable signal", map[string]interface{}{
				"topic": topic,
				"error": err.Error(),
			})
			msg.Ack()
			continue
		}

		if uid, err := uuid.Parse(envelope.UserID); err == nil {
			f.hub.Send(uid, model.StreamFrame{
				Type: model.FrameSignal,
				Data: map[string]interface{}{
					"topic":   topic,
					"payload": json.RawMessage(msg.Payload),
				},
			})
		}
		msg.Ack()
	}
}
