package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"postlens-be/internal/constant"
	"postlens-be/internal/dto"
	"postlens-be/internal/model"
	"postlens-be/internal/pkg/logger"
	"postlens-be/internal/repository"
	"postlens-be/internal/repository/memory"
	"postlens-be/internal/signal"
	"postlens-be/internal/websocket"
	"postlens-be/pkg/upstream"

	"github.com/google/uuid"
)

const chatStreamTimeout = 5 * time.Minute

// ChatBackend is the slice of the upstream chat client this service uses.
type ChatBackend interface {
	CreateSession(ctx context.Context, analysisID string) (string, error)
	StreamMessage(ctx context.Context, sessionID, messageText string) (<-chan upstream.Chunk, error)
}

type IChatService interface {
	// SendMessage runs the optimistic send. A nil response with a nil error
	// means the send was silently ignored (empty input or a response already
	// streaming).
	SendMessage(ctx context.Context, userID uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	GetHistory(ctx context.Context, userID, analysisID uuid.UUID) (*dto.ChatHistoryResponse, error)
	ClearHistory(ctx context.Context, userID, analysisID uuid.UUID) error
}

// ErrChatBusy rejects destructive history operations while a response is
// still streaming for the user.
var ErrChatBusy = errors.New("a response is still streaming")

// errStreamInterrupted marks a chunk stream that closed (timeout or upstream
// hangup) before the completion chunk arrived.
var errStreamInterrupted = errors.New("response stream ended before completion")

type chatService struct {
	sessionRepo  repository.ChatSessionRepository
	messageRepo  repository.ChatMessageRepository
	analysisRepo repository.AnalysisRepository
	streamStates *memory.StreamStateRepository
	backend      ChatBackend
	bus          *signal.Bus
	hub          *websocket.Hub
	logger       logger.ILogger
}

func NewChatService(
	sessionRepo repository.ChatSessionRepository,
	messageRepo repository.ChatMessageRepository,
	analysisRepo repository.AnalysisRepository,
	streamStates *memory.StreamStateRepository,
	backend ChatBackend,
	bus *signal.Bus,
	hub *websocket.Hub,
	log logger.ILogger,
) IChatService {
	return &chatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		analysisRepo: analysisRepo,
		streamStates: streamStates,
		backend:      backend,
		bus:          bus,
		hub:          hub,
		logger:       log,
	}
}

func (s *chatService) SendMessage(ctx context.Context, userID uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, nil
	}

	// Claim the sending flag before anything can block. The claim is atomic,
	// so a second send racing this one is dropped without error and the
	// client keeps its input untouched.
	state, claimed := s.streamStates.ClaimStreaming(userID.String())
	if !claimed {
		return nil, nil
	}
	state.PendingUserMessage = &text
	s.streamStates.Save(state)

	session, err := s.ensureSession(ctx, userID, req.AnalysisId, text)
	if err != nil {
		s.release(userID)
		return nil, err
	}
	state.SessionID = session.ID.String()
	s.streamStates.Save(state)

	// Optimistic transcript entry; rolled back verbatim on failure.
	userMsg := &model.ChatMessage{
		ID:            uuid.New(),
		ChatSessionID: session.ID,
		Role:          constant.ChatMessageRoleUser,
		Content:       text,
		CreatedAt:     time.Now(),
	}
	if err := s.messageRepo.Create(ctx, userMsg); err != nil {
		s.release(userID)
		return nil, err
	}

	_ = s.bus.MessageSending(signal.MessageSending{
		UserID:    userID.String(),
		SessionID: session.ID.String(),
		Draft:     text,
	})

	streamCtx, cancel := context.WithTimeout(context.Background(), chatStreamTimeout)
	chunks, err := s.backend.StreamMessage(streamCtx, session.UpstreamID, text)
	if err != nil {
		cancel()
		s.rollback(ctx, userID, session.ID, userMsg.ID, text, err)
		s.release(userID)
		return nil, err
	}

	go s.consume(streamCtx, cancel, userID, session, userMsg, text, chunks)

	return &dto.SendMessageResponse{
		SessionId: session.ID,
		Sent: dto.ChatMessageDTO{
			Id:        userMsg.ID,
			Role:      userMsg.Role,
			Content:   userMsg.Content,
			CreatedAt: userMsg.CreatedAt,
		},
		Streaming: true,
	}, nil
}

// ensureSession lazily creates the chat session on first send: the upstream
// session first, then the local record seeded with the greeting.
func (s *chatService) ensureSession(ctx context.Context, userID, analysisID uuid.UUID, firstMessage string) (*model.ChatSession, error) {
	analysis, err := s.analysisRepo.FindByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if analysis == nil || analysis.UserID != userID {
		return nil, ErrAnalysisNotFound
	}

	existing, err := s.sessionRepo.FindAllByUserAndAnalysis(ctx, userID, analysisID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	upstreamID, err := s.backend.CreateSession(ctx, analysis.UpstreamID)
	if err != nil {
		return nil, errors.New("could not start chat session")
	}

	title := firstMessage
	if len(title) > 50 {
		title = title[:50]
	}
	session := &model.ChatSession{
		ID:         uuid.New(),
		UserID:     userID,
		AnalysisID: analysisID,
		UpstreamID: upstreamID,
		Title:      title,
		CreatedAt:  time.Now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	greeting := &model.ChatMessage{
		ID:            uuid.New(),
		ChatSessionID: session.ID,
		Role:          constant.ChatMessageRoleModel,
		Content:       constant.ChatGreetingMessage,
		CreatedAt:     time.Now(),
	}
	if err := s.messageRepo.Create(ctx, greeting); err != nil {
		return nil, err
	}
	return session, nil
}

// consume drains the response stream, pushing each fragment to the owner's
// websocket. The sending flag is released on every exit path.
func (s *chatService) consume(ctx context.Context, cancel context.CancelFunc, userID uuid.UUID, session *model.ChatSession, userMsg *model.ChatMessage, draft string, chunks <-chan upstream.Chunk) {
	defer cancel()
	defer s.release(userID)

	var full strings.Builder
	unitIndex := 0
	completed := false
	for chunk := range chunks {
		if chunk.Err != nil {
			s.rollback(ctx, userID, session.ID, userMsg.ID, draft, chunk.Err)
			return
		}

		if chunk.Text != "" {
			full.WriteString(chunk.Text)
			unitIndex++

			if state, ok := s.streamStates.Get(userID.String()); ok {
				state.PartialText = full.String()
				s.streamStates.Save(state)
			}

			s.hub.Send(userID, model.StreamFrame{
				Type: model.FrameChatChunk,
				Data: map[string]interface{}{
					"session_id": session.ID,
					"text":       chunk.Text,
				},
			})
			_ = s.bus.TypingProgress(signal.TypingProgress{
				UserID:    userID.String(),
				Source:    "chat",
				UnitIndex: unitIndex,
				Displayed: full.String(),
			})
		}

		if chunk.Done {
			completed = true
			break
		}
	}

	// A channel close without a completion chunk means the stream was cut
	// (timeout or upstream hangup); the partial text is not a reply.
	if !completed {
		s.rollback(ctx, userID, session.ID, userMsg.ID, draft, errStreamInterrupted)
		return
	}

	reply := &model.ChatMessage{
		ID:            uuid.New(),
		ChatSessionID: session.ID,
		Role:          constant.ChatMessageRoleModel,
		Content:       full.String(),
		CreatedAt:     time.Now(),
	}
	if err := s.messageRepo.Create(ctx, reply); err != nil {
		s.logger.Error("ChatService", "Failed to persist reply", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	s.hub.Send(userID, model.StreamFrame{
		Type: model.FrameChatComplete,
		Data: dto.ChatMessageDTO{
			Id:        reply.ID,
			Role:      reply.Role,
			Content:   reply.Content,
			CreatedAt: reply.CreatedAt,
		},
	})
	_ = s.bus.MessagesLoaded(signal.MessagesLoaded{
		UserID:      userID.String(),
		SessionID:   session.ID.String(),
		HasMessages: true,
	})
}

// rollback undoes the optimistic send: the transcript entry is removed and
// the draft travels back to the client verbatim for the input field.
func (s *chatService) rollback(ctx context.Context, userID, sessionID, messageID uuid.UUID, draft string, cause error) {
	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		s.logger.Error("ChatService", "Failed to remove optimistic message", map[string]interface{}{
			"message_id": messageID,
			"error":      err.Error(),
		})
	}

	_ = s.bus.MessageError(signal.MessageError{
		UserID:    userID.String(),
		SessionID: sessionID.String(),
		Draft:     draft,
		Reason:    cause.Error(),
	})
	s.hub.Send(userID, model.StreamFrame{
		Type: model.FrameChatError,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"draft":      draft,
			"reason":     cause.Error(),
		},
	})
}

func (s *chatService) release(userID uuid.UUID) {
	if state, ok := s.streamStates.Get(userID.String()); ok {
		state.IsStreaming = false
		state.PendingUserMessage = nil
		state.PartialText = ""
		s.streamStates.Save(state)
	}
}

func (s *chatService) GetHistory(ctx context.Context, userID, analysisID uuid.UUID) (*dto.ChatHistoryResponse, error) {
	sessions, err := s.sessionRepo.FindAllByUserAndAnalysis(ctx, userID, analysisID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		_ = s.bus.MessagesLoaded(signal.MessagesLoaded{UserID: userID.String(), HasMessages: false})
		return &dto.ChatHistoryResponse{Messages: []dto.ChatMessageDTO{}}, nil
	}

	session := sessions[0]
	messages, err := s.messageRepo.FindAllBySessionID(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ChatHistoryResponse{
		SessionId: session.ID,
		Messages:  make([]dto.ChatMessageDTO, 0, len(messages)),
	}
	hasUserMessages := false
	for _, m := range messages {
		if m.Role == constant.ChatMessageRoleUser {
			hasUserMessages = true
		}
		resp.Messages = append(resp.Messages, dto.ChatMessageDTO{
			Id:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	_ = s.bus.MessagesLoaded(signal.MessagesLoaded{
		UserID:      userID.String(),
		SessionID:   session.ID.String(),
		HasMessages: hasUserMessages,
	})
	return resp, nil
}

// ClearHistory removes the conversation for an analysis: every session the
// user holds on it and their transcripts. Refused while a response streams.
func (s *chatService) ClearHistory(ctx context.Context, userID, analysisID uuid.UUID) error {
	if state, ok := s.streamStates.Get(userID.String()); ok && state.IsStreaming {
		return ErrChatBusy
	}

	sessions, err := s.sessionRepo.FindAllByUserAndAnalysis(ctx, userID, analysisID)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if err := s.messageRepo.DeleteBySessionID(ctx, session.ID); err != nil {
			return err
		}
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
			return err
		}
	}

	_ = s.bus.MessagesLoaded(signal.MessagesLoaded{UserID: userID.String(), HasMessages: false})
	return nil
}
