package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"postlens-be/internal/constant"
	"postlens-be/internal/dto"
	"postlens-be/internal/model"
	"postlens-be/internal/repository/memory"
	"postlens-be/internal/signal"
	"postlens-be/internal/websocket"
	"postlens-be/pkg/store"
	"postlens-be/pkg/upstream"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatHarness struct {
	svc          IChatService
	sessionRepo  *fakeChatSessionRepo
	messageRepo  *fakeChatMessageRepo
	analysisRepo *fakeAnalysisRepo
	streamStates *memory.StreamStateRepository
	backend      *fakeChatBackend
	bus          *signal.Bus
	userID       uuid.UUID
	analysisID   uuid.UUID
}

func newChatHarness(t *testing.T, backend *fakeChatBackend) *chatHarness {
	t.Helper()

	sessionRepo := &fakeChatSessionRepo{}
	messageRepo := &fakeChatMessageRepo{}
	analysisRepo := newFakeAnalysisRepo()
	streamStates := memory.NewStreamStateRepository()
	bus := signal.NewBus(watermill.NopLogger{})
	hub := websocket.NewHub(nil, nopLogger{})

	userID := uuid.New()
	analysisID := uuid.New()
	require.NoError(t, analysisRepo.Create(context.Background(), &model.Analysis{
		ID:         analysisID,
		UserID:     userID,
		UpstreamID: "up-analysis",
		Platform:   constant.PlatformInstagram,
		Stage:      constant.StageComplete,
	}))

	svc := NewChatService(sessionRepo, messageRepo, analysisRepo, streamStates, backend, bus, hub, nopLogger{})
	return &chatHarness{
		svc:          svc,
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		analysisRepo: analysisRepo,
		streamStates: streamStates,
		backend:      backend,
		bus:          bus,
		userID:       userID,
		analysisID:   analysisID,
	}
}

func (h *chatHarness) waitReleased(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		state, ok := h.streamStates.Get(h.userID.String())
		return !ok || !state.IsStreaming
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendMessage_EmptyInputIsSilentNoOp(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{sessionID: "up-chat"})

	res, err := h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
		AnalysisId: h.analysisID,
		Message:    "   \n  ",
	})
	require.NoError(t, err)
	assert.Nil(t, res)

	sessions, streams := h.backend.calls()
	assert.Zero(t, sessions)
	assert.Zero(t, streams)
}

func TestSendMessage_BusyIsSilentNoOp(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{sessionID: "up-chat"})

	h.streamStates.Save(&store.StreamState{
		UserID:      h.userID.String(),
		IsStreaming: true,
	})

	res, err := h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
		AnalysisId: h.analysisID,
		Message:    "hello",
	})
	require.NoError(t, err)
	assert.Nil(t, res)

	_, streams := h.backend.calls()
	assert.Zero(t, streams)
}

func TestSendMessage_LazySessionAndStreamedReply(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{
		sessionID: "up-chat",
		chunks: []upstream.Chunk{
			{Text: "The caption "},
			{Text: "works well."},
			{Done: true},
		},
	})

	res, err := h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
		AnalysisId: h.analysisID,
		Message:    "  How is the caption?  ",
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Streaming)
	assert.Equal(t, "How is the caption?", res.Sent.Content)

	h.waitReleased(t)

	// Session was created lazily, seeded with the greeting.
	sessions, _ := h.sessionRepo.FindAllByUserAndAnalysis(context.Background(), h.userID, h.analysisID)
	require.Len(t, sessions, 1)
	assert.Equal(t, "up-chat", sessions[0].UpstreamID)

	messages := h.messageRepo.snapshot()
	require.Len(t, messages, 3) // greeting + user + reply
	assert.Equal(t, constant.ChatMessageRoleModel, messages[0].Role)
	assert.Equal(t, constant.ChatGreetingMessage, messages[0].Content)
	assert.Equal(t, constant.ChatMessageRoleUser, messages[1].Role)
	assert.Equal(t, constant.ChatMessageRoleModel, messages[2].Role)
	assert.Equal(t, "The caption works well.", messages[2].Content)
}

func TestSendMessage_SecondSendReusesSession(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{
		sessionID: "up-chat",
		chunks:    []upstream.Chunk{{Text: "ok", Done: true}},
	})

	_, err := h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
		AnalysisId: h.analysisID,
		Message:    "first",
	})
	require.NoError(t, err)
	h.waitReleased(t)

	_, err = h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
		AnalysisId: h.analysisID,
		Message:    "second",
	})
	require.NoError(t, err)
	h.waitReleased(t)

	sessionCalls, _ := h.backend.calls()
	assert.Equal(t, 1, sessionCalls)

	sessions, _ := h.sessionRepo.FindAllByUserAndAnalysis(context.Background(), h.userID, h.analysisID)
	assert.Len(t, sessions, 1)
}

func TestSendMessage_TransportFailureRollsBackDraft(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{
		sessionID: "up-chat",
		streamErr: errors.New("connection refused"),
	})

	// Observe the rollback signal before sending. Publishing blocks until the
	// subscriber acks, so the signal is consumed on its own goroutine.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errSignals, err := h.bus.Subscribe(ctx, signal.TopicMessageError)
	require.NoError(t, err)

	received := make(chan signal.MessageError, 1)
	go func() {
		msg := <-errSignals
		var sig signal.MessageError
		if err := signal.Decode(msg, &sig); err == nil {
			received <- sig
		}
		msg.Ack()
	}()

	_, err = h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
		AnalysisId: h.analysisID,
		Message:    "  please analyze this  ",
	})
	require.Error(t, err)

	h.waitReleased(t)

	// The optimistic user entry is gone; only the greeting survives.
	messages := h.messageRepo.snapshot()
	require.Len(t, messages, 1)
	assert.Equal(t, constant.ChatGreetingMessage, messages[0].Content)

	// The draft travels back verbatim (trimmed form, as it was sent).
	select {
	case sig := <-received:
		assert.Equal(t, "please analyze this", sig.Draft)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a message_error signal")
	}
}

func TestSendMessage_ConcurrentSendsClaimOnce(t *testing.T) {
	hold := make(chan struct{})
	backend := &fakeChatBackend{
		sessionID: "up-chat",
		hold:      hold,
		chunks:    []upstream.Chunk{{Text: "ok", Done: true}},
	}
	h := newChatHarness(t, backend)

	const senders = 8
	var wg sync.WaitGroup
	var accepted int64
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
				AnalysisId: h.analysisID,
				Message:    "hello",
			})
			if err == nil && res != nil {
				atomic.AddInt64(&accepted, 1)
			}
		}()
	}
	wg.Wait()

	// The first send is still streaming (chunks are held back), so exactly
	// one claim may win.
	assert.EqualValues(t, 1, atomic.LoadInt64(&accepted))
	_, streams := backend.calls()
	assert.Equal(t, 1, streams)

	close(hold)
	h.waitReleased(t)
}

func TestSendMessage_StreamEndsWithoutCompletionRollsBack(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{
		sessionID: "up-chat",
		chunks:    []upstream.Chunk{{Text: "partial "}}, // channel closes, no Done
	})

	res, err := h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
		AnalysisId: h.analysisID,
		Message:    "tell me everything",
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	h.waitReleased(t)

	// The partial text was never persisted as a reply and the optimistic
	// entry is gone.
	messages := h.messageRepo.snapshot()
	require.Len(t, messages, 1)
	assert.Equal(t, constant.ChatGreetingMessage, messages[0].Content)
}

func TestSendMessage_MidStreamErrorRollsBack(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{
		sessionID: "up-chat",
		chunks: []upstream.Chunk{
			{Text: "partial "},
			{Err: errors.New("stream interrupted")},
		},
	})

	res, err := h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
		AnalysisId: h.analysisID,
		Message:    "tell me more",
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	h.waitReleased(t)

	messages := h.messageRepo.snapshot()
	require.Len(t, messages, 1) // greeting only; the optimistic entry was removed
}

func TestClearHistory_RemovesSessionAndTranscript(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{
		sessionID: "up-chat",
		chunks:    []upstream.Chunk{{Text: "done", Done: true}},
	})

	_, err := h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
		AnalysisId: h.analysisID,
		Message:    "hi",
	})
	require.NoError(t, err)
	h.waitReleased(t)

	require.NoError(t, h.svc.ClearHistory(context.Background(), h.userID, h.analysisID))

	sessions, _ := h.sessionRepo.FindAllByUserAndAnalysis(context.Background(), h.userID, h.analysisID)
	assert.Empty(t, sessions)
	assert.Empty(t, h.messageRepo.snapshot())
}

func TestClearHistory_RefusedWhileStreaming(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{sessionID: "up-chat"})

	h.streamStates.Save(&store.StreamState{UserID: h.userID.String(), IsStreaming: true})

	err := h.svc.ClearHistory(context.Background(), h.userID, h.analysisID)
	assert.ErrorIs(t, err, ErrChatBusy)
}

func TestGetHistory_EmptyWithoutSession(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{sessionID: "up-chat"})

	res, err := h.svc.GetHistory(context.Background(), h.userID, h.analysisID)
	require.NoError(t, err)
	assert.Empty(t, res.Messages)
}

func TestGetHistory_ReturnsTranscriptInOrder(t *testing.T) {
	h := newChatHarness(t, &fakeChatBackend{
		sessionID: "up-chat",
		chunks:    []upstream.Chunk{{Text: "sure", Done: true}},
	})

	_, err := h.svc.SendMessage(context.Background(), h.userID, &dto.SendMessageRequest{
		AnalysisId: h.analysisID,
		Message:    "hi",
	})
	require.NoError(t, err)
	h.waitReleased(t)

	res, err := h.svc.GetHistory(context.Background(), h.userID, h.analysisID)
	require.NoError(t, err)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, constant.ChatGreetingMessage, res.Messages[0].Content)
	assert.Equal(t, "hi", res.Messages[1].Content)
	assert.Equal(t, "sure", res.Messages[2].Content)
}
