package service

import (
	"context"
	"sync"
	"time"

	"postlens-be/internal/model"
	"postlens-be/pkg/upstream"

	"github.com/google/uuid"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeAnalysisRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Analysis
	count int64
}

func newFakeAnalysisRepo() *fakeAnalysisRepo {
	return &fakeAnalysisRepo{items: make(map[uuid.UUID]*model.Analysis)}
}

func (r *fakeAnalysisRepo) Create(ctx context.Context, a *model.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *fakeAnalysisRepo) Update(ctx context.Context, a *model.Analysis) error {
	return r.Create(ctx, a)
}

func (r *fakeAnalysisRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeAnalysisRepo) FindAllByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Analysis
	for _, a := range r.items {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAnalysisRepo) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	return r.count, nil
}

type fakeStatusRepo struct {
	mu     sync.Mutex
	events []model.StatusEvent
}

func (r *fakeStatusRepo) Create(ctx context.Context, ev *model.StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
	return nil
}

func (r *fakeStatusRepo) FindAllByAnalysisID(ctx context.Context, analysisID uuid.UUID) ([]model.StatusEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.StatusEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *fakeStatusRepo) LatestProgress(ctx context.Context, analysisID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	highest := 0
	for _, ev := range r.events {
		if ev.AnalysisID == analysisID && ev.ProgressPercentage > highest {
			highest = ev.ProgressPercentage
		}
	}
	return highest, nil
}

func (r *fakeStatusRepo) snapshot() []model.StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.StatusEvent, len(r.events))
	copy(out, r.events)
	return out
}

type fakeBillingRepo struct {
	sub *model.Subscription
}

func (r *fakeBillingRepo) FindAllPlans(ctx context.Context) ([]model.Plan, error) { return nil, nil }
func (r *fakeBillingRepo) FindPlanByID(ctx context.Context, id uuid.UUID) (*model.Plan, error) {
	return nil, nil
}
func (r *fakeBillingRepo) FindPlanBySlug(ctx context.Context, slug string) (*model.Plan, error) {
	return nil, nil
}
func (r *fakeBillingRepo) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	return nil
}
func (r *fakeBillingRepo) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	return nil
}
func (r *fakeBillingRepo) FindSubscriptionByOrderID(ctx context.Context, orderID string) (*model.Subscription, error) {
	return nil, nil
}
func (r *fakeBillingRepo) FindActiveSubscription(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	return r.sub, nil
}

type fakeAnalysisBackend struct {
	mu          sync.Mutex
	jobID       string
	createErr   error
	events      []upstream.StatusEvent
	observation *upstream.Observation
	created     []upstream.CreateJobRequest
}

func (b *fakeAnalysisBackend) CreateJob(ctx context.Context, req *upstream.CreateJobRequest) (*upstream.CreateJobResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return nil, b.createErr
	}
	b.created = append(b.created, *req)
	return &upstream.CreateJobResponse{AnalysisID: b.jobID}, nil
}

func (b *fakeAnalysisBackend) StreamStatus(ctx context.Context, analysisID string) (<-chan upstream.StatusEvent, error) {
	ch := make(chan upstream.StatusEvent)
	go func() {
		defer close(ch)
		for _, ev := range b.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (b *fakeAnalysisBackend) FetchObservation(ctx context.Context, analysisID string) (*upstream.Observation, error) {
	return b.observation, nil
}

type fakeChatSessionRepo struct {
	mu       sync.Mutex
	sessions []model.ChatSession
}

func (r *fakeChatSessionRepo) Create(ctx context.Context, s *model.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, *s)
	return nil
}

func (r *fakeChatSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sessions {
		if r.sessions[i].ID == id {
			cp := r.sessions[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeChatSessionRepo) FindAllByUserAndAnalysis(ctx context.Context, userID, analysisID uuid.UUID) ([]model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ChatSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.AnalysisID == analysisID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeChatSessionRepo) UpdateTitle(ctx context.Context, id uuid.UUID, title string, updatedAt time.Time) error {
	return nil
}

func (r *fakeChatSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sessions {
		if r.sessions[i].ID == id {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeChatMessageRepo struct {
	mu       sync.Mutex
	messages []model.ChatMessage
}

func (r *fakeChatMessageRepo) Create(ctx context.Context, m *model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeChatMessageRepo) FindAllBySessionID(ctx context.Context, sessionID uuid.UUID) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ChatMessage
	for _, m := range r.messages {
		if m.ChatSessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeChatMessageRepo) CountBySessionID(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	msgs, _ := r.FindAllBySessionID(ctx, sessionID)
	return int64(len(msgs)), nil
}

func (r *fakeChatMessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeChatMessageRepo) DeleteBySessionID(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.messages[:0]
	for _, m := range r.messages {
		if m.ChatSessionID != sessionID {
			kept = append(kept, m)
		}
	}
	r.messages = kept
	return nil
}

func (r *fakeChatMessageRepo) snapshot() []model.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChatMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

type fakeChatBackend struct {
	mu           sync.Mutex
	sessionID    string
	sessionErr   error
	streamErr    error
	chunks       []upstream.Chunk
	hold         chan struct{} // when set, chunks are withheld until closed
	streamCalls  int
	sessionCalls int
}

func (b *fakeChatBackend) CreateSession(ctx context.Context, analysisID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionCalls++
	if b.sessionErr != nil {
		return "", b.sessionErr
	}
	return b.sessionID, nil
}

func (b *fakeChatBackend) StreamMessage(ctx context.Context, sessionID, messageText string) (<-chan upstream.Chunk, error) {
	b.mu.Lock()
	b.streamCalls++
	if b.streamErr != nil {
		b.mu.Unlock()
		return nil, b.streamErr
	}
	chunks := make([]upstream.Chunk, len(b.chunks))
	copy(chunks, b.chunks)
	hold := b.hold
	b.mu.Unlock()

	ch := make(chan upstream.Chunk)
	go func() {
		defer close(ch)
		if hold != nil {
			select {
			case <-hold:
			case <-ctx.Done():
				return
			}
		}
		for _, c := range chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (b *fakeChatBackend) calls() (sessions, streams int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionCalls, b.streamCalls
}
