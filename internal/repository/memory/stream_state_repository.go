package memory

import (
	"sync"
	"time"

	"postlens-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// StreamStateRepository keeps per-user streaming state in memory. Entries
// expire on their own so an abandoned page session cannot pin the sending
// flag forever. States are stored and handed out by value: callers on
// different goroutines never share a mutable struct.
type StreamStateRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewStreamStateRepository() *StreamStateRepository {
	c := cache.New(30*time.Minute, 10*time.Minute)
	return &StreamStateRepository{cache: c}
}

func (r *StreamStateRepository) Save(state *store.StreamState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Set(state.UserID, *state, cache.DefaultExpiration)
}

func (r *StreamStateRepository) Get(userID string) (*store.StreamState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x, found := r.cache.Get(userID); found {
		cp := x.(store.StreamState)
		return &cp, true
	}
	return nil, false
}

// ClaimStreaming flips the sending flag on as one atomic step. It reports
// false when a response is already streaming for the user, so two concurrent
// sends can never both pass the gate.
func (r *StreamStateRepository) ClaimStreaming(userID string) (*store.StreamState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := store.StreamState{UserID: userID}
	if x, found := r.cache.Get(userID); found {
		state = x.(store.StreamState)
		if state.IsStreaming {
			return nil, false
		}
	}
	state.IsStreaming = true
	state.PendingUserMessage = nil
	state.PartialText = ""
	r.cache.Set(userID, state, cache.DefaultExpiration)

	cp := state
	return &cp, true
}

func (r *StreamStateRepository) Delete(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(userID)
}
