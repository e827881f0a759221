package scriptload

import (
	"context"
	"sync"
	"time"
)

// State of an external resource load.
type State int

const (
	NotLoaded State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// DefaultTimeout bounds how long a load may take before it is declared Failed
// and callers fall back to static rendering.
const DefaultTimeout = 10 * time.Second

// Fetch performs the actual load. It should honor ctx, but the loader
// enforces the timeout even when it does not.
type Fetch func(ctx context.Context) error

// Loader tracks one external script/widget resource through the NotLoaded →
// Loading → Loaded/Failed lifecycle. The load runs at most once; concurrent
// callers share the outcome.
type Loader struct {
	fetch   Fetch
	timeout time.Duration

	mu    sync.Mutex
	state State
	done  chan struct{}
}

func NewLoader(fetch Fetch, timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Loader{
		fetch:   fetch,
		timeout: timeout,
		state:   NotLoaded,
	}
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load kicks off the fetch if needed and blocks until it settles or ctx is
// cancelled. The returned state is Loaded, Failed, or (only on cancellation)
// Loading.
func (l *Loader) Load(ctx context.Context) State {
	l.mu.Lock()
	switch l.state {
	case Loaded, Failed:
		st := l.state
		l.mu.Unlock()
		return st
	case NotLoaded:
		l.state = Loading
		l.done = make(chan struct{})
		go l.run()
	}
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
		return l.State()
	case <-ctx.Done():
		return Loading
	}
}

func (l *Loader) run() {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- l.fetch(ctx) }()

	var err error
	select {
	case err = <-result:
	case <-ctx.Done():
		// A fetch that ignores its context still cannot hold the page
		// hostage past the timeout.
		err = ctx.Err()
	}

	l.mu.Lock()
	if err != nil {
		l.state = Failed
	} else {
		l.state = Loaded
	}
	close(l.done)
	l.mu.Unlock()
}
