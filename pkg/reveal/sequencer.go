package reveal

import (
	"strings"
	"sync"
	"time"
)

// State of a reveal session.
type State int

const (
	StateIdle State = iota
	StateRevealing
	StateComplete
)

// Mode determines the unit of disclosure.
type Mode int

const (
	// ModeLine reveals one full line per step (source contains line breaks).
	ModeLine Mode = iota
	// ModeWord reveals one word per step (single-line source).
	ModeWord
)

const (
	DefaultLineInterval  = 40 * time.Millisecond
	DefaultWordInterval  = 15 * time.Millisecond
	DefaultProgressEvery = 3
)

// Config controls pacing and notification cadence for one reveal session.
type Config struct {
	// InitialDelay is waited once before the first unit (and before the
	// synchronous completion of an empty source).
	InitialDelay time.Duration

	// LineInterval is the pause between line-mode steps.
	LineInterval time.Duration

	// WordInterval is the pause between word-mode steps. Word mode is faster
	// per unit because units are smaller.
	WordInterval time.Duration

	// ProgressEvery samples word-mode progress notifications: only every Nth
	// word notifies listeners. Line mode notifies on every step regardless.
	ProgressEvery int

	// OnProgress is invoked after a unit is appended. unitIndex is the index
	// of the unit just revealed; displayed is the accumulated text.
	OnProgress func(unitIndex int, displayed string)

	// OnComplete is invoked exactly once when the session finishes. It is not
	// invoked for sessions superseded by a newer Start.
	OnComplete func()
}

func (c *Config) fill() {
	if c.LineInterval <= 0 {
		c.LineInterval = DefaultLineInterval
	}
	if c.WordInterval <= 0 {
		c.WordInterval = DefaultWordInterval
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = DefaultProgressEvery
	}
}

// Session is the active disclosure of one text block. All mutation happens
// through the owning Sequencer; readers use the accessor methods.
type Session struct {
	seq        *Sequencer
	generation uint64

	source string
	units  []string
	sep    string
	mode   Mode

	cursor    int
	displayed string
	state     State

	done  chan struct{}
	abort chan struct{}
}

// Source returns the full text this session discloses.
func (s *Session) Source() string { return s.source }

// Mode reports whether the session reveals lines or words.
func (s *Session) Mode() Mode { return s.mode }

// UnitCount returns the number of units derived from the source.
func (s *Session) UnitCount() int { return len(s.units) }

func (s *Session) Cursor() int {
	s.seq.mu.Lock()
	defer s.seq.mu.Unlock()
	return s.cursor
}

func (s *Session) Displayed() string {
	s.seq.mu.Lock()
	defer s.seq.mu.Unlock()
	return s.displayed
}

func (s *Session) State() State {
	s.seq.mu.Lock()
	defer s.seq.mu.Unlock()
	return s.state
}

// Done is closed when the session reaches StateComplete. Superseded or
// cancelled sessions never close it.
func (s *Session) Done() <-chan struct{} { return s.done }

// Sequencer drives incremental disclosure of text blocks. At most one session
// is live per sequencer; starting a new session invalidates the pending steps
// of the previous one via a generation counter, so a stale timer can never
// mutate a superseded session.
type Sequencer struct {
	mu         sync.Mutex
	generation uint64
	active     *Session
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Start begins revealing sourceText and returns the new session. Any session
// already in flight is superseded immediately.
func (q *Sequencer) Start(sourceText string, cfg Config) *Session {
	cfg.fill()

	q.mu.Lock()
	q.generation++
	if q.active != nil {
		close(q.active.abort)
	}

	sess := &Session{
		seq:        q,
		generation: q.generation,
		source:     sourceText,
		state:      StateIdle,
		done:       make(chan struct{}),
		abort:      make(chan struct{}),
	}
	if strings.Contains(sourceText, "\n") {
		sess.mode = ModeLine
		sess.units = strings.Split(sourceText, "\n")
		sess.sep = "\n"
	} else {
		sess.mode = ModeWord
		sess.units = strings.Split(sourceText, " ")
		sess.sep = " "
	}
	q.active = sess
	q.mu.Unlock()

	go q.run(sess, cfg)
	return sess
}

// Cancel invalidates the active session without starting a new one.
func (q *Sequencer) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.generation++
	if q.active != nil {
		close(q.active.abort)
		q.active = nil
	}
}

// Active returns the current session, or nil.
func (q *Sequencer) Active() *Session {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

func (q *Sequencer) run(sess *Session, cfg Config) {
	if !q.wait(sess, cfg.InitialDelay) {
		return
	}

	// Empty or whitespace-only sources complete without any progress step.
	// This is the short-circuit for missing observation fields.
	if strings.TrimSpace(sess.source) == "" {
		q.mu.Lock()
		if sess.generation != q.generation {
			q.mu.Unlock()
			return
		}
		sess.cursor = len(sess.units)
		sess.displayed = sess.source
		sess.state = StateComplete
		q.mu.Unlock()

		if cfg.OnComplete != nil {
			cfg.OnComplete()
		}
		close(sess.done)
		return
	}

	interval := cfg.LineInterval
	if sess.mode == ModeWord {
		interval = cfg.WordInterval
	}

	for {
		q.mu.Lock()
		if sess.generation != q.generation {
			q.mu.Unlock()
			return
		}
		if sess.state == StateIdle {
			sess.state = StateRevealing
		}
		idx := sess.cursor
		if idx > 0 {
			sess.displayed += sess.sep
		}
		sess.displayed += sess.units[idx]
		sess.cursor++
		finished := sess.cursor == len(sess.units)
		if finished {
			sess.state = StateComplete
		}
		q.mu.Unlock()

		notify := sess.mode == ModeLine ||
			sess.cursor%cfg.ProgressEvery == 0 ||
			finished
		if notify && cfg.OnProgress != nil {
			cfg.OnProgress(idx, sess.Displayed())
		}

		if finished {
			if cfg.OnComplete != nil {
				cfg.OnComplete()
			}
			close(sess.done)
			return
		}

		if !q.wait(sess, interval) {
			return
		}
	}
}

// wait sleeps for d, returning false if the session was superseded meanwhile.
func (q *Sequencer) wait(sess *Session, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-sess.abort:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-sess.abort:
		return false
	}
}
