package reveal

import (
	"strings"
	"sync"
)

// Block identifies which part of the observation a progress event belongs to.
type Block string

const (
	BlockHeader  Block = "header"
	BlockTitle   Block = "title"
	BlockContent Block = "content"
)

// Section is one named observation field eligible for sequential reveal.
type Section struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ObservationFields is the raw analysis observation payload. The canonical
// reveal order is fixed: caption, visual, engagement, platform signals.
type ObservationFields struct {
	Caption         string `json:"caption"`
	Visual          string `json:"visual"`
	Engagement      string `json:"engagement"`
	PlatformSignals string `json:"platform_signals"`
}

// BuildQueue filters the observation down to the sections that actually have
// content, preserving the canonical field order.
func BuildQueue(f ObservationFields) []Section {
	candidates := []Section{
		{ID: "caption", Title: "Caption", Content: f.Caption},
		{ID: "visual", Title: "Visual Analysis", Content: f.Visual},
		{ID: "engagement", Title: "Engagement", Content: f.Engagement},
		{ID: "platform_signals", Title: "Platform Signals", Content: f.PlatformSignals},
	}

	var sections []Section
	for _, c := range candidates {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		sections = append(sections, c)
	}
	return sections
}

// ProgressEvent is emitted as units of the header or a section are revealed.
type ProgressEvent struct {
	Block        Block  `json:"block"`
	SectionID    string `json:"section_id,omitempty"`
	SectionIndex int    `json:"section_index"`
	UnitIndex    int    `json:"unit_index"`
	Displayed    string `json:"displayed"`
}

// OrchestratorConfig wires pacing plus the listener callbacks.
type OrchestratorConfig struct {
	Pacing Config

	// Animate false switches to static-display mode: everything is marked
	// revealed immediately and OnAllComplete fires without any timer.
	Animate bool

	// OnSectionStart fires when a section becomes active. Sections beyond the
	// active index are never emitted, so listeners cannot render them early.
	OnSectionStart func(index int, section Section)

	// OnProgress fires per revealed unit (sampled in word mode).
	OnProgress func(ev ProgressEvent)

	// OnSectionComplete fires after a section's content finishes.
	OnSectionComplete func(index int, section Section)

	// OnAllComplete fires exactly once, after the header and every section
	// completed (or immediately in static mode).
	OnAllComplete func()
}

// Orchestrator owns an ordered queue of sections and reveals them strictly
// one at a time: header title first, then each section's title followed by
// its content. The sequential activation is deliberate, mimicking a single
// assistant typing.
type Orchestrator struct {
	cfg      OrchestratorConfig
	header   string
	sections []Section

	seq *Sequencer

	mu             sync.Mutex
	activeIndex    int
	headerRevealed bool
	completeFired  bool
	cancelled      bool
}

func NewOrchestrator(header string, fields ObservationFields, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		header:   header,
		sections: BuildQueue(fields),
		seq:      NewSequencer(),
	}
}

// Sections returns the filtered queue, in reveal order.
func (o *Orchestrator) Sections() []Section { return o.sections }

func (o *Orchestrator) ActiveIndex() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeIndex
}

func (o *Orchestrator) HeaderRevealed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.headerRevealed
}

// Run drives the full reveal. It blocks until everything completed or Cancel
// was called; callers normally run it on its own goroutine.
func (o *Orchestrator) Run() {
	if len(o.sections) == 0 && strings.TrimSpace(o.header) == "" {
		// Nothing qualifies: render nothing, perform no reveal, but still
		// give listeners a deterministic completion signal.
		o.finish()
		return
	}

	if !o.cfg.Animate {
		o.mu.Lock()
		o.headerRevealed = true
		o.activeIndex = len(o.sections)
		o.mu.Unlock()
		for i, s := range o.sections {
			o.emitSectionStart(i, s)
		}
		o.finish()
		return
	}

	if !o.runBlock(o.header, BlockHeader, -1, "") {
		return
	}
	o.mu.Lock()
	o.headerRevealed = true
	o.mu.Unlock()

	for i, section := range o.sections {
		o.emitSectionStart(i, section)
		if !o.runBlock(section.Title, BlockTitle, i, section.ID) {
			return
		}
		if !o.runBlock(section.Content, BlockContent, i, section.ID) {
			return
		}
		o.emitSectionComplete(i, section)

		o.mu.Lock()
		// activeIndex only ever advances.
		o.activeIndex = i + 1
		o.mu.Unlock()
	}

	o.finish()
}

// Cancel invalidates any in-flight reveal. Run returns without firing
// OnAllComplete.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	o.cancelled = true
	o.mu.Unlock()
	o.seq.Cancel()
}

// runBlock reveals one text block synchronously, returning false if the
// orchestrator was cancelled while it ran.
func (o *Orchestrator) runBlock(text string, block Block, sectionIndex int, sectionID string) bool {
	o.mu.Lock()
	if o.cancelled {
		o.mu.Unlock()
		return false
	}
	o.mu.Unlock()

	cfg := o.cfg.Pacing
	cfg.OnComplete = nil
	cfg.OnProgress = func(unitIndex int, displayed string) {
		if o.cfg.OnProgress != nil {
			o.cfg.OnProgress(ProgressEvent{
				Block:        block,
				SectionID:    sectionID,
				SectionIndex: sectionIndex,
				UnitIndex:    unitIndex,
				Displayed:    displayed,
			})
		}
	}

	sess := o.seq.Start(text, cfg)
	select {
	case <-sess.Done():
	case <-sess.abort:
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.cancelled
}

func (o *Orchestrator) emitSectionStart(i int, s Section) {
	if o.cfg.OnSectionStart != nil {
		o.cfg.OnSectionStart(i, s)
	}
}

func (o *Orchestrator) emitSectionComplete(i int, s Section) {
	if o.cfg.OnSectionComplete != nil {
		o.cfg.OnSectionComplete(i, s)
	}
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	if o.completeFired || o.cancelled {
		o.mu.Unlock()
		return
	}
	o.completeFired = true
	o.mu.Unlock()

	if o.cfg.OnAllComplete != nil {
		o.cfg.OnAllComplete()
	}
}
