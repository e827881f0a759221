package reveal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	starts    []string
	completes []string
	events    []ProgressEvent
	allDone   int
}

func (r *recorder) config(animate bool) OrchestratorConfig {
	return OrchestratorConfig{
		Animate: animate,
		Pacing:  fastPacing(),
		OnSectionStart: func(_ int, s Section) {
			r.mu.Lock()
			r.starts = append(r.starts, s.ID)
			r.mu.Unlock()
		},
		OnProgress: func(ev ProgressEvent) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		},
		OnSectionComplete: func(_ int, s Section) {
			r.mu.Lock()
			r.completes = append(r.completes, s.ID)
			r.mu.Unlock()
		},
		OnAllComplete: func() {
			r.mu.Lock()
			r.allDone++
			r.mu.Unlock()
		},
	}
}

func TestBuildQueueFiltersEmptyFieldsInCanonicalOrder(t *testing.T) {
	queue := BuildQueue(ObservationFields{
		Caption:         "",
		Visual:          "V",
		Engagement:      "E",
		PlatformSignals: "   ",
	})

	require.Len(t, queue, 2)
	assert.Equal(t, "visual", queue[0].ID)
	assert.Equal(t, "engagement", queue[1].ID)
}

func TestBuildQueueCanonicalOrderIsFixed(t *testing.T) {
	queue := BuildQueue(ObservationFields{
		Caption:         "c",
		Visual:          "v",
		Engagement:      "e",
		PlatformSignals: "p",
	})

	var ids []string
	for _, s := range queue {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"caption", "visual", "engagement", "platform_signals"}, ids)
}

func TestOrchestratorRevealsSectionsSequentially(t *testing.T) {
	rec := &recorder{}
	o := NewOrchestrator("Post Observation", ObservationFields{
		Visual:     "bright colors",
		Engagement: "high comment ratio",
	}, rec.config(true))

	done := make(chan struct{})
	go func() {
		o.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not finish")
	}

	assert.Equal(t, []string{"visual", "engagement"}, rec.starts)
	assert.Equal(t, []string{"visual", "engagement"}, rec.completes)
	assert.Equal(t, 1, rec.allDone)
	assert.Equal(t, 2, o.ActiveIndex())
	assert.True(t, o.HeaderRevealed())

	// Header events strictly precede section events; the engagement section
	// must not appear before the visual section completed.
	phase := 0 // 0 header, 1 visual, 2 engagement
	for _, ev := range rec.events {
		switch {
		case ev.Block == BlockHeader:
			assert.Equal(t, 0, phase)
		case ev.SectionID == "visual":
			assert.LessOrEqual(t, phase, 1)
			phase = 1
		case ev.SectionID == "engagement":
			phase = 2
		}
	}
	assert.Equal(t, 2, phase)
}

func TestOrchestratorStaticModeSkipsAnimation(t *testing.T) {
	rec := &recorder{}
	o := NewOrchestrator("Observation", ObservationFields{
		Caption: "a caption",
		Visual:  "a visual",
	}, rec.config(false))

	o.Run()

	assert.Empty(t, rec.events)
	assert.Equal(t, []string{"caption", "visual"}, rec.starts)
	assert.Equal(t, 1, rec.allDone)
	assert.True(t, o.HeaderRevealed())
	assert.Equal(t, 2, o.ActiveIndex())
}

func TestOrchestratorEmptyObservation(t *testing.T) {
	rec := &recorder{}
	o := NewOrchestrator("", ObservationFields{}, rec.config(true))

	o.Run()

	assert.Empty(t, rec.starts)
	assert.Empty(t, rec.events)
	assert.Equal(t, 1, rec.allDone)
}

func TestOrchestratorCancelSuppressesAllComplete(t *testing.T) {
	rec := &recorder{}
	cfg := rec.config(true)
	cfg.Pacing = Config{WordInterval: 30 * time.Millisecond, LineInterval: 30 * time.Millisecond, ProgressEvery: 1}

	o := NewOrchestrator("A somewhat longer header title here", ObservationFields{
		Visual: "one two three four five six seven eight",
	}, cfg)

	done := make(chan struct{})
	go func() {
		o.Run()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	o.Cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not stop after cancel")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Zero(t, rec.allDone)
}
