package reveal

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPacing() Config {
	return Config{
		LineInterval:  time.Millisecond,
		WordInterval:  time.Millisecond,
		ProgressEvery: 1,
	}
}

func TestWordModeRevealsEveryWordInOrder(t *testing.T) {
	source := "the quick brown fox jumps"

	var indexes []int
	var snapshots []string
	cfg := fastPacing()
	cfg.OnProgress = func(unitIndex int, displayed string) {
		indexes = append(indexes, unitIndex)
		snapshots = append(snapshots, displayed)
	}

	seq := NewSequencer()
	sess := seq.Start(source, cfg)

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not complete")
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, indexes)
	words := strings.Split(source, " ")
	for i, snap := range snapshots {
		assert.Equal(t, strings.Join(words[:i+1], " "), snap)
	}
	assert.Equal(t, source, sess.Displayed())
	assert.Equal(t, StateComplete, sess.State())
	assert.Equal(t, ModeWord, sess.Mode())
}

func TestWordModeSamplesProgressNotifications(t *testing.T) {
	// Seven words with a cadence of three: listeners hear about words 3 and 6
	// plus the final word, never the ones in between.
	source := "one two three four five six seven"

	var indexes []int
	cfg := fastPacing()
	cfg.ProgressEvery = 3
	cfg.OnProgress = func(unitIndex int, _ string) {
		indexes = append(indexes, unitIndex)
	}

	seq := NewSequencer()
	sess := seq.Start(source, cfg)
	<-sess.Done()

	assert.Equal(t, []int{2, 5, 6}, indexes)
	assert.Equal(t, source, sess.Displayed())
}

func TestLineModeRevealsLinePrefixes(t *testing.T) {
	lines := []string{"first line", "second line", "third line"}
	source := strings.Join(lines, "\n")

	var snapshots []string
	cfg := fastPacing()
	cfg.ProgressEvery = 10 // sampling must not apply to line mode
	cfg.OnProgress = func(_ int, displayed string) {
		snapshots = append(snapshots, displayed)
	}

	seq := NewSequencer()
	sess := seq.Start(source, cfg)
	<-sess.Done()

	require.Len(t, snapshots, len(lines))
	for n, snap := range snapshots {
		assert.Equal(t, strings.Join(lines[:n+1], "\n"), snap)
	}
	assert.Equal(t, source, sess.Displayed())
	assert.Equal(t, ModeLine, sess.Mode())
}

func TestEmptySourceCompletesWithoutProgress(t *testing.T) {
	for _, source := range []string{"", "   ", " \n \n "} {
		t.Run(fmt.Sprintf("%q", source), func(t *testing.T) {
			progressed := 0
			completed := make(chan struct{})

			cfg := fastPacing()
			cfg.OnProgress = func(int, string) { progressed++ }
			cfg.OnComplete = func() { close(completed) }

			seq := NewSequencer()
			sess := seq.Start(source, cfg)

			select {
			case <-completed:
			case <-time.After(time.Second):
				t.Fatal("OnComplete never fired")
			}
			<-sess.Done()

			assert.Zero(t, progressed)
			assert.Equal(t, StateComplete, sess.State())
		})
	}
}

func TestInitialDelayPrecedesFirstUnit(t *testing.T) {
	cfg := fastPacing()
	cfg.InitialDelay = 30 * time.Millisecond

	seq := NewSequencer()
	start := time.Now()
	sess := seq.Start("hello there", cfg)
	<-sess.Done()

	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, "hello there", sess.Displayed())
}

func TestSupersededSessionNeverMutatesSuccessor(t *testing.T) {
	seq := NewSequencer()

	// Session A paced slowly so it is guaranteed to be mid-reveal when B
	// supersedes it.
	slow := Config{WordInterval: 50 * time.Millisecond, LineInterval: 50 * time.Millisecond, ProgressEvery: 1}
	a := seq.Start("aaa bbb ccc ddd eee fff", slow)

	time.Sleep(60 * time.Millisecond)
	b := seq.Start("zzz yyy xxx", fastPacing())
	<-b.Done()

	assert.Equal(t, "zzz yyy xxx", b.Displayed())
	assert.NotEqual(t, StateComplete, a.State())

	// Give A's stale timers every chance to fire; B must stay untouched.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, "zzz yyy xxx", b.Displayed())
	assert.Equal(t, StateComplete, b.State())
}

func TestRepeatedSupersessionKeepsLatestSource(t *testing.T) {
	seq := NewSequencer()

	var last *Session
	var want string
	for i := 0; i < 10; i++ {
		want = fmt.Sprintf("generation %d text block", i)
		last = seq.Start(want, fastPacing())
	}
	<-last.Done()

	assert.Equal(t, want, last.Displayed())
	assert.Same(t, last, seq.Active())
}

func TestCancelStopsActiveSession(t *testing.T) {
	seq := NewSequencer()
	slow := Config{WordInterval: 50 * time.Millisecond, ProgressEvery: 1}
	sess := seq.Start("alpha beta gamma delta", slow)

	time.Sleep(60 * time.Millisecond)
	seq.Cancel()
	partial := sess.Displayed()

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, partial, sess.Displayed())
	assert.NotEqual(t, StateComplete, sess.State())
	assert.Nil(t, seq.Active())
}

func TestDisplayedIsAlwaysPrefixOfSource(t *testing.T) {
	source := "a handful of words revealed in strict order"

	cfg := fastPacing()
	cfg.OnProgress = func(_ int, displayed string) {
		assert.True(t, strings.HasPrefix(source, displayed))
	}

	seq := NewSequencer()
	sess := seq.Start(source, cfg)
	<-sess.Done()
	assert.Equal(t, source, sess.Displayed())
}
