package scriptload

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadSucceeds(t *testing.T) {
	l := NewLoader(func(ctx context.Context) error { return nil }, time.Second)
	assert.Equal(t, NotLoaded, l.State())

	st := l.Load(context.Background())
	assert.Equal(t, Loaded, st)
	assert.Equal(t, Loaded, l.State())
}

func TestLoadFailureIsTerminal(t *testing.T) {
	l := NewLoader(func(ctx context.Context) error { return errors.New("script 404") }, time.Second)

	assert.Equal(t, Failed, l.Load(context.Background()))
	// A second attempt does not re-run the fetch.
	assert.Equal(t, Failed, l.Load(context.Background()))
}

func TestLoadTimesOutOnHangingFetch(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	l := NewLoader(func(ctx context.Context) error {
		<-block // ignores ctx entirely
		return nil
	}, 30*time.Millisecond)

	start := time.Now()
	st := l.Load(context.Background())
	assert.Equal(t, Failed, st)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	l := NewLoader(func(ctx context.Context) error {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return nil
	}, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, Loaded, l.Load(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCancelledCallerSeesLoading(t *testing.T) {
	l := NewLoader(func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Equal(t, Loading, l.Load(ctx))
}
