package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-formcoach/pkg/analyzer"
)

func TestRegistry_GetReturnsSameSession(t *testing.T) {
	r := NewRegistry(Config{})

	a := r.Get("alice")
	b := r.Get("alice")
	c := r.Get("bob")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
}

func TestSession_AnalyzersAreIsolated(t *testing.T) {
	r := NewRegistry(Config{})

	var first, second analyzer.Analyzer
	require.NoError(t, r.Get("alice").Do(analyzer.Squat, func(a analyzer.Analyzer) { first = a }))
	require.NoError(t, r.Get("bob").Do(analyzer.Squat, func(a analyzer.Analyzer) { second = a }))
	assert.NotSame(t, first, second)

	var again analyzer.Analyzer
	require.NoError(t, r.Get("alice").Do(analyzer.Squat, func(a analyzer.Analyzer) { again = a }))
	assert.Same(t, first, again)

	assert.Equal(t, []analyzer.Exercise{analyzer.Squat}, r.Get("alice").Exercises())
}

func TestSession_FactoryError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry(Config{
		Factory: func(analyzer.Exercise) (analyzer.Analyzer, error) { return nil, boom },
	})

	called := false
	err := r.Get("x").Do(analyzer.Squat, func(analyzer.Analyzer) { called = true })
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestSession_TakeDelta(t *testing.T) {
	s := NewRegistry(Config{}).Get("alice")

	assert.Equal(t, 1, s.TakeDelta(analyzer.Squat, 1))
	assert.Equal(t, 0, s.TakeDelta(analyzer.Squat, 1), "same total reported twice")
	assert.Equal(t, 2, s.TakeDelta(analyzer.Squat, 3))
	assert.Equal(t, 0, s.TakeDelta(analyzer.Squat, 2), "never negative")
	assert.Equal(t, 1, s.TakeDelta(analyzer.PushUp, 1), "tracked per exercise")

	s.Reset(analyzer.Squat)
	assert.Equal(t, 1, s.TakeDelta(analyzer.Squat, 1))
}

func TestSession_DoSerializes(t *testing.T) {
	s := NewRegistry(Config{}).Get("alice")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(analyzer.PushUp, func(analyzer.Analyzer) {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestRegistry_Expiry(t *testing.T) {
	evicted := make(chan string, 1)
	r := NewRegistry(Config{
		TTL:             20 * time.Millisecond,
		CleanupInterval: time.Hour,
		OnEvict:         func(id string) { evicted <- id },
	})

	first := r.Get("alice")
	time.Sleep(40 * time.Millisecond)
	r.Purge()

	select {
	case id := <-evicted:
		assert.Equal(t, "alice", id)
	case <-time.After(time.Second):
		t.Fatal("session not evicted")
	}

	_, ok := r.Lookup("alice")
	assert.False(t, ok)
	assert.NotSame(t, first, r.Get("alice"), "expired session starts fresh")
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry(Config{})
	r.Get("alice")
	r.Reset("alice")
	assert.Zero(t, r.Len())
}
