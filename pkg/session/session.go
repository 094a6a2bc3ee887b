// Package session keeps per-client analyzer state between frames.
//
// Every client (a logged-in user, a websocket connection, an anonymous
// browser tab) gets its own Session holding one lazily created analyzer per
// exercise. Sessions expire after a period of inactivity.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/teslashibe/go-formcoach/pkg/analyzer"
)

// Default timings.
const (
	DefaultTTL             = 10 * time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// Factory creates a fresh analyzer for an exercise.
type Factory func(e analyzer.Exercise) (analyzer.Analyzer, error)

// Config configures a Registry.
type Config struct {
	TTL             time.Duration // Idle time before a session is dropped
	CleanupInterval time.Duration // How often expired sessions are purged
	Factory         Factory       // Defaults to analyzer.New with no options
	Logger          *slog.Logger

	// OnEvict is called after a session expires or is deleted.
	OnEvict func(id string)
}

// Session is one client's analyzer state.
type Session struct {
	ID      string
	Created time.Time

	mu        sync.Mutex
	factory   Factory
	analyzers map[analyzer.Exercise]analyzer.Analyzer
	logged    map[analyzer.Exercise]int
}

// Do runs fn with the session's analyzer for e, creating it on first use.
// Calls for the same session are serialized so frames are analyzed in order.
func (s *Session) Do(e analyzer.Exercise, fn func(a analyzer.Analyzer)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyzers[e]
	if !ok {
		var err error
		a, err = s.factory(e)
		if err != nil {
			return err
		}
		s.analyzers[e] = a
	}
	fn(a)
	return nil
}

// TakeDelta records count as the latest total for e and returns how much it
// grew since the previous call. The result is never negative, so the same
// reps are never reported twice.
func (s *Session) TakeDelta(e analyzer.Exercise, count int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.logged[e]
	if count <= prev {
		return 0
	}
	s.logged[e] = count
	return count - prev
}

// Reset discards the analyzer for e so the next frame starts from scratch.
func (s *Session) Reset(e analyzer.Exercise) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.analyzers, e)
	delete(s.logged, e)
}

// Exercises returns the exercises that currently have an analyzer.
func (s *Session) Exercises() []analyzer.Exercise {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]analyzer.Exercise, 0, len(s.analyzers))
	for _, e := range analyzer.All {
		if _, ok := s.analyzers[e]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Registry maps session IDs to Sessions with sliding expiry.
type Registry struct {
	cache   *cache.Cache
	ttl     time.Duration
	factory Factory
	logger  *slog.Logger

	mu sync.Mutex // Serializes get-or-create
}

// NewRegistry creates a Registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Factory == nil {
		cfg.Factory = func(e analyzer.Exercise) (analyzer.Analyzer, error) {
			return analyzer.New(e)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Registry{
		cache:   cache.New(cfg.TTL, cfg.CleanupInterval),
		ttl:     cfg.TTL,
		factory: cfg.Factory,
		logger:  cfg.Logger.With("component", "session"),
	}
	r.cache.OnEvicted(func(id string, _ interface{}) {
		r.logger.Debug("session evicted", "session", id)
		if cfg.OnEvict != nil {
			cfg.OnEvict(id)
		}
	})
	return r
}

// Get returns the session for id, creating it if needed. Every call pushes
// the session's expiry out by the TTL.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(id); found {
		s := x.(*Session)
		r.cache.Set(id, s, cache.DefaultExpiration)
		return s
	}

	s := &Session{
		ID:        id,
		Created:   time.Now(),
		factory:   r.factory,
		analyzers: make(map[analyzer.Exercise]analyzer.Analyzer),
		logged:    make(map[analyzer.Exercise]int),
	}
	r.cache.Set(id, s, cache.DefaultExpiration)
	r.logger.Debug("session created", "session", id)
	return s
}

// Lookup returns an existing session without creating or refreshing it.
func (r *Registry) Lookup(id string) (*Session, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*Session), true
	}
	return nil, false
}

// Reset drops a session immediately; the next Get starts from scratch.
func (r *Registry) Reset(id string) {
	r.cache.Delete(id)
}

// Len returns the number of live sessions, including expired ones not yet purged.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}

// Purge removes expired sessions now instead of waiting for the janitor.
func (r *Registry) Purge() {
	r.cache.DeleteExpired()
}

// TTL returns the idle time after which a session expires.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}
