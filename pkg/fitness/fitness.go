// Package fitness keeps the daily challenge, the exercise log and the
// progress history of a user.
package fitness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/teslashibe/go-formcoach/pkg/analyzer"
	"github.com/teslashibe/go-formcoach/pkg/store"
)

// ProgressDays is how many active days Progress reports.
const ProgressDays = 30

// ErrExerciseRequired is returned when a call names no exercise.
var ErrExerciseRequired = errors.New("Exercise type is required")

// Service implements challenges and logging on top of a store.
type Service struct {
	store  *store.Store
	clock  func() time.Time
	pick   func(n int) int
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Days are taken in UTC.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithPicker overrides how the daily exercise is drawn; pick(n) returns an
// index in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(s *Service) { s.pick = pick }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a Service.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		clock:  time.Now,
		pick:   rand.IntN,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "fitness")
	return s
}

func (s *Service) today() string { return store.Day(s.clock()) }

// Today returns the user's challenge for the current day, drawing a random
// exercise the first time it is asked for.
func (s *Service) Today(ctx context.Context, userID uint) (*store.DailyChallenge, error) {
	day := s.today()
	c, err := s.store.Challenge(ctx, userID, day)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	e := analyzer.All[s.pick(len(analyzer.All))]
	c, err = s.store.EnsureChallenge(ctx, userID, day, string(e))
	if err != nil {
		return nil, fmt.Errorf("create challenge: %w", err)
	}
	s.logger.Info("daily challenge assigned", "user_id", userID, "date", day, "exercise", c.Exercise)
	return c, nil
}

// Complete marks today's challenge done when it is pending and names
// exercise. It reports whether the challenge changed state.
func (s *Service) Complete(ctx context.Context, userID uint, exercise string) (bool, error) {
	if exercise == "" {
		return false, ErrExerciseRequired
	}
	done, err := s.store.CompleteChallenge(ctx, userID, s.today(), exercise)
	if err != nil {
		return false, err
	}
	if done {
		s.logger.Info("daily challenge completed", "user_id", userID, "exercise", exercise)
	}
	return done, nil
}

// Log records count reps (or completions) of exercise for today.
// Non-positive counts are ignored.
func (s *Service) Log(ctx context.Context, userID uint, exercise string, count int) error {
	if exercise == "" {
		return ErrExerciseRequired
	}
	if count <= 0 {
		return nil
	}
	return s.store.AddLog(ctx, userID, exercise, count, s.today())
}

// Progress returns the daily totals of the user's most recent active days,
// oldest first.
func (s *Service) Progress(ctx context.Context, userID uint) ([]store.DailyTotal, error) {
	totals, err := s.store.DailyTotals(ctx, userID, ProgressDays)
	if err != nil {
		return nil, err
	}
	if totals == nil {
		totals = []store.DailyTotal{}
	}
	return totals, nil
}
