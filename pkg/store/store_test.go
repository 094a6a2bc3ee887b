package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-formcoach/internal/log"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUsers(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "asha@example.com", "hash")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	_, err = s.CreateUser(ctx, "asha@example.com", "other")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := s.UserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Nil(t, got.LastLogin)

	login := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchLogin(ctx, u.ID, login))
	got, err = s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, login.Equal(*got.LastLogin))

	_, err = s.UserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateSession(ctx, 1, "abc", now.Add(time.Hour)))
	require.NoError(t, s.CreateSession(ctx, 1, "old", now.Add(-time.Hour)))

	active, err := s.SessionActive(ctx, "abc", now)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = s.SessionActive(ctx, "old", now)
	require.NoError(t, err)
	assert.False(t, active, "expired session")

	changed, err := s.DeactivateSession(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.DeactivateSession(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, changed)

	active, err = s.SessionActive(ctx, "abc", now)
	require.NoError(t, err)
	assert.False(t, active)

	n, err := s.PurgeSessions(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestChallenges(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Challenge(ctx, 1, "2025-03-01")
	assert.ErrorIs(t, err, ErrNotFound)

	c, err := s.EnsureChallenge(ctx, 1, "2025-03-01", "squats")
	require.NoError(t, err)
	assert.Equal(t, "squats", c.Exercise)
	assert.False(t, c.IsCompleted)

	// A second insert for the same day keeps the first exercise.
	c, err = s.EnsureChallenge(ctx, 1, "2025-03-01", "pushups")
	require.NoError(t, err)
	assert.Equal(t, "squats", c.Exercise)

	done, err := s.CompleteChallenge(ctx, 1, "2025-03-01", "pushups")
	require.NoError(t, err)
	assert.False(t, done, "wrong exercise")

	done, err = s.CompleteChallenge(ctx, 1, "2025-03-01", "squats")
	require.NoError(t, err)
	assert.True(t, done)

	done, err = s.CompleteChallenge(ctx, 1, "2025-03-01", "squats")
	require.NoError(t, err)
	assert.False(t, done, "already completed")

	c, err = s.Challenge(ctx, 1, "2025-03-01")
	require.NoError(t, err)
	assert.True(t, c.IsCompleted)
}

func TestEnsureChallenge_Concurrent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	got := make([]string, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := s.EnsureChallenge(ctx, 7, "2025-03-01", []string{"squats", "mulumandi"}[i%2])
			if assert.NoError(t, err) {
				got[i] = c.Exercise
			}
		}(i)
	}
	wg.Wait()

	for _, e := range got {
		assert.Equal(t, got[0], e)
	}
}

func TestDailyTotals(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddLog(ctx, 1, "squats", 5, "2025-03-01"))
	require.NoError(t, s.AddLog(ctx, 1, "pushups", 3, "2025-03-01"))
	require.NoError(t, s.AddLog(ctx, 1, "squats", 4, "2025-03-02"))
	require.NoError(t, s.AddLog(ctx, 1, "araimandi", 10, "2025-03-03"))
	require.NoError(t, s.AddLog(ctx, 2, "squats", 50, "2025-03-02"))

	totals, err := s.DailyTotals(ctx, 1, 30)
	require.NoError(t, err)
	assert.Equal(t, []DailyTotal{
		{Date: "2025-03-01", Count: 8},
		{Date: "2025-03-02", Count: 4},
		{Date: "2025-03-03", Count: 10},
	}, totals)

	totals, err = s.DailyTotals(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []DailyTotal{
		{Date: "2025-03-02", Count: 4},
		{Date: "2025-03-03", Count: 10},
	}, totals)

	totals, err = s.DailyTotals(ctx, 3, 30)
	require.NoError(t, err)
	assert.Empty(t, totals)
}

func TestDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t, "2025-02-28", Day(time.Date(2025, 3, 1, 2, 0, 0, 0, ist)))
}
