package cue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestThrottle_Decide(t *testing.T) {
	tests := []struct {
		name   string
		steps  []step
		expect []bool
	}{
		{
			name:   "first cue always speaks",
			steps:  []step{{"Timer started", 0}},
			expect: []bool{true},
		},
		{
			name:   "same message inside cooldown is dropped",
			steps:  []step{{"Great! 1", 0}, {"Great! 1", 1500 * time.Millisecond}},
			expect: []bool{true, false},
		},
		{
			name:   "different message inside cooldown is dropped",
			steps:  []step{{"Great! 1", 0}, {"Great! 2", time.Second}},
			expect: []bool{true, false},
		},
		{
			name:   "different message after cooldown speaks",
			steps:  []step{{"Great! 1", 0}, {"Great! 2", 2 * time.Second}},
			expect: []bool{true, true},
		},
		{
			name:   "same message between cooldown and repeat window is dropped",
			steps:  []step{{"Hold steady", 0}, {"Hold steady", 2500 * time.Millisecond}},
			expect: []bool{true, false},
		},
		{
			name:   "same message after repeat window speaks",
			steps:  []step{{"Hold steady", 0}, {"Hold steady", 3100 * time.Millisecond}},
			expect: []bool{true, true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			th := New()
			for i, s := range tc.steps {
				ok, msg := th.Decide(s.msg, t0.Add(s.at))
				assert.Equal(t, tc.expect[i], ok, "step %d", i)
				if ok {
					assert.Equal(t, s.msg, msg)
				} else {
					assert.Empty(t, msg)
				}
			}
		})
	}
}

type step struct {
	msg string
	at  time.Duration
}

func TestThrottle_RejectedDecisionKeepsState(t *testing.T) {
	th := New()
	ok, _ := th.Decide("Great! 1", t0)
	assert.True(t, ok)

	ok, _ = th.Decide("Great! 2", t0.Add(time.Second))
	assert.False(t, ok)
	assert.Equal(t, "Great! 1", th.LastMessage())

	// Cooldown is measured from the accepted cue, not the rejected one.
	ok, _ = th.Decide("Great! 2", t0.Add(2*time.Second))
	assert.True(t, ok)
}

func TestThrottle_Offer(t *testing.T) {
	th := New()

	ok, _ := th.Offer(Candidate{}, t0)
	assert.False(t, ok, "empty candidate")

	ok, _ = th.Offer(Candidate{Message: "Chest up!", Gap: 4 * time.Second}, t0)
	assert.True(t, ok, "gap passes when nothing was ever spoken")

	ok, _ = th.Offer(Candidate{Message: "Knees out", Gap: 4 * time.Second}, t0.Add(3*time.Second))
	assert.False(t, ok, "gap not yet elapsed even though cooldown has")

	ok, _ = th.Offer(Candidate{Message: "Knees out"}, t0.Add(3*time.Second))
	assert.True(t, ok, "announcement ignores the gap")
}

func TestThrottle_Quiet(t *testing.T) {
	th := New()
	assert.True(t, th.Quiet(t0, time.Hour))

	th.Decide("x", t0)
	assert.False(t, th.Quiet(t0.Add(4*time.Second), 4*time.Second))
	assert.True(t, th.Quiet(t0.Add(4*time.Second+time.Millisecond), 4*time.Second))
}
