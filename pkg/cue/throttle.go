// Package cue decides when a coaching message should be spoken aloud.
//
// A Throttle applies two rules: a global minimum interval between any two
// spoken cues, and duplicate suppression so the same sentence is not repeated
// until it has been quiet for a while. One Throttle belongs to one analyzer and
// must be consulted at most once per frame.
package cue

import "time"

// Default timings.
const (
	DefaultMinInterval = 2 * time.Second
	DefaultRepeatAfter = 3 * time.Second
)

// Throttle gates audio cues. The zero value is not usable; call New.
type Throttle struct {
	MinInterval time.Duration // No cue at all within this window of the last one
	RepeatAfter time.Duration // Same message may repeat only after this much time

	lastMessage string
	lastEmitted time.Time // When lastMessage was emitted
	lastAny     time.Time // When any cue was emitted
}

// New returns a Throttle with the default 2s cooldown and 3s repeat window.
func New() *Throttle {
	return &Throttle{
		MinInterval: DefaultMinInterval,
		RepeatAfter: DefaultRepeatAfter,
	}
}

// Decide reports whether msg should be spoken now. When it returns true the
// throttle records the emission; a false decision leaves the state untouched.
func (t *Throttle) Decide(msg string, now time.Time) (bool, string) {
	if !t.lastAny.IsZero() && now.Sub(t.lastAny) < t.MinInterval {
		return false, ""
	}
	if msg != t.lastMessage || t.lastEmitted.IsZero() || now.Sub(t.lastEmitted) > t.RepeatAfter {
		t.lastMessage = msg
		t.lastEmitted = now
		t.lastAny = now
		return true, msg
	}
	return false, ""
}

// Quiet reports whether nothing has been spoken for longer than d.
func (t *Throttle) Quiet(now time.Time, d time.Duration) bool {
	return t.lastAny.IsZero() || now.Sub(t.lastAny) > d
}

// LastMessage returns the most recently spoken message.
func (t *Throttle) LastMessage() string {
	return t.lastMessage
}

// Candidate is a message an analyzer would like to speak this frame.
// A non-zero Gap additionally requires the throttle to have been quiet for
// longer than Gap; form corrections use this to nag less often than
// announcements.
type Candidate struct {
	Message string
	Gap     time.Duration
}

// Offer runs c through the throttle. An empty candidate is never spoken.
func (t *Throttle) Offer(c Candidate, now time.Time) (bool, string) {
	if c.Message == "" {
		return false, ""
	}
	if c.Gap > 0 && !t.Quiet(now, c.Gap) {
		return false, ""
	}
	return t.Decide(c.Message, now)
}
