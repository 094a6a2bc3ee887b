package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-formcoach/pkg/pose"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// leg builds a fully visible frame whose right and left knee angle is exactly
// kneeDeg. The knee and ankle stay planted; the hip swings around the knee and
// the shoulder sits directly above the hip.
func leg(kneeDeg float64) pose.Landmarks {
	knee := pose.Point{X: 0.5, Y: 0.6}
	ankle := pose.Point{X: 0.5, Y: 0.9}
	rad := kneeDeg * math.Pi / 180
	// Rotate (ankle - knee) = (0, 0.3) by kneeDeg.
	hip := pose.Point{X: knee.X - 0.3*math.Sin(rad), Y: knee.Y + 0.3*math.Cos(rad)}
	shoulder := pose.Point{X: hip.X, Y: hip.Y - 0.3}

	return body(map[int]pose.Point{
		pose.RightShoulder: shoulder,
		pose.RightElbow:    {X: hip.X + 0.05, Y: hip.Y - 0.15},
		pose.RightWrist:    {X: hip.X + 0.1, Y: hip.Y - 0.05},
		pose.RightHip:      hip,
		pose.RightKnee:     knee,
		pose.RightAnkle:    ankle,
	})
}

// body mirrors the given right-side joints onto the left side and fills every
// other landmark with a visible placeholder.
func body(right map[int]pose.Point) pose.Landmarks {
	lms := make(pose.Landmarks, pose.Count)
	for i := range lms {
		lms[i] = pose.Landmark{X: 0.5, Y: 0.1, Visibility: 0.9}
	}
	mirror := map[int]int{
		pose.RightShoulder: pose.LeftShoulder,
		pose.RightElbow:    pose.LeftElbow,
		pose.RightWrist:    pose.LeftWrist,
		pose.RightHip:      pose.LeftHip,
		pose.RightKnee:     pose.LeftKnee,
		pose.RightAnkle:    pose.LeftAnkle,
	}
	for idx, p := range right {
		lms[idx] = pose.Landmark{X: p.X, Y: p.Y, Visibility: 0.9}
		if l, ok := mirror[idx]; ok {
			lms[l] = lms[idx]
		}
	}
	return lms
}

// lift moves every landmark up by dy.
func lift(lms pose.Landmarks, dy float64) pose.Landmarks {
	out := make(pose.Landmarks, len(lms))
	copy(out, lms)
	for i := range out {
		out[i].Y -= dy
	}
	return out
}

func hide(lms pose.Landmarks, idx int) pose.Landmarks {
	out := make(pose.Landmarks, len(lms))
	copy(out, lms)
	out[idx].Visibility = 0.2
	return out
}

func TestLegHelper(t *testing.T) {
	for _, deg := range []float64{70, 85, 90, 120, 150, 175} {
		lms := leg(deg)
		got := pose.Angle(lms[pose.RightHip].Point(), lms[pose.RightKnee].Point(), lms[pose.RightAnkle].Point())
		assert.InDelta(t, deg, got, 1e-9)
	}
}

func TestParse(t *testing.T) {
	for _, e := range All {
		got, ok := Parse(string(e))
		require.True(t, ok)
		assert.Equal(t, e, got)
	}
	_, ok := Parse("cartwheel")
	assert.False(t, ok)

	assert.True(t, Araimandi.IsDance())
	assert.True(t, MandiAdavu.IsDance())
	assert.False(t, Squat.IsDance())
}

func TestNew(t *testing.T) {
	for _, e := range All {
		a, err := New(e)
		require.NoError(t, err)
		assert.Equal(t, e, a.Exercise())
		assert.Zero(t, a.Count())
	}

	_, err := New("cartwheel")
	assert.Error(t, err)
}

func TestAnalyzers_NeverCountOnBadInput(t *testing.T) {
	inputs := map[string]pose.Landmarks{
		"nil":       nil,
		"truncated": leg(90)[:20],
		"hidden":    hide(leg(90), pose.RightKnee),
		"collapsed": body(map[int]pose.Point{
			pose.RightShoulder: {X: 0.5, Y: 0.3},
			pose.RightElbow:    {X: 0.55, Y: 0.4},
			pose.RightWrist:    {X: 0.6, Y: 0.5},
			pose.RightHip:      {X: 0.5, Y: 0.6},
			pose.RightKnee:     {X: 0.5, Y: 0.6},
			pose.RightAnkle:    {X: 0.5, Y: 0.9},
		}),
	}

	for _, e := range All {
		for name, lms := range inputs {
			t.Run(string(e)+"/"+name, func(t *testing.T) {
				clock := newFakeClock()
				a, err := New(e, WithClock(clock.Now))
				require.NoError(t, err)
				stage := a.Stage()

				for i := 0; i < 5; i++ {
					clock.Advance(time.Second)
					r := a.ProcessFrame(lms)
					assert.NotEmpty(t, r.Feedback)
					assert.Equal(t, SeverityError, r.Severity)
				}
				assert.Zero(t, a.Count())
				assert.Equal(t, stage, a.Stage())
			})
		}
	}
}

func TestAnalyzers_AtMostOneCuePerFrame(t *testing.T) {
	// A jittery sequence exercising every stage; consecutive spoken cues must
	// always be at least the throttle interval apart.
	seq := []pose.Landmarks{leg(175), leg(90), leg(70), lift(leg(70), 0.05), leg(90), leg(175)}

	for _, e := range All {
		t.Run(string(e), func(t *testing.T) {
			clock := newFakeClock()
			a, err := New(e, WithClock(clock.Now), WithTarget(5*time.Second))
			require.NoError(t, err)

			var last time.Time
			for round := 0; round < 4; round++ {
				for _, lms := range seq {
					clock.Advance(700 * time.Millisecond)
					r := a.ProcessFrame(lms)
					if !r.ShouldSpeak {
						assert.Empty(t, r.AudioMessage)
						continue
					}
					assert.NotEmpty(t, r.AudioMessage)
					if !last.IsZero() {
						assert.GreaterOrEqual(t, clock.Now().Sub(last), 2*time.Second)
					}
					last = clock.Now()
				}
			}
		})
	}
}
