package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// plank builds a side-on plank with a straight body line and the right elbow
// bent to elbowDeg.
func plank(elbowDeg float64) pose.Landmarks {
	rad := elbowDeg * math.Pi / 180
	return body(map[int]pose.Point{
		pose.RightShoulder: {X: 0.3, Y: 0.5},
		pose.RightElbow:    {X: 0.3, Y: 0.6},
		pose.RightWrist:    {X: 0.3 + 0.1*math.Sin(rad), Y: 0.6 - 0.1*math.Cos(rad)},
		pose.RightHip:      {X: 0.55, Y: 0.5},
		pose.RightKnee:     {X: 0.7, Y: 0.5},
		pose.RightAnkle:    {X: 0.85, Y: 0.5},
	})
}

func with(lms pose.Landmarks, idx int, p pose.Point) pose.Landmarks {
	out := make(pose.Landmarks, len(lms))
	copy(out, lms)
	out[idx].X, out[idx].Y = p.X, p.Y
	return out
}

func TestPlankHelper(t *testing.T) {
	for _, deg := range []float64{70, 90, 120, 170} {
		lms := plank(deg)
		got := pose.Angle(lms[pose.RightShoulder].Point(), lms[pose.RightElbow].Point(), lms[pose.RightWrist].Point())
		assert.InDelta(t, deg, got, 1e-9)
	}
}

func TestPushUp_Cycle(t *testing.T) {
	clock := newFakeClock()
	a := NewPushUp(WithClock(clock.Now))

	steps := []struct {
		elbow float64
		want  string
		stage string
		count int
	}{
		{170, "Ready to start push-up. Lower down slowly", StageUp, 0},
		{120, "Continue lowering down, chest towards the floor", StageUp, 0},
		{90, "Good descent! Now push back up", StageDown, 0},
		{70, "Perfect depth! Now push up strongly", StageDown, 0},
		{110, "Good! Push up with controlled strength", StageDown, 0},
		{130, "Hold briefly, then push up explosively", StageDown, 0},
		{170, "Great! 1", StageUp, 1},
	}

	for i, s := range steps {
		clock.Advance(300 * time.Millisecond)
		r := a.ProcessFrame(plank(s.elbow))
		assert.Equal(t, s.want, r.Feedback, "step %d", i)
		assert.Equal(t, s.stage, r.Stage, "step %d", i)
		assert.Equal(t, s.count, r.Count, "step %d", i)
	}
	assert.Equal(t, 1, a.Count())
}

func TestPushUp_FifthRep(t *testing.T) {
	clock := newFakeClock()
	a := NewPushUp(WithClock(clock.Now))

	var r Result
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		a.ProcessFrame(plank(90))
		clock.Advance(2 * time.Second)
		r = a.ProcessFrame(plank(170))
		assert.True(t, r.ShouldSpeak)
	}
	assert.Equal(t, "Excellent! 5 push-ups completed", r.Feedback)
	assert.Equal(t, 5, r.Count)
}

func TestPushUp_FormGates(t *testing.T) {
	tests := []struct {
		name  string
		lms   pose.Landmarks
		want  string
		speak bool
	}{
		{
			name:  "badly bent body",
			lms:   with(plank(90), pose.RightHip, pose.Point{X: 0.55, Y: 0.6}),
			want:  "Your body is too bent. Straighten your back and legs",
			speak: true,
		},
		{
			name: "slightly bent body",
			lms:  with(plank(90), pose.RightHip, pose.Point{X: 0.55, Y: 0.54}),
			want: "Keep your body in a straight line from head to heels",
		},
		{
			name:  "hips sagging",
			lms:   with(plank(90), pose.RightKnee, pose.Point{X: 0.7, Y: 0.65}),
			want:  "Don't let your hips sag. Engage your core",
			speak: true,
		},
		{
			name: "hips slightly off",
			lms:  with(plank(90), pose.RightKnee, pose.Point{X: 0.7, Y: 0.6}),
			want: "Keep your hips level with your body",
		},
		{
			name: "hands too far back",
			lms:  with(plank(90), pose.RightWrist, pose.Point{X: 0.1, Y: 0.6}),
			want: "Move your hands forward, under your shoulders",
		},
		{
			name: "hands too far forward",
			lms:  with(plank(90), pose.RightWrist, pose.Point{X: 0.5, Y: 0.6}),
			want: "Move your hands back, under your shoulders",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := NewPushUp(WithClock(newFakeClock().Now))
			r := a.ProcessFrame(tc.lms)
			assert.Equal(t, tc.want, r.Feedback)
			assert.Equal(t, SeverityCorrection, r.Severity)
			assert.Equal(t, tc.speak, r.ShouldSpeak)
			assert.Equal(t, StageUp, r.Stage, "gates never advance the state machine")
		})
	}
}

func TestPushUp_NotVisible(t *testing.T) {
	a := NewPushUp(WithClock(newFakeClock().Now))

	r := a.ProcessFrame(hide(plank(170), pose.RightWrist))
	assert.Equal(t, "Ensure your entire body is visible", r.Feedback)
	assert.True(t, r.ShouldSpeak)
	assert.Equal(t, "Move back so I can see your full body", r.AudioMessage)
}
