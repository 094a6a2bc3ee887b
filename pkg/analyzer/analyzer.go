// Package analyzer turns a stream of pose landmarks into exercise coaching.
//
// Each Analyzer owns a small state machine for one exercise: it advances a
// rep counter (or hold timer) on validated transitions, produces corrective
// feedback for the current stage, and decides through a cue.Throttle whether
// that feedback should be spoken. Analyzers are not safe for concurrent use;
// callers serialize frames per session (see pkg/session).
package analyzer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-formcoach/pkg/cue"
	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// Exercise identifies an analyzer. Values match the wire names used by clients.
type Exercise string

const (
	Squat      Exercise = "squats"
	PushUp     Exercise = "pushups"
	Araimandi  Exercise = "araimandi"
	Mulumandi  Exercise = "mulumandi"
	MandiAdavu Exercise = "mandia_davu"
)

// All lists every supported exercise.
var All = []Exercise{Squat, PushUp, Araimandi, Mulumandi, MandiAdavu}

// Parse maps a client-supplied name to an Exercise.
func Parse(name string) (Exercise, bool) {
	for _, e := range All {
		if string(e) == name {
			return e, true
		}
	}
	return "", false
}

// IsDance reports whether e is one of the classical dance exercises.
func (e Exercise) IsDance() bool {
	return e == Araimandi || e == Mulumandi || e == MandiAdavu
}

// Severity classifies feedback for display. It is chosen where the feedback
// text is produced.
type Severity string

const (
	SeveritySuccess    Severity = "success"
	SeverityCorrection Severity = "correction"
	SeverityError      Severity = "error"
	SeverityInfo       Severity = "info"
)

// Result is the outcome of one processed frame.
type Result struct {
	Exercise     Exercise `json:"exercise"`
	Feedback     string   `json:"feedback"`
	Severity     Severity `json:"severity"`
	ShouldSpeak  bool     `json:"should_speak"`
	AudioMessage string   `json:"audio_message"`
	Count        int      `json:"count"`                  // Reps, or whole seconds held
	Stage        string   `json:"stage"`                  // Current state machine stage
	HoldSeconds  float64  `json:"hold_seconds,omitempty"` // Hold analyzers only
	Holding      bool     `json:"holding,omitempty"`      // Hold analyzers only
	BodyVisible  bool     `json:"body_visible"`
}

// Analyzer is implemented by every exercise state machine.
type Analyzer interface {
	// Exercise returns which exercise this analyzer coaches.
	Exercise() Exercise

	// ProcessFrame consumes one frame's landmarks and returns the coaching
	// result. It never fails: bad input becomes corrective feedback and leaves
	// the counter and stage unchanged.
	ProcessFrame(lms pose.Landmarks) Result

	// Count returns the current rep count (or whole seconds held).
	Count() int

	// Stage returns the current state machine stage.
	Stage() string
}

// New creates the analyzer for exercise e.
func New(e Exercise, opts ...Option) (Analyzer, error) {
	switch e {
	case Squat:
		return NewSquat(opts...), nil
	case PushUp:
		return NewPushUp(opts...), nil
	case Araimandi:
		return NewAraimandi(opts...), nil
	case Mulumandi:
		return NewMulumandi(opts...), nil
	case MandiAdavu:
		return NewMandiAdavu(opts...), nil
	default:
		return nil, fmt.Errorf("analyzer: unknown exercise %q", e)
	}
}

// Option configures an analyzer.
type Option func(*options)

type options struct {
	clock      func() time.Time
	logger     *slog.Logger
	visibility float64 // 0 means use the analyzer default
	target     time.Duration
}

// WithClock overrides the time source. Tests use this to drive timers.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithVisibilityThreshold overrides the minimum landmark visibility an
// analyzer requires before it evaluates form.
func WithVisibilityThreshold(v float64) Option {
	return func(o *options) {
		o.visibility = v
	}
}

// WithTarget sets the hold duration for timed analyzers. Rep analyzers ignore it.
func WithTarget(d time.Duration) Option {
	return func(o *options) {
		o.target = d
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// verdict is what a stage handler decided for the current frame.
type verdict struct {
	text     string
	severity Severity
	cue      cue.Candidate
}

// say produces feedback that is shown but not offered for speech.
func say(sev Severity, text string) verdict {
	return verdict{text: text, severity: sev}
}

// announce produces feedback that is offered for speech immediately.
func announce(sev Severity, text string) verdict {
	return verdict{text: text, severity: sev, cue: cue.Candidate{Message: text}}
}

// spoken produces feedback whose spoken form differs from the displayed text.
func spoken(sev Severity, text, audio string) verdict {
	return verdict{text: text, severity: sev, cue: cue.Candidate{Message: audio}}
}

// nag produces feedback that is offered for speech only after gap of silence.
func nag(sev Severity, text string, gap time.Duration) verdict {
	return verdict{text: text, severity: sev, cue: cue.Candidate{Message: text, Gap: gap}}
}

// base carries the state shared by all analyzers.
type base struct {
	exercise   Exercise
	clock      func() time.Time
	logger     *slog.Logger
	throttle   *cue.Throttle
	visibility float64

	count        int
	stage        string
	stageEntered time.Time
	feedback     string
	bodyVisible  bool
}

func newBase(e Exercise, initialStage, initialFeedback string, defaultVisibility float64, o options) base {
	vis := defaultVisibility
	if o.visibility > 0 {
		vis = o.visibility
	}
	return base{
		exercise:     e,
		clock:        o.clock,
		logger:       o.logger.With("component", "analyzer."+string(e)),
		throttle:     cue.New(),
		visibility:   vis,
		stage:        initialStage,
		stageEntered: o.clock(),
		feedback:     initialFeedback,
	}
}

func (b *base) Exercise() Exercise { return b.exercise }
func (b *base) Count() int         { return b.count }
func (b *base) Stage() string      { return b.stage }

// Feedback returns the most recent feedback text.
func (b *base) Feedback() string { return b.feedback }

// enter moves to stage and restarts the stage timer.
func (b *base) enter(stage string, now time.Time) {
	b.logger.Debug("stage transition", "from", b.stage, "to", stage, "count", b.count)
	b.stage = stage
	b.stageEntered = now
}

// inStage returns how long the analyzer has been in its current stage.
func (b *base) inStage(now time.Time) time.Duration {
	return now.Sub(b.stageEntered)
}

// rep increments the counter.
func (b *base) rep() int {
	b.count++
	b.logger.Debug("rep counted", "count", b.count)
	return b.count
}

// finish records v as the frame's feedback and runs its cue through the throttle.
func (b *base) finish(v verdict, now time.Time) Result {
	b.feedback = v.text
	r := Result{
		Exercise:    b.exercise,
		Feedback:    v.text,
		Severity:    v.severity,
		Count:       b.count,
		Stage:       b.stage,
		BodyVisible: b.bodyVisible,
	}
	if ok, msg := b.throttle.Offer(v.cue, now); ok {
		r.ShouldSpeak = true
		r.AudioMessage = msg
		b.logger.Debug("cue", "message", msg)
	}
	return r
}

// rightSide is the hip-knee-ankle angle of the right leg together with the
// points the rep analyzers need alongside it.
type rightSide struct {
	shoulder, hip, knee, ankle pose.Point
	kneeAngle                  float64
}

// readRightSide resolves the right-side joints shared by the squat and dance
// jump analyzers.
func readRightSide(lms pose.Landmarks) (rightSide, error) {
	pts, err := lms.Points(pose.RightShoulder, pose.RightHip, pose.RightKnee, pose.RightAnkle)
	if err != nil {
		return rightSide{}, err
	}
	s := rightSide{shoulder: pts[0], hip: pts[1], knee: pts[2], ankle: pts[3]}
	s.kneeAngle, err = pose.CheckedAngle(s.hip, s.knee, s.ankle)
	if err != nil {
		return rightSide{}, err
	}
	return s, nil
}

// rightSideVisible are the landmarks the right-side analyzers gate on.
var rightSideVisible = []int{
	pose.RightHip, pose.RightKnee, pose.RightAnkle,
	pose.RightShoulder, pose.RightElbow, pose.RightWrist,
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
