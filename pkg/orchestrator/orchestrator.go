// Package orchestrator routes camera frames to the right exercise analyzer.
//
// A Request names a session, an exercise and a JPEG frame. The orchestrator
// runs pose detection, hands the landmarks to the session's analyzer and
// turns the analyzer Result into the text a client displays. It holds no
// exercise logic of its own.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-formcoach/pkg/analyzer"
	"github.com/teslashibe/go-formcoach/pkg/metrics"
	"github.com/teslashibe/go-formcoach/pkg/pose"
	"github.com/teslashibe/go-formcoach/pkg/pose/detection"
	"github.com/teslashibe/go-formcoach/pkg/session"
)

// Fixed replies for frames that never reach an analyzer.
const (
	MsgBadFrame     = "Unable to process image"
	MsgNoBody       = "No body detected - please step back so your full body is visible"
	MsgNoBodyDance  = "Step back and make sure your full body is visible in the camera"
	unknownExercise = "Unknown exercise type: %s"
)

// Family restricts which exercises a request may select.
type Family int

const (
	FamilyAny Family = iota
	FamilyWorkout
	FamilyDance
)

func (f Family) allows(e analyzer.Exercise) bool {
	switch f {
	case FamilyWorkout:
		return !e.IsDance()
	case FamilyDance:
		return e.IsDance()
	default:
		return true
	}
}

// Request is one frame to analyze.
type Request struct {
	SessionID string
	Exercise  string // Wire name, e.g. "squats"
	Frame     []byte // JPEG; empty when the client sent nothing decodable
	Family    Family
}

// Response is what the client gets back for a frame.
type Response struct {
	Exercise     string            `json:"exercise"`
	Feedback     string            `json:"feedback"` // Display text, prefixed with the counter
	Severity     analyzer.Severity `json:"severity"`
	ShouldSpeak  bool              `json:"should_speak"`
	AudioMessage string            `json:"audio_message"`
	Count        int               `json:"count"`
	Delta        int               `json:"delta"` // Count growth since the previous report
	Stage        string            `json:"stage,omitempty"`
	HoldSeconds  float64           `json:"hold_seconds,omitempty"`
	Outcome      string            `json:"outcome"`
}

// Event is published to feed subscribers for every analyzed frame.
type Event struct {
	SessionID string            `json:"session_id"`
	Exercise  string            `json:"exercise"`
	Feedback  string            `json:"feedback"`
	Severity  analyzer.Severity `json:"severity"`
	Count     int               `json:"count"`
	Delta     int               `json:"delta"`
	Stage     string            `json:"stage"`
	Spoke     bool              `json:"spoke"`
	At        time.Time         `json:"at"`
}

// Publisher receives feed events. *hub.Hub satisfies it.
type Publisher interface {
	BroadcastJSON(topic string, v any) error
}

// Previewer receives the raw frame with its result, for annotated previews.
type Previewer interface {
	Preview(sessionID string, frame []byte, res analyzer.Result)
}

// Config configures an Orchestrator.
type Config struct {
	Detector detection.Detector
	Sessions *session.Registry
	Metrics  *metrics.Manager
	Feed     Publisher // Optional
	Preview  Previewer // Optional
	Logger   *slog.Logger
}

// Orchestrator dispatches frames to per-session analyzers.
type Orchestrator struct {
	detector detection.Detector
	sessions *session.Registry
	metrics  *metrics.Manager
	feed     Publisher
	preview  Previewer
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Detector == nil {
		return nil, errors.New("orchestrator: detector is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("orchestrator: session registry is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewTestManager()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		detector: cfg.Detector,
		sessions: cfg.Sessions,
		metrics:  cfg.Metrics,
		feed:     cfg.Feed,
		preview:  cfg.Preview,
		logger:   cfg.Logger.With("component", "orchestrator"),
	}, nil
}

// Process analyzes one frame. It never fails: every problem becomes a
// spoken reply.
func (o *Orchestrator) Process(ctx context.Context, req Request) Response {
	e, ok := analyzer.Parse(req.Exercise)
	if !ok || !req.Family.allows(e) {
		o.metrics.CounterFrames.WithLabelValues("unknown", metrics.OutcomeUnknownExercise).Inc()
		return fixed(req.Exercise, fmt.Sprintf(unknownExercise, req.Exercise), metrics.OutcomeUnknownExercise)
	}

	if len(req.Frame) == 0 {
		o.metrics.CounterFrames.WithLabelValues(string(e), metrics.OutcomeBadFrame).Inc()
		return fixed(req.Exercise, MsgBadFrame, metrics.OutcomeBadFrame)
	}

	start := time.Now()
	lms, err := o.detector.Detect(ctx, req.Frame)
	o.metrics.HistDetectDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, detection.ErrEmptyImage):
		o.metrics.CounterFrames.WithLabelValues(string(e), metrics.OutcomeBadFrame).Inc()
		return fixed(req.Exercise, MsgBadFrame, metrics.OutcomeBadFrame)
	case err != nil:
		o.logger.Warn("pose detection failed", "exercise", e, "error", err)
		o.metrics.CounterFrames.WithLabelValues(string(e), metrics.OutcomeDetectorError).Inc()
		return fixed(req.Exercise, noBody(e), metrics.OutcomeDetectorError)
	case lms == nil:
		o.metrics.CounterFrames.WithLabelValues(string(e), metrics.OutcomeNoBody).Inc()
		return fixed(req.Exercise, noBody(e), metrics.OutcomeNoBody)
	}

	return o.analyze(req, e, lms)
}

func (o *Orchestrator) analyze(req Request, e analyzer.Exercise, lms pose.Landmarks) Response {
	s := o.sessions.Get(req.SessionID)

	var res analyzer.Result
	if err := s.Do(e, func(a analyzer.Analyzer) { res = a.ProcessFrame(lms) }); err != nil {
		// Parse already accepted e, so the factory only fails when misconfigured.
		o.logger.Error("analyzer unavailable", "exercise", e, "error", err)
		o.metrics.CounterFrames.WithLabelValues(string(e), metrics.OutcomeUnknownExercise).Inc()
		return fixed(req.Exercise, fmt.Sprintf(unknownExercise, req.Exercise), metrics.OutcomeUnknownExercise)
	}
	delta := s.TakeDelta(e, res.Count)

	o.metrics.CounterFrames.WithLabelValues(string(e), metrics.OutcomeAnalyzed).Inc()
	if delta > 0 {
		o.metrics.CounterReps.WithLabelValues(string(e)).Add(float64(delta))
	}
	if res.ShouldSpeak {
		o.metrics.CounterCues.WithLabelValues(string(e)).Inc()
	}
	o.metrics.GaugeSessions.Set(float64(o.sessions.Len()))

	resp := Response{
		Exercise:     string(e),
		Feedback:     Display(res),
		Severity:     res.Severity,
		ShouldSpeak:  res.ShouldSpeak,
		AudioMessage: res.AudioMessage,
		Count:        res.Count,
		Delta:        delta,
		Stage:        res.Stage,
		HoldSeconds:  res.HoldSeconds,
		Outcome:      metrics.OutcomeAnalyzed,
	}

	if o.feed != nil {
		ev := Event{
			SessionID: req.SessionID,
			Exercise:  resp.Exercise,
			Feedback:  resp.Feedback,
			Severity:  resp.Severity,
			Count:     resp.Count,
			Delta:     delta,
			Stage:     resp.Stage,
			Spoke:     resp.ShouldSpeak,
			At:        time.Now().UTC(),
		}
		if err := o.feed.BroadcastJSON(req.SessionID, ev); err != nil {
			o.logger.Debug("feed publish failed", "error", err)
		}
	}
	if o.preview != nil {
		o.preview.Preview(req.SessionID, req.Frame, res)
	}
	return resp
}

// Display formats a result the way clients show it: the running counter
// followed by the analyzer's feedback.
func Display(res analyzer.Result) string {
	switch res.Exercise {
	case analyzer.Squat:
		return fmt.Sprintf("Squats: %d - %s", res.Count, res.Feedback)
	case analyzer.PushUp:
		return fmt.Sprintf("Push-ups: %d - %s", res.Count, res.Feedback)
	case analyzer.Araimandi:
		if res.Holding {
			return fmt.Sprintf("Holding pose: %.1fs - %s", res.HoldSeconds, res.Feedback)
		}
		return res.Feedback
	case analyzer.Mulumandi:
		return fmt.Sprintf("Jumps: %d - %s", res.Count, res.Feedback)
	case analyzer.MandiAdavu:
		return fmt.Sprintf("Reps: %d - %s", res.Count, res.Feedback)
	default:
		return res.Feedback
	}
}

func noBody(e analyzer.Exercise) string {
	if e.IsDance() {
		return MsgNoBodyDance
	}
	return MsgNoBody
}

func fixed(exercise, msg, outcome string) Response {
	return Response{
		Exercise:     exercise,
		Feedback:     msg,
		Severity:     analyzer.SeverityError,
		ShouldSpeak:  true,
		AudioMessage: msg,
		Outcome:      outcome,
	}
}
