package analyzer

import (
	"fmt"
	"math"
	"time"

	"github.com/teslashibe/go-formcoach/pkg/cue"
	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// Araimandi stages.
const (
	StageHolding    = "holding"
	StageNotHolding = "not_holding"
)

// DefaultHoldTarget is the Araimandi hold duration when none is configured.
const DefaultHoldTarget = 60 * time.Second

const (
	araimandiKneeMin    = 70.0
	araimandiKneeMax    = 120.0
	araimandiTorsoLean  = 0.15
	araimandiAnnounceN  = 3 // Announce every N whole seconds
	araimandiNagGap     = 4 * time.Second
	araimandiDoneFeed   = "Congratulations! Hold complete."
	araimandiDoneSpoken = "Congratulations! You are done!"
)

var araimandiVisible = []int{
	pose.LeftHip, pose.LeftKnee, pose.LeftAnkle,
	pose.RightHip, pose.RightKnee, pose.RightAnkle,
	pose.LeftShoulder,
}

// AraimandiAnalyzer times a static Araimandi (half-sitting) hold. The timer
// runs only while form is valid and pauses, keeping accumulated time, when
// form breaks.
type AraimandiAnalyzer struct {
	base

	target    time.Duration
	holding   bool
	start     time.Time
	elapsed   time.Duration
	spokenSec int
	announced bool
}

// NewAraimandi creates a hold analyzer. WithTarget sets the hold goal.
func NewAraimandi(opts ...Option) *AraimandiAnalyzer {
	o := buildOptions(opts)
	target := o.target
	if target <= 0 {
		target = DefaultHoldTarget
	}
	return &AraimandiAnalyzer{
		base:   newBase(Araimandi, StageNotHolding, "Get into Araimandi pose", 0.5, o),
		target: target,
	}
}

// Target returns the configured hold goal.
func (a *AraimandiAnalyzer) Target() time.Duration { return a.target }

// Elapsed returns the accumulated valid hold time.
func (a *AraimandiAnalyzer) Elapsed() time.Duration { return a.elapsed }

// Holding reports whether the timer is running.
func (a *AraimandiAnalyzer) Holding() bool { return a.holding }

// checkForm returns whether the pose is a valid Araimandi and the feedback for it.
func (a *AraimandiAnalyzer) checkForm(lms pose.Landmarks) (bool, string, Severity) {
	if !lms.Visible(a.visibility, araimandiVisible...) {
		a.bodyVisible = false
		return false, "Move closer to camera - lower body not fully visible", SeverityError
	}
	a.bodyVisible = true

	pts, err := lms.Points(pose.LeftHip, pose.LeftKnee, pose.LeftAnkle,
		pose.RightHip, pose.RightKnee, pose.RightAnkle, pose.LeftShoulder)
	if err != nil {
		a.logger.Debug("landmarks unusable", "error", err)
		return false, "Adjust your position in frame", SeverityError
	}
	lHip, lKnee, lAnkle, rHip, rKnee, rAnkle, lShoulder := pts[0], pts[1], pts[2], pts[3], pts[4], pts[5], pts[6]

	// Use whichever knee the detector is more confident about.
	hip, knee, ankle := rHip, rKnee, rAnkle
	if lms[pose.LeftKnee].Visibility > lms[pose.RightKnee].Visibility {
		hip, knee, ankle = lHip, lKnee, lAnkle
	}
	k, err := pose.CheckedAngle(hip, knee, ankle)
	if err != nil {
		a.logger.Debug("landmarks unusable", "error", err)
		return false, "Adjust your position in frame", SeverityError
	}

	kneeOK := k > araimandiKneeMin && k < araimandiKneeMax
	torsoOK := abs((lHip.X+rHip.X)/2-lShoulder.X) < araimandiTorsoLean

	switch {
	case kneeOK && torsoOK:
		return true, "Perfect Araimandi form!", SeveritySuccess
	case !kneeOK && k <= araimandiKneeMin:
		return false, "Too deep - come up slightly", SeverityCorrection
	case !kneeOK:
		return false, "Bend knees more - go deeper", SeverityCorrection
	default:
		return false, "Keep torso upright", SeverityCorrection
	}
}

// ProcessFrame implements Analyzer.
func (a *AraimandiAnalyzer) ProcessFrame(lms pose.Landmarks) Result {
	now := a.clock()
	valid, text, sev := a.checkForm(lms)

	var v verdict
	if valid {
		v = a.hold(now, text, sev)
	} else {
		v = a.pause(now, text, sev)
	}

	r := a.finish(v, now)
	if r.ShouldSpeak && r.AudioMessage == araimandiDoneSpoken {
		a.announced = true
	}
	r.Count = a.Count()
	r.HoldSeconds = a.elapsed.Seconds()
	r.Holding = a.holding
	return r
}

func (a *AraimandiAnalyzer) hold(now time.Time, text string, sev Severity) verdict {
	var started bool
	if !a.holding {
		a.holding = true
		a.start = now.Add(-a.elapsed)
		a.enter(StageHolding, now)
		started = true
	}
	a.elapsed = now.Sub(a.start)

	v := verdict{text: text, severity: sev}

	var countUp string
	rounded := int(math.Round(a.elapsed.Seconds()))
	if rounded > a.spokenSec && float64(rounded) <= a.target.Seconds() && rounded > 0 {
		if rounded%araimandiAnnounceN == 0 {
			countUp = fmt.Sprintf("%d seconds", rounded)
		}
		a.spokenSec = rounded
	}

	done := a.elapsed >= a.target
	if done {
		v.text = araimandiDoneFeed
	}

	// One cue per frame: completion, then timer state, then the count.
	switch {
	case done && !a.announced:
		v.cue = cue.Candidate{Message: araimandiDoneSpoken}
	case started:
		v.cue = cue.Candidate{Message: "Timer started"}
	case countUp != "":
		v.cue = cue.Candidate{Message: countUp}
	}
	return v
}

func (a *AraimandiAnalyzer) pause(now time.Time, text string, sev Severity) verdict {
	if a.holding {
		a.holding = false
		a.elapsed = now.Sub(a.start)
		a.enter(StageNotHolding, now)
		a.logger.Debug("hold paused", "elapsed", a.elapsed)
		return verdict{text: text, severity: sev, cue: cue.Candidate{Message: "Timer stopped"}}
	}
	return nag(sev, text, araimandiNagGap)
}

// Count implements Analyzer. A hold counts whole seconds held.
func (a *AraimandiAnalyzer) Count() int {
	return int(a.elapsed / time.Second)
}
