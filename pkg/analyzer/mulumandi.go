package analyzer

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// Mulumandi stages.
const (
	StageStart       = "start"
	StageAraimandi   = "araimandi"
	StageCompression = "compression"
	StageAirborne    = "airborne"
	StageLanded      = "landed"
)

const (
	danceBackLean   = 0.10
	danceAnkleRise  = 0.02 // Ankle y decrease between frames that counts as takeoff
	danceNagGap     = 3 * time.Second
	danceHiddenGap  = 4 * time.Second
	mulumandiSettle = 1 * time.Second
)

// jumpTracker holds what the dance jump analyzers share: the previous ankle
// height used for takeoff detection and the visibility handling.
type jumpTracker struct {
	base
	prevAnkleY float64
	havePrev   bool
}

// rising reports whether the ankle moved up by more than danceAnkleRise since
// the previous analyzed frame.
func (j *jumpTracker) rising(ankleY float64) bool {
	return j.havePrev && ankleY < j.prevAnkleY-danceAnkleRise
}

func (j *jumpTracker) track(ankleY float64) {
	j.prevAnkleY = ankleY
	j.havePrev = true
}

// hidden is the verdict when the right side is not fully visible.
func (j *jumpTracker) hidden() verdict {
	j.bodyVisible = false
	v := spoken(SeverityError, "Ensure your entire body is visible", "Move back so I can see your full body")
	v.cue.Gap = danceHiddenGap
	return v
}

// MulumandiAnalyzer counts Mulumandi jumps: araimandi, compression, takeoff
// and a controlled landing back into araimandi.
type MulumandiAnalyzer struct {
	jumpTracker
}

// NewMulumandi creates a Mulumandi analyzer in the start stage.
func NewMulumandi(opts ...Option) *MulumandiAnalyzer {
	o := buildOptions(opts)
	return &MulumandiAnalyzer{
		jumpTracker: jumpTracker{base: newBase(Mulumandi, StageStart, "Get ready to jump", 0.7, o)},
	}
}

// ProcessFrame implements Analyzer.
func (a *MulumandiAnalyzer) ProcessFrame(lms pose.Landmarks) Result {
	now := a.clock()

	if !lms.Visible(a.visibility, rightSideVisible...) {
		return a.finish(a.hidden(), now)
	}
	a.bodyVisible = true

	s, err := readRightSide(lms)
	if err != nil {
		a.logger.Debug("landmarks unusable", "error", err)
		return a.finish(say(SeverityError, "Adjust your position so I can see all landmarks"), now)
	}

	v := a.step(s, now)
	a.track(s.ankle.Y)
	return a.finish(v, now)
}

func (a *MulumandiAnalyzer) step(s rightSide, now time.Time) verdict {
	k := s.kneeAngle
	backStraight := abs(s.shoulder.X-s.hip.X) < danceBackLean

	switch a.stage {
	case StageStart:
		switch {
		case k > 160:
			if !backStraight {
				return nag(SeverityCorrection, "Straighten your back and prepare for araimandi", danceNagGap)
			}
			return announce(SeverityInfo, "Good posture! Now bend into araimandi position")
		case k >= 105:
			return nag(SeverityCorrection, "Bend down more to reach araimandi position", danceNagGap)
		case k > 80:
			a.enter(StageAraimandi, now)
			return announce(SeveritySuccess, "Perfect araimandi! Hold this position")
		default:
			return nag(SeverityCorrection, "Too deep! Rise up slightly to araimandi", danceNagGap)
		}

	case StageAraimandi:
		switch {
		case k < 75:
			a.enter(StageCompression, now)
			return announce(SeveritySuccess, "Good compression! Now jump up explosively")
		case k > 110:
			if !backStraight {
				return nag(SeverityCorrection, "Keep back straight and return to araimandi", danceNagGap)
			}
			return nag(SeverityCorrection, "Lower down to araimandi position", danceNagGap)
		case !backStraight:
			return nag(SeverityCorrection, "Straighten your back while holding araimandi", danceNagGap)
		case a.inStage(now) > mulumandiSettle:
			return nag(SeverityInfo, "Great hold! Now compress down and prepare to jump", danceNagGap)
		default:
			return nag(SeverityInfo, "Hold the araimandi position steady", danceNagGap)
		}

	case StageCompression:
		switch {
		case a.rising(s.ankle.Y):
			a.enter(StageAirborne, now)
			return announce(SeveritySuccess, "Excellent jump! Control your landing")
		case k >= 160:
			a.enter(StageStart, now)
			return nag(SeverityError, "Jump attempt failed. Reset to araimandi", danceNagGap)
		case k > 90:
			return nag(SeverityCorrection, "Compress lower before jumping", danceNagGap)
		default:
			return nag(SeverityInfo, "Push off explosively from this position", danceNagGap)
		}

	case StageAirborne:
		switch {
		case k > 80 && k < 105:
			a.enter(StageLanded, now)
			n := a.rep()
			return announce(SeveritySuccess, fmt.Sprintf("Perfect controlled landing! Jump %d completed", n))
		case k > 150:
			return nag(SeverityInfo, "Prepare to land in araimandi position", danceNagGap)
		default:
			return nag(SeverityInfo, "Control your descent into araimandi", danceNagGap)
		}

	case StageLanded:
		switch {
		case k > 160:
			a.enter(StageStart, now)
			return announce(SeveritySuccess, "Excellent! Stand up and prepare for next jump")
		case !backStraight:
			return nag(SeverityCorrection, "Straighten your back before standing up", danceNagGap)
		default:
			return nag(SeverityInfo, "Great landing! Now stand up to reset", danceNagGap)
		}
	}

	return say(SeverityInfo, "Continue with the movement")
}
