package analyzer

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// Mandi Adavu stages. StageStart is shared with Mulumandi.
const (
	StageAraimandiReady  = "araimandi_ready"
	StageDip             = "dip"
	StageJump            = "jump"
	StageMandiContact    = "mandi_contact"
	StageAraimandiLanded = "araimandi_landed"
)

const (
	mandiContactGap = 0.05 // |knee.y - ankle.y| when the knees touch down
	mandiHighGap    = 0.15
	mandiSettle     = 1500 * time.Millisecond
)

// MandiAdavuAnalyzer counts Mandi Adavu reps: araimandi, dip, jump, a drop
// to knee contact and a rise back to araimandi.
type MandiAdavuAnalyzer struct {
	jumpTracker
}

// NewMandiAdavu creates a Mandi Adavu analyzer in the start stage.
func NewMandiAdavu(opts ...Option) *MandiAdavuAnalyzer {
	o := buildOptions(opts)
	return &MandiAdavuAnalyzer{
		jumpTracker: jumpTracker{base: newBase(MandiAdavu, StageStart, "Get ready for mandi adavu", 0.7, o)},
	}
}

// ProcessFrame implements Analyzer.
func (a *MandiAdavuAnalyzer) ProcessFrame(lms pose.Landmarks) Result {
	now := a.clock()

	if !lms.Visible(a.visibility, rightSideVisible...) {
		return a.finish(a.hidden(), now)
	}
	a.bodyVisible = true

	s, err := readRightSide(lms)
	if err != nil {
		a.logger.Debug("landmarks unusable", "error", err)
		return a.finish(say(SeverityError, "Adjust position so I can see all your landmarks"), now)
	}

	v := a.step(s, now)
	a.track(s.ankle.Y)
	return a.finish(v, now)
}

func (a *MandiAdavuAnalyzer) step(s rightSide, now time.Time) verdict {
	k := s.kneeAngle
	backStraight := abs(s.shoulder.X-s.hip.X) < danceBackLean

	switch a.stage {
	case StageStart:
		switch {
		case k > 160:
			if !backStraight {
				return nag(SeverityCorrection, "Straighten your back and get into araimandi position", danceNagGap)
			}
			return announce(SeverityInfo, "Good posture! Now lower into araimandi position")
		case k > 105:
			return nag(SeverityCorrection, "Bend down more to reach araimandi", danceNagGap)
		case k > 80 && k < 100:
			a.enter(StageAraimandiReady, now)
			return announce(SeveritySuccess, "Perfect araimandi! Ready to perform mandi adavu")
		case k <= 80:
			return nag(SeverityCorrection, "Too deep! Rise up slightly to araimandi", danceNagGap)
		default:
			return nag(SeverityCorrection, "Almost there! Bend a little more into araimandi", danceNagGap)
		}

	case StageAraimandiReady:
		switch {
		case k < 80:
			a.enter(StageDip, now)
			return announce(SeveritySuccess, "Good dip! Now jump up and drop to mandi")
		case k > 105:
			if !backStraight {
				return nag(SeverityCorrection, "Keep back straight and return to araimandi", danceNagGap)
			}
			return nag(SeverityCorrection, "Lower back to araimandi position", danceNagGap)
		case !backStraight:
			return nag(SeverityCorrection, "Straighten your back while in araimandi", danceNagGap)
		case a.inStage(now) > mandiSettle:
			return nag(SeverityInfo, "Great hold! Now dip down and prepare for the jump", danceNagGap)
		default:
			return nag(SeverityInfo, "Hold araimandi steady, then dip and jump", danceNagGap)
		}

	case StageDip:
		switch {
		case a.rising(s.ankle.Y):
			a.enter(StageJump, now)
			return announce(SeveritySuccess, "Excellent jump! Now drop to mandi position")
		case k > 90:
			return nag(SeverityCorrection, "Dip lower before jumping", danceNagGap)
		default:
			return nag(SeverityInfo, "From this dip, jump up explosively", danceNagGap)
		}

	case StageJump:
		d := abs(s.knee.Y - s.ankle.Y)
		switch {
		case d < mandiContactGap:
			a.enter(StageMandiContact, now)
			return announce(SeveritySuccess, "Perfect mandi contact! Now rise back to araimandi")
		case d > mandiHighGap:
			return nag(SeverityCorrection, "Drop your knees closer to the ground for mandi", danceNagGap)
		default:
			return announce(SeverityInfo, "Good descent! Get your knees to touch the ground")
		}

	case StageMandiContact:
		switch {
		case k > 80 && k < 100:
			a.enter(StageAraimandiLanded, now)
			n := a.rep()
			return announce(SeveritySuccess, fmt.Sprintf("Excellent mandi adavu! Rep %d completed", n))
		case k < 70:
			return nag(SeverityCorrection, "Rise up from mandi to araimandi position", danceNagGap)
		case k > 120:
			return nag(SeverityCorrection, "Don't stand up fully, return to araimandi", danceNagGap)
		default:
			return nag(SeverityInfo, "Push up to araimandi position from mandi", danceNagGap)
		}

	case StageAraimandiLanded:
		switch {
		case k < 80:
			a.enter(StageDip, now)
			return announce(SeveritySuccess, "Starting next rep! Good dip")
		case k > 105:
			a.enter(StageStart, now)
			return nag(SeverityInfo, "Standing reset. Ready for next mandi adavu", danceNagGap)
		case !backStraight:
			return nag(SeverityCorrection, "Straighten your back while in araimandi", danceNagGap)
		default:
			return nag(SeverityInfo, "Great landing! Continue or stand to reset", danceNagGap)
		}
	}

	return say(SeverityInfo, "Continue the movement sequence")
}
