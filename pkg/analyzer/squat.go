package analyzer

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// Squat stages.
const (
	StageUp   = "up"
	StageDown = "down"
)

// Squat thresholds in degrees of right knee flexion (hip-knee-ankle).
const (
	squatStanding = 160.0
	squatPartial  = 130.0
	squatDepth    = 100.0

	squatAlignTight = 0.10 // Max |knee.x - ankle.x| near the bottom
	squatAlignLoose = 0.15 // Max |knee.x - ankle.x| on the way down
	squatBackLean   = 0.10 // Max |shoulder.x - hip.x| for a straight back

	squatStandIdle  = 3 * time.Second
	squatBottomIdle = 2 * time.Second
	squatNagGap     = 4 * time.Second
)

// SquatAnalyzer counts squats and coaches depth, knee tracking and posture.
type SquatAnalyzer struct {
	base
}

// NewSquat creates a squat analyzer in the standing stage.
func NewSquat(opts ...Option) *SquatAnalyzer {
	o := buildOptions(opts)
	return &SquatAnalyzer{
		base: newBase(Squat, StageUp, "Get ready to squat", 0.7, o),
	}
}

// ProcessFrame implements Analyzer.
func (a *SquatAnalyzer) ProcessFrame(lms pose.Landmarks) Result {
	now := a.clock()

	if !lms.Visible(a.visibility, rightSideVisible...) {
		a.bodyVisible = false
		return a.finish(announce(SeverityError, "Move back so I can see your entire body"), now)
	}
	a.bodyVisible = true

	s, err := readRightSide(lms)
	if err != nil {
		a.logger.Debug("landmarks unusable", "error", err)
		return a.finish(say(SeverityError, "Adjust your position so I can see all landmarks"), now)
	}

	if a.stage == StageDown {
		return a.finish(a.rising(s, now), now)
	}
	return a.finish(a.descending(s, now), now)
}

func (a *SquatAnalyzer) descending(s rightSide, now time.Time) verdict {
	hipBelowKnee := s.hip.Y > s.knee.Y
	align := abs(s.knee.X - s.ankle.X)
	backStraight := abs(s.shoulder.X-s.hip.X) < squatBackLean

	switch k := s.kneeAngle; {
	case k < squatDepth && hipBelowKnee:
		a.enter(StageDown, now)
		n := a.rep()
		if n%5 == 0 {
			msg := fmt.Sprintf("Excellent! %d squats completed!", n)
			return spoken(SeveritySuccess, msg+" Stand up slowly", msg)
		}
		msg := fmt.Sprintf("Perfect depth! %d", n)
		return spoken(SeveritySuccess, msg+" - Push through heels", msg)

	case k < squatPartial:
		switch {
		case !hipBelowKnee:
			return say(SeverityCorrection, "Good depth! Push your hips back further")
		case align > squatAlignTight:
			return say(SeverityCorrection, "Keep knees aligned over your toes")
		case !backStraight:
			return say(SeverityCorrection, "Keep chest up and back straight while squatting")
		default:
			return say(SeverityInfo, "Almost there! Go a bit lower for full range")
		}

	case k < squatStanding:
		switch {
		case align > squatAlignLoose:
			return nag(SeverityCorrection, "Keep your knees tracking over your toes", squatNagGap)
		case !backStraight:
			return nag(SeverityCorrection, "Chest up! Don't round your back", squatNagGap)
		default:
			return say(SeverityInfo, "Continue squatting down, hips back")
		}

	default:
		switch {
		case a.inStage(now) > squatStandIdle:
			return say(SeverityInfo, "Start your next squat by pushing hips back")
		case !backStraight:
			return say(SeverityCorrection, "Stand tall with chest up and shoulders back")
		default:
			return say(SeverityInfo, "Good standing position. Begin your squat")
		}
	}
}

func (a *SquatAnalyzer) rising(s rightSide, now time.Time) verdict {
	backStraight := abs(s.shoulder.X-s.hip.X) < squatBackLean

	switch k := s.kneeAngle; {
	case k > squatStanding:
		a.enter(StageUp, now)
		return say(SeveritySuccess, "Great! Ready for your next squat")
	case k > squatPartial:
		if !backStraight {
			return say(SeverityCorrection, "Keep chest up as you stand")
		}
		return say(SeverityInfo, "Good! Continue standing up straight")
	case k > squatDepth:
		return say(SeverityInfo, "Push through your heels to stand up")
	case a.inStage(now) > squatBottomIdle:
		return say(SeverityInfo, "Drive up through your heels to standing")
	case !backStraight:
		return say(SeverityCorrection, "Maintain chest up position, then stand")
	default:
		return say(SeverityInfo, "Hold this depth briefly, then stand up strong")
	}
}
