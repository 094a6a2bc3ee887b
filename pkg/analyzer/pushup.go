package analyzer

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// Push-up thresholds. Angles in degrees.
const (
	pushupBodyStraight = 165.0 // Shoulder-hip-ankle
	pushupHipLevel     = 160.0 // Shoulder-hip-knee
	pushupBadBend      = 140.0 // Below this either line is badly broken
	pushupHandOffset   = 0.15  // Max |wrist.x - shoulder.x|

	pushupLocked  = 160.0 // Elbow angle at the top
	pushupLowered = 100.0
	pushupGoing   = 140.0
	pushupDeep    = 80.0
	pushupDriving = 120.0

	pushupTopIdle    = 2 * time.Second
	pushupBottomIdle = 3 * time.Second
	pushupNagGap     = 4 * time.Second
)

// PushUpAnalyzer counts push-ups after checking body line, hips and hand placement.
type PushUpAnalyzer struct {
	base
}

// NewPushUp creates a push-up analyzer in the top stage.
func NewPushUp(opts ...Option) *PushUpAnalyzer {
	o := buildOptions(opts)
	return &PushUpAnalyzer{
		base: newBase(PushUp, StageUp, "Get into push-up position", 0.7, o),
	}
}

type pushupFrame struct {
	elbow, body, hip float64
	wristX, shoulder float64
}

func readPushup(lms pose.Landmarks) (pushupFrame, error) {
	pts, err := lms.Points(pose.RightShoulder, pose.RightElbow, pose.RightWrist,
		pose.RightHip, pose.RightKnee, pose.RightAnkle)
	if err != nil {
		return pushupFrame{}, err
	}
	shoulder, elbow, wrist, hip, knee, ankle := pts[0], pts[1], pts[2], pts[3], pts[4], pts[5]

	var f pushupFrame
	if f.elbow, err = pose.CheckedAngle(shoulder, elbow, wrist); err != nil {
		return pushupFrame{}, err
	}
	if f.body, err = pose.CheckedAngle(shoulder, hip, ankle); err != nil {
		return pushupFrame{}, err
	}
	if f.hip, err = pose.CheckedAngle(shoulder, hip, knee); err != nil {
		return pushupFrame{}, err
	}
	f.wristX, f.shoulder = wrist.X, shoulder.X
	return f, nil
}

// ProcessFrame implements Analyzer.
func (a *PushUpAnalyzer) ProcessFrame(lms pose.Landmarks) Result {
	now := a.clock()

	if !lms.Visible(a.visibility, rightSideVisible...) {
		a.bodyVisible = false
		return a.finish(spoken(SeverityError, "Ensure your entire body is visible", "Move back so I can see your full body"), now)
	}
	a.bodyVisible = true

	f, err := readPushup(lms)
	if err != nil {
		a.logger.Debug("landmarks unusable", "error", err)
		return a.finish(say(SeverityError, "Adjust your position so I can see all landmarks clearly"), now)
	}

	// Form gates hold the state machine until the plank is sound.
	if f.body <= pushupBodyStraight {
		if f.body < pushupBadBend {
			return a.finish(nag(SeverityCorrection, "Your body is too bent. Straighten your back and legs", pushupNagGap), now)
		}
		return a.finish(say(SeverityCorrection, "Keep your body in a straight line from head to heels"), now)
	}
	if f.hip <= pushupHipLevel {
		if f.hip < pushupBadBend {
			return a.finish(nag(SeverityCorrection, "Don't let your hips sag. Engage your core", pushupNagGap), now)
		}
		return a.finish(say(SeverityCorrection, "Keep your hips level with your body"), now)
	}
	if abs(f.wristX-f.shoulder) >= pushupHandOffset {
		if f.wristX < f.shoulder-pushupHandOffset {
			return a.finish(say(SeverityCorrection, "Move your hands forward, under your shoulders"), now)
		}
		return a.finish(say(SeverityCorrection, "Move your hands back, under your shoulders"), now)
	}

	if a.stage == StageDown {
		return a.finish(a.pressing(f.elbow, now), now)
	}
	return a.finish(a.lowering(f.elbow, now), now)
}

func (a *PushUpAnalyzer) lowering(elbow float64, now time.Time) verdict {
	switch {
	case elbow < pushupLowered:
		a.enter(StageDown, now)
		return say(SeverityInfo, "Good descent! Now push back up")
	case elbow < pushupGoing:
		return say(SeverityInfo, "Continue lowering down, chest towards the floor")
	case a.inStage(now) > pushupTopIdle:
		return say(SeverityInfo, "Lower your body down for a push-up")
	default:
		return say(SeverityInfo, "Ready to start push-up. Lower down slowly")
	}
}

func (a *PushUpAnalyzer) pressing(elbow float64, now time.Time) verdict {
	switch {
	case elbow > pushupLocked:
		a.enter(StageUp, now)
		n := a.rep()
		if n%5 == 0 {
			return announce(SeveritySuccess, fmt.Sprintf("Excellent! %d push-ups completed", n))
		}
		return announce(SeveritySuccess, fmt.Sprintf("Great! %d", n))
	case elbow < pushupDeep:
		return say(SeverityInfo, "Perfect depth! Now push up strongly")
	case elbow < pushupDriving:
		return say(SeverityInfo, "Good! Push up with controlled strength")
	case a.inStage(now) > pushupBottomIdle:
		return say(SeverityInfo, "Push up from the bottom position")
	default:
		return say(SeverityInfo, "Hold briefly, then push up explosively")
	}
}
