// Package pose defines the body landmark model produced by pose detectors
// and the joint-angle geometry shared by every form analyzer.
package pose

import (
	"errors"
	"fmt"
	"math"
)

// Landmark indices following the BlazePose (MediaPipe Pose) 33-point convention.
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32

	// Count is the number of landmarks in a complete detection.
	Count = 33
)

// ErrMissingLandmark is returned when a required landmark is absent or malformed.
var ErrMissingLandmark = errors.New("pose: landmark missing")

// Landmark is one detected body joint.
type Landmark struct {
	X          float64 `json:"x"`          // Normalized 0-1, left to right
	Y          float64 `json:"y"`          // Normalized 0-1, top to bottom
	Visibility float64 `json:"visibility"` // Detector confidence 0-1
}

// Point returns the planar position of the landmark.
func (l Landmark) Point() Point {
	return Point{X: l.X, Y: l.Y}
}

// Landmarks is a single frame's detection. A nil value means no body was found.
// A complete detection holds Count entries indexed by the constants above.
type Landmarks []Landmark

// At returns the landmark at index i.
// Out-of-range indices and non-finite coordinates yield ErrMissingLandmark.
func (l Landmarks) At(i int) (Landmark, error) {
	if i < 0 || i >= len(l) {
		return Landmark{}, fmt.Errorf("%w: index %d of %d", ErrMissingLandmark, i, len(l))
	}
	lm := l[i]
	if !finite(lm.X) || !finite(lm.Y) || !finite(lm.Visibility) {
		return Landmark{}, fmt.Errorf("%w: index %d not finite", ErrMissingLandmark, i)
	}
	return lm, nil
}

// Points resolves several landmarks at once, failing on the first missing one.
func (l Landmarks) Points(idx ...int) ([]Point, error) {
	pts := make([]Point, len(idx))
	for n, i := range idx {
		lm, err := l.At(i)
		if err != nil {
			return nil, err
		}
		pts[n] = lm.Point()
	}
	return pts, nil
}

// Visible reports whether every listed landmark exists and has a visibility
// strictly above threshold.
func (l Landmarks) Visible(threshold float64, idx ...int) bool {
	for _, i := range idx {
		lm, err := l.At(i)
		if err != nil || lm.Visibility <= threshold {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
