// Package detection provides pose landmark detectors.
package detection

import (
	"context"
	"errors"

	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// ErrEmptyImage is returned when a frame cannot be decoded into pixels.
var ErrEmptyImage = errors.New("detection: empty image")

// Detector is the interface for pose estimation backends.
type Detector interface {
	// Detect finds a single body in the JPEG frame. It returns nil landmarks
	// and a nil error when no body is present.
	Detect(ctx context.Context, jpeg []byte) (pose.Landmarks, error)

	// Close releases resources.
	Close() error
}

// Config holds BlazePose detector configuration.
type Config struct {
	ModelPath      string  // Path to the ONNX landmark model
	InputWidth     int     // Model input width
	InputHeight    int     // Model input height
	LandmarkOutput string  // Output layer with 39x5 landmark values
	FlagOutput     string  // Output layer with the pose presence score
	PresenceThresh float64 // Minimum presence score for a body (default 0.5)
}

// DefaultConfig returns production defaults for the BlazePose full landmark model.
func DefaultConfig() Config {
	return Config{
		ModelPath:      "models/pose_landmark_full.onnx",
		InputWidth:     256,
		InputHeight:    256,
		LandmarkOutput: "Identity",
		FlagOutput:     "Identity_1",
		PresenceThresh: 0.5,
	}
}
