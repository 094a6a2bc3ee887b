package detection

import (
	"context"
	"sync"

	"github.com/teslashibe/go-formcoach/pkg/pose"
)

// Static replays a fixed sequence of detections, looping at the end. It is
// used in tests and for replaying recorded sessions.
type Static struct {
	mu     sync.Mutex
	frames []pose.Landmarks
	next   int
	err    error
	calls  int
}

// NewStatic creates a detector that returns frames in order.
func NewStatic(frames ...pose.Landmarks) *Static {
	return &Static{frames: frames}
}

// FailWith makes every subsequent Detect return err.
func (s *Static) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how many times Detect ran.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Detect implements Detector.
func (s *Static) Detect(ctx context.Context, _ []byte) (pose.Landmarks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if len(s.frames) == 0 {
		return nil, nil
	}
	lms := s.frames[s.next%len(s.frames)]
	s.next++
	return lms, nil
}

// Close implements Detector.
func (s *Static) Close() error {
	return nil
}
