package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/pantomime/internal/pose"
)

// MockDetector returns a preset pose for every frame.
type MockDetector struct {
	mu    sync.Mutex
	frame pose.Frame
	err   error
	calls int
}

// NewMockDetector starts out reporting no body in view.
func NewMockDetector() *MockDetector {
	return &MockDetector{frame: EmptyFrame()}
}

// SetPose sets the frame returned by Detect.
func (m *MockDetector) SetPose(frame pose.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = frame
}

// SetError makes Detect fail with err; nil clears it.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockDetector) Detect(*gocv.Mat) (pose.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return pose.Frame{}, m.err
	}
	lms := make([]pose.Landmark, len(m.frame.Landmarks))
	copy(lms, m.frame.Landmarks)
	return pose.Frame{Landmarks: lms, CapturedAt: m.frame.CapturedAt}, nil
}

// Calls reports how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetector) Close() error {
	return nil
}

// EmptyFrame is what the estimator reports with nobody in view.
func EmptyFrame() pose.Frame {
	return pose.Frame{Landmarks: make([]pose.Landmark, pose.NumLandmarks)}
}
