// Package detector runs body pose estimation on camera frames.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/pantomime/internal/pose"
)

// Detector estimates the body pose in a video frame.
type Detector interface {
	// Detect returns a frame of pose.NumLandmarks landmarks. When no body is
	// visible every landmark is zero.
	Detect(frame *gocv.Mat) (pose.Frame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds pose estimation settings passed to the estimator service.
type Config struct {
	// ModelComplexity selects the pose model (0, 1 or 2; default: 1).
	ModelComplexity int

	// MinDetectionConf is the minimum detection confidence (0.0-1.0).
	MinDetectionConf float64

	// MinTrackingConf is the minimum tracking confidence (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the service script search.
	ScriptPath string

	// PythonPath overrides the interpreter search.
	PythonPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity:  1,
		MinDetectionConf: 0.5,
		MinTrackingConf:  0.5,
	}
}
