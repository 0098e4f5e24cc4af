// Package testdata holds synthetic pose fixtures shared by package tests.
package testdata

import (
	"time"

	"github.com/ayusman/pantomime/internal/pose"
)

// Epoch is the fixed start time used by fixture snapshots.
var Epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// standing returns a front-facing body with arms hanging, in normalized
// image coordinates (y grows downward).
func standing() pose.Snapshot {
	s := pose.Snapshot{Samples: 1, WindowStart: Epoch}
	set := func(i int, x, y, z float64) {
		s.Landmarks[i] = pose.Landmark{X: x, Y: y, Z: z, Visibility: 0.95}
	}

	set(pose.Nose, 0.50, 0.20, -0.10)
	set(pose.LeftEye, 0.52, 0.18, -0.09)
	set(pose.RightEye, 0.48, 0.18, -0.09)
	set(pose.LeftEar, 0.55, 0.19, -0.02)
	set(pose.RightEar, 0.45, 0.19, -0.02)
	set(pose.LeftShoulder, 0.60, 0.32, 0.00)
	set(pose.RightShoulder, 0.40, 0.32, 0.00)
	set(pose.LeftElbow, 0.63, 0.45, 0.02)
	set(pose.RightElbow, 0.37, 0.45, 0.02)
	set(pose.LeftWrist, 0.64, 0.57, 0.00)
	set(pose.RightWrist, 0.36, 0.57, 0.00)
	set(pose.LeftHip, 0.57, 0.60, 0.00)
	set(pose.RightHip, 0.43, 0.60, 0.00)
	set(pose.LeftKnee, 0.57, 0.78, 0.01)
	set(pose.RightKnee, 0.43, 0.78, 0.01)
	set(pose.LeftAnkle, 0.57, 0.95, 0.03)
	set(pose.RightAnkle, 0.43, 0.95, 0.03)
	return s
}

// IdlePose is a neutral standing pose.
func IdlePose() pose.Snapshot {
	return standing()
}

// WavePose raises the right forearm above the shoulder.
func WavePose() pose.Snapshot {
	s := standing()
	s.Landmarks[pose.RightElbow] = pose.Landmark{X: 0.28, Y: 0.30, Z: 0.00, Visibility: 0.95}
	s.Landmarks[pose.RightWrist] = pose.Landmark{X: 0.30, Y: 0.15, Z: -0.02, Visibility: 0.90}
	return s
}

// PunchPose thrusts the right arm toward the camera.
func PunchPose() pose.Snapshot {
	s := standing()
	s.Landmarks[pose.RightElbow] = pose.Landmark{X: 0.40, Y: 0.34, Z: -0.18, Visibility: 0.90}
	s.Landmarks[pose.RightWrist] = pose.Landmark{X: 0.41, Y: 0.33, Z: -0.36, Visibility: 0.85}
	return s
}

// Frame converts a snapshot into a raw frame with the given capture time.
func Frame(s pose.Snapshot, at time.Time) pose.Frame {
	lms := make([]pose.Landmark, pose.NumLandmarks)
	copy(lms, s.Landmarks[:])
	return pose.Frame{Landmarks: lms, CapturedAt: at}
}
