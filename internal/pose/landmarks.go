// Package pose defines body landmark frames, window snapshots and the
// angular descriptor used to compare poses.
package pose

import (
	"fmt"
	"math"
	"time"
)

// Body landmark indices following the MediaPipe pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose            = 0
	LeftEyeInner    = 1
	LeftEye         = 2
	LeftEyeOuter    = 3
	RightEyeInner   = 4
	RightEye        = 5
	RightEyeOuter   = 6
	LeftEar         = 7
	RightEar        = 8
	MouthLeft       = 9
	MouthRight      = 10
	LeftShoulder    = 11
	RightShoulder   = 12
	LeftElbow       = 13
	RightElbow      = 14
	LeftWrist       = 15
	RightWrist      = 16
	LeftPinky       = 17
	RightPinky      = 18
	LeftIndex       = 19
	RightIndex      = 20
	LeftThumb       = 21
	RightThumb      = 22
	LeftHip         = 23
	RightHip        = 24
	LeftKnee        = 25
	RightKnee       = 26
	LeftAnkle       = 27
	RightAnkle      = 28
	LeftHeel        = 29
	RightHeel       = 30
	LeftFootIndex   = 31
	RightFootIndex  = 32
	NumLandmarks    = 33
	ChannelsPerMark = 4
)

// Landmark is one estimated body keypoint. Visibility is the estimator's
// confidence in [0, 1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Frame is a single raw sample from the pose source.
type Frame struct {
	Landmarks  []Landmark `json:"landmarks"`
	CapturedAt time.Time  `json:"captured_at"`
}

// MalformedFrameError reports a frame that cannot be folded into a window.
type MalformedFrameError struct {
	Landmark int // -1 when the frame as a whole is at fault
	Reason   string
}

func (e *MalformedFrameError) Error() string {
	if e.Landmark < 0 {
		return fmt.Sprintf("malformed pose frame: %s", e.Reason)
	}
	return fmt.Sprintf("malformed pose frame: landmark %d: %s", e.Landmark, e.Reason)
}

// Validate checks the landmark count, that every channel is finite and
// that visibility lies in [0, 1].
func (f Frame) Validate() error {
	if len(f.Landmarks) != NumLandmarks {
		return &MalformedFrameError{
			Landmark: -1,
			Reason:   fmt.Sprintf("got %d landmarks, want %d", len(f.Landmarks), NumLandmarks),
		}
	}
	for i, lm := range f.Landmarks {
		for _, v := range [...]float64{lm.X, lm.Y, lm.Z, lm.Visibility} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &MalformedFrameError{Landmark: i, Reason: "non-finite value"}
			}
		}
		if lm.Visibility < 0 || lm.Visibility > 1 {
			return &MalformedFrameError{
				Landmark: i,
				Reason:   fmt.Sprintf("visibility %g outside [0, 1]", lm.Visibility),
			}
		}
	}
	return nil
}

// Snapshot is the element-wise mean of the frames collected in one window.
type Snapshot struct {
	Landmarks   [NumLandmarks]Landmark `json:"landmarks"`
	Samples     int                    `json:"samples"`
	WindowStart time.Time              `json:"window_start"`
}

// Empty reports whether every channel of every landmark is zero, which is
// what the estimator produces when no body is in view.
func (s *Snapshot) Empty() bool {
	for _, lm := range s.Landmarks {
		if lm != (Landmark{}) {
			return false
		}
	}
	return true
}

// SnapshotFromRows builds a snapshot from a row-major (33, cols) array as
// stored for reference poses. Columns past the fourth are ignored.
func SnapshotFromRows(data []float64, cols int) (Snapshot, error) {
	var s Snapshot
	if cols < ChannelsPerMark {
		return s, fmt.Errorf("need at least %d columns, got %d", ChannelsPerMark, cols)
	}
	if len(data) != NumLandmarks*cols {
		return s, fmt.Errorf("need %d values for %d rows, got %d", NumLandmarks*cols, NumLandmarks, len(data))
	}
	for i := range s.Landmarks {
		row := data[i*cols : i*cols+ChannelsPerMark]
		s.Landmarks[i] = Landmark{X: row[0], Y: row[1], Z: row[2], Visibility: row[3]}
	}
	s.Samples = 1
	return s, nil
}

// Rows flattens the snapshot into a row-major (33, 4) array.
func (s *Snapshot) Rows() []float64 {
	out := make([]float64, 0, NumLandmarks*ChannelsPerMark)
	for _, lm := range s.Landmarks {
		out = append(out, lm.X, lm.Y, lm.Z, lm.Visibility)
	}
	return out
}
