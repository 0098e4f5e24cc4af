package pose

import (
	"errors"
	"math"
	"testing"
)

func validFrame() Frame {
	lms := make([]Landmark, NumLandmarks)
	for i := range lms {
		lms[i] = Landmark{X: 0.5, Y: 0.5, Visibility: 1}
	}
	return Frame{Landmarks: lms}
}

func TestFrame_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(f *Frame)
		wantErr  bool
		landmark int
	}{
		{"valid", func(f *Frame) {}, false, 0},
		{"too few", func(f *Frame) { f.Landmarks = f.Landmarks[:21] }, true, -1},
		{"too many", func(f *Frame) { f.Landmarks = append(f.Landmarks, Landmark{}) }, true, -1},
		{"nan", func(f *Frame) { f.Landmarks[4].Y = math.NaN() }, true, 4},
		{"inf", func(f *Frame) { f.Landmarks[30].Z = math.Inf(-1) }, true, 30},
		{"visibility high", func(f *Frame) { f.Landmarks[11].Visibility = 1.2 }, true, 11},
		{"visibility negative", func(f *Frame) { f.Landmarks[0].Visibility = -0.1 }, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFrame()
			tt.mutate(&f)
			err := f.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var mfe *MalformedFrameError
			if !errors.As(err, &mfe) {
				t.Fatalf("Validate() = %v, want *MalformedFrameError", err)
			}
			if mfe.Landmark != tt.landmark {
				t.Errorf("Landmark = %d, want %d", mfe.Landmark, tt.landmark)
			}
		})
	}
}

func TestSnapshot_Empty(t *testing.T) {
	var s Snapshot
	if !s.Empty() {
		t.Error("zero snapshot should be empty")
	}
	s.Landmarks[RightAnkle].Visibility = 0.01
	if s.Empty() {
		t.Error("snapshot with a visible landmark should not be empty")
	}
}

func TestSnapshotFromRows(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		var s Snapshot
		for i := range s.Landmarks {
			s.Landmarks[i] = Landmark{X: float64(i), Y: 1, Z: 2, Visibility: 0.5}
		}
		got, err := SnapshotFromRows(s.Rows(), ChannelsPerMark)
		if err != nil {
			t.Fatalf("SnapshotFromRows: %v", err)
		}
		if got.Landmarks != s.Landmarks {
			t.Error("landmarks differ after round trip")
		}
	})

	t.Run("extra columns ignored", func(t *testing.T) {
		data := make([]float64, NumLandmarks*5)
		for i := 0; i < NumLandmarks; i++ {
			data[i*5+3] = 0.7
			data[i*5+4] = 99
		}
		got, err := SnapshotFromRows(data, 5)
		if err != nil {
			t.Fatalf("SnapshotFromRows: %v", err)
		}
		if got.Landmarks[32].Visibility != 0.7 {
			t.Errorf("visibility = %v, want 0.7", got.Landmarks[32].Visibility)
		}
	})

	t.Run("too few columns", func(t *testing.T) {
		if _, err := SnapshotFromRows(make([]float64, NumLandmarks*3), 3); err == nil {
			t.Error("expected error for 3 columns")
		}
	})

	t.Run("wrong row count", func(t *testing.T) {
		if _, err := SnapshotFromRows(make([]float64, 21*4), 4); err == nil {
			t.Error("expected error for 21 rows")
		}
	})
}
