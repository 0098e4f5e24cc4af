package smoothing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ayusman/pantomime/internal/pose"
)

func steadyFrame(x, y float64) pose.Frame {
	lms := make([]pose.Landmark, pose.NumLandmarks)
	for i := range lms {
		lms[i] = pose.Landmark{X: x, Y: y, Z: 0.1, Visibility: 0.9}
	}
	return pose.Frame{Landmarks: lms}
}

func TestSmoother_FirstFramePassesThrough(t *testing.T) {
	s := New(DefaultConfig())
	in := steadyFrame(0.4, 0.6)
	out := s.Smooth(in)
	for i := range in.Landmarks {
		if out.Landmarks[i] != in.Landmarks[i] {
			t.Fatalf("landmark %d changed on the first frame: %+v", i, out.Landmarks[i])
		}
	}
}

func TestSmoother_ReducesJitter(t *testing.T) {
	s := New(DefaultConfig())
	rng := rand.New(rand.NewSource(1))

	var rawErr, smoothErr float64
	for n := 0; n < 200; n++ {
		noisy := steadyFrame(0.5+rng.NormFloat64()*0.03, 0.5+rng.NormFloat64()*0.03)
		out := s.Smooth(noisy)
		if n < 20 {
			continue
		}
		rawErr += math.Abs(noisy.Landmarks[0].X - 0.5)
		smoothErr += math.Abs(out.Landmarks[0].X - 0.5)
	}
	if smoothErr >= rawErr {
		t.Errorf("smoothed error %.4f not below raw error %.4f", smoothErr, rawErr)
	}
}

func TestSmoother_VisibilityClamped(t *testing.T) {
	s := New(DefaultConfig())
	for n := 0; n < 30; n++ {
		f := steadyFrame(0.5, 0.5)
		for i := range f.Landmarks {
			f.Landmarks[i].Visibility = 1
		}
		out := s.Smooth(f)
		if err := out.Validate(); err != nil {
			t.Fatalf("frame %d: %v", n, err)
		}
	}
}

func TestSmoother_PassThrough(t *testing.T) {
	s := New(DefaultConfig())
	s.Smooth(steadyFrame(0.5, 0.5))

	t.Run("no body resets", func(t *testing.T) {
		empty := pose.Frame{Landmarks: make([]pose.Landmark, pose.NumLandmarks)}
		out := s.Smooth(empty)
		for _, lm := range out.Landmarks {
			if lm != (pose.Landmark{}) {
				t.Fatal("empty frame was altered")
			}
		}
		for i, tr := range s.tracks {
			if tr != nil {
				t.Fatalf("track %d survived an empty frame", i)
			}
		}
	})

	t.Run("malformed untouched", func(t *testing.T) {
		short := pose.Frame{Landmarks: make([]pose.Landmark, 5)}
		if out := s.Smooth(short); len(out.Landmarks) != 5 {
			t.Errorf("got %d landmarks, want 5", len(out.Landmarks))
		}
	})
}
