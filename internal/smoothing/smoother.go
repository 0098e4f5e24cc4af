// Package smoothing filters landmark jitter with a constant-velocity Kalman
// filter per landmark.
package smoothing

import (
	"log"
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"

	"github.com/ayusman/pantomime/internal/pose"
)

// Config holds Kalman noise parameters.
type Config struct {
	// DT is the nominal time between frames, in seconds.
	DT float64
	// StdDevA is the process (acceleration) noise.
	StdDevA float64
	// StdDevM is the measurement noise shared by every channel.
	StdDevM float64
}

// DefaultConfig suits the active capture rate of 15 fps.
func DefaultConfig() Config {
	return Config{
		DT:      1.0 / 15,
		StdDevA: 0.5,
		StdDevM: 0.05,
	}
}

// track filters one landmark: (x, y) in one filter, (z, visibility) in another.
type track struct {
	xy *kalman_filter.Kalman2D
	zv *kalman_filter.Kalman2D
}

// Smoother keeps filter state across frames. It is not safe for concurrent use.
type Smoother struct {
	config Config
	tracks [pose.NumLandmarks]*track
}

// New returns a Smoother with no history.
func New(config Config) *Smoother {
	if config.DT <= 0 {
		config.DT = DefaultConfig().DT
	}
	return &Smoother{config: config}
}

// Smooth returns a filtered copy of frame. Frames that are malformed or show
// no body pass through untouched; a frame with no body also clears history.
func (s *Smoother) Smooth(frame pose.Frame) pose.Frame {
	if len(frame.Landmarks) != pose.NumLandmarks {
		return frame
	}
	if noBody(frame) {
		s.Reset()
		return frame
	}

	out := pose.Frame{
		Landmarks:  make([]pose.Landmark, pose.NumLandmarks),
		CapturedAt: frame.CapturedAt,
	}
	for i, lm := range frame.Landmarks {
		filtered, err := s.step(i, lm)
		if err != nil {
			log.Printf("[Smoother] landmark %d: %v", i, err)
			s.tracks[i] = nil
			filtered = lm
		}
		out.Landmarks[i] = filtered
	}
	return out
}

// Reset drops all filter state.
func (s *Smoother) Reset() {
	s.tracks = [pose.NumLandmarks]*track{}
}

func (s *Smoother) step(i int, lm pose.Landmark) (pose.Landmark, error) {
	if !finite(lm) {
		return lm, nil
	}

	t := s.tracks[i]
	if t == nil {
		s.tracks[i] = &track{
			xy: s.newFilter(lm.X, lm.Y),
			zv: s.newFilter(lm.Z, lm.Visibility),
		}
		return lm, nil
	}

	t.xy.Predict()
	t.zv.Predict()
	if err := t.xy.Update(lm.X, lm.Y); err != nil {
		return lm, errors.Wrap(err, "can't update xy filter")
	}
	if err := t.zv.Update(lm.Z, lm.Visibility); err != nil {
		return lm, errors.Wrap(err, "can't update z/visibility filter")
	}

	x, y := t.xy.GetState()
	z, v := t.zv.GetState()
	return pose.Landmark{X: x, Y: y, Z: z, Visibility: math.Min(1, math.Max(0, v))}, nil
}

func (s *Smoother) newFilter(a, b float64) *kalman_filter.Kalman2D {
	return kalman_filter.NewKalman2D(
		s.config.DT, 0, 0,
		s.config.StdDevA, s.config.StdDevM, s.config.StdDevM,
		kalman_filter.WithState2D(a, b),
	)
}

func noBody(f pose.Frame) bool {
	for _, lm := range f.Landmarks {
		if lm != (pose.Landmark{}) {
			return false
		}
	}
	return true
}

func finite(lm pose.Landmark) bool {
	for _, v := range [...]float64{lm.X, lm.Y, lm.Z, lm.Visibility} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
