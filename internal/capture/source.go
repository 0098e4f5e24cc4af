package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/ayusman/pantomime/internal/detector"
	"github.com/ayusman/pantomime/internal/pose"
	"github.com/ayusman/pantomime/internal/timeutil"
)

// ErrSourceExhausted is returned by finite sources after their last frame.
var ErrSourceExhausted = errors.New("pose source exhausted")

// Source yields one pose frame per call.
type Source interface {
	Next(ctx context.Context) (pose.Frame, error)
	Close() error
}

// Smoother filters landmark jitter between consecutive frames.
type Smoother interface {
	Smooth(frame pose.Frame) pose.Frame
	Reset()
}

// CameraSource reads camera frames at a motion-dependent rate and runs pose
// estimation on each.
type CameraSource struct {
	camera   Camera
	detector detector.Detector
	motion   *MotionDetector
	rate     *RateController
	smoother Smoother
	clock    timeutil.Clock
	ticker   timeutil.Ticker
}

// CameraSourceConfig wires a CameraSource.
type CameraSourceConfig struct {
	Camera       Camera
	Detector     detector.Detector
	Rate         RateConfig
	MotionThresh float64
	Smoother     Smoother // optional
	Clock        timeutil.Clock
}

// NewCameraSource opens the camera and starts pacing at the idle rate.
func NewCameraSource(cfg CameraSourceConfig) (*CameraSource, error) {
	if cfg.Camera == nil || cfg.Detector == nil {
		return nil, errors.New("camera source needs a camera and a detector")
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if err := cfg.Camera.Open(); err != nil {
		return nil, err
	}

	rate := NewRateController(cfg.Rate, cfg.Clock)
	cfg.Camera.SetFPS(rate.FPS())

	return &CameraSource{
		camera:   cfg.Camera,
		detector: cfg.Detector,
		motion:   NewMotionDetector(cfg.MotionThresh),
		rate:     rate,
		smoother: cfg.Smoother,
		clock:    cfg.Clock,
		ticker:   cfg.Clock.NewTicker(time.Second / time.Duration(rate.FPS())),
	}, nil
}

// Next waits for the next capture tick, then reads and estimates one frame.
func (s *CameraSource) Next(ctx context.Context) (pose.Frame, error) {
	select {
	case <-ctx.Done():
		return pose.Frame{}, ctx.Err()
	case <-s.ticker.C():
	}

	mat, err := s.camera.ReadFrame()
	if err != nil {
		return pose.Frame{}, fmt.Errorf("read frame: %w", err)
	}
	defer mat.Close()

	moved, _ := s.motion.Detect(mat)
	if fps, changed := s.rate.Observe(moved); changed {
		s.camera.SetFPS(fps)
		s.ticker.Reset(time.Second / time.Duration(fps))
		if s.rate.Active() {
			log.Println("Switched to active capture rate")
		} else {
			log.Println("Switched to idle capture rate")
		}
	}

	frame, err := s.detector.Detect(mat)
	if err != nil {
		return pose.Frame{}, fmt.Errorf("estimate pose: %w", err)
	}
	frame.CapturedAt = s.clock.Now()

	if s.smoother != nil {
		frame = s.smoother.Smooth(frame)
	}
	return frame, nil
}

// Close stops pacing and releases the camera, motion baseline and detector.
func (s *CameraSource) Close() error {
	s.ticker.Stop()
	s.motion.Close()
	if s.smoother != nil {
		s.smoother.Reset()
	}
	camErr := s.camera.Close()
	if err := s.detector.Close(); err != nil {
		return err
	}
	return camErr
}

// ReplaySource plays back recorded frames as fast as they are requested.
type ReplaySource struct {
	frames []pose.Frame
	next   int
	loop   bool
}

// NewReplaySource replays frames once, or forever when loop is set.
func NewReplaySource(frames []pose.Frame, loop bool) *ReplaySource {
	return &ReplaySource{frames: frames, loop: loop}
}

// LoadReplay reads newline-delimited JSON frames.
func LoadReplay(r io.Reader) ([]pose.Frame, error) {
	var frames []pose.Frame
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var f pose.Frame
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return frames, nil
}

func (s *ReplaySource) Next(ctx context.Context) (pose.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pose.Frame{}, err
	}
	if s.next >= len(s.frames) {
		if !s.loop || len(s.frames) == 0 {
			return pose.Frame{}, ErrSourceExhausted
		}
		s.next = 0
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *ReplaySource) Close() error { return nil }
