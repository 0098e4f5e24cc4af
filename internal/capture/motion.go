package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pantomime/internal/timeutil"
)

const (
	blurKernel    = 21
	diffThreshold = 25
)

// MotionDetector compares each frame against the previous one after
// grayscale conversion and a Gaussian blur.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64 // percent of pixels that must change
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector returns a detector that reports motion when more than
// threshold percent of pixels change between frames.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = 1.0
	}
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect reports whether frame differs from the last frame seen and by how
// many percent of pixels. The first frame only primes the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed {
		blurred.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)
	gocv.Threshold(diff, &diff, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	blurred.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.primed = false
}

// RateConfig controls how quickly capture slows down once the body is still.
type RateConfig struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration
}

// DefaultRateConfig returns 5 fps idle, 15 fps active and a 2s cooldown.
func DefaultRateConfig() RateConfig {
	return RateConfig{
		IdleFPS:     DefaultIdleFPS,
		ActiveFPS:   DefaultActiveFPS,
		IdleTimeout: 2 * time.Second,
	}
}

// RateController picks the capture rate from recent motion. It is driven
// from the capture goroutine only.
type RateController struct {
	config     RateConfig
	clock      timeutil.Clock
	active     bool
	lastMotion time.Time
}

// NewRateController starts in idle mode.
func NewRateController(config RateConfig, clock timeutil.Clock) *RateController {
	if config.IdleFPS <= 0 {
		config.IdleFPS = DefaultIdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = DefaultActiveFPS
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RateController{config: config, clock: clock}
}

// Observe records whether the latest frame moved and returns the rate to
// capture at, plus whether it differs from the previous call.
func (r *RateController) Observe(moved bool) (fps int, changed bool) {
	now := r.clock.Now()
	switch {
	case moved:
		r.lastMotion = now
		if !r.active {
			r.active = true
			return r.config.ActiveFPS, true
		}
	case r.active && now.Sub(r.lastMotion) > r.config.IdleTimeout:
		r.active = false
		return r.config.IdleFPS, true
	}
	return r.FPS(), false
}

// FPS returns the current rate.
func (r *RateController) FPS() int {
	if r.active {
		return r.config.ActiveFPS
	}
	return r.config.IdleFPS
}

// Active reports whether motion was seen within the idle timeout.
func (r *RateController) Active() bool {
	return r.active
}
