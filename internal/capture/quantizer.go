package capture

import (
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/ayusman/pantomime/internal/pose"
	"github.com/ayusman/pantomime/internal/stream"
	"github.com/ayusman/pantomime/internal/timeutil"
)

// DefaultWindow is how long frames are pooled before a snapshot is taken.
const DefaultWindow = 6 * time.Second

// QuantizerConfig holds the Quantizer's tunables.
type QuantizerConfig struct {
	// Window is the accumulation period (default: 6s).
	Window time.Duration

	// MinSamples is the fewest frames a window needs to be published (default: 1).
	MinSamples int
}

// DefaultQuantizerConfig returns the standard six-second window.
func DefaultQuantizerConfig() QuantizerConfig {
	return QuantizerConfig{
		Window:     DefaultWindow,
		MinSamples: 1,
	}
}

// QuantizerStats is a point-in-time view of the Quantizer's counters.
type QuantizerStats struct {
	Accepted  uint64 `json:"accepted"`
	Rejected  uint64 `json:"rejected"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Short     uint64 `json:"short"`
	Discarded uint64 `json:"discarded"`
}

// Quantizer pools pose frames over a fixed window and publishes their mean.
//
// Submit must only be called from a single goroutine; the accumulator is not
// locked. Stats may be read from anywhere.
type Quantizer struct {
	config QuantizerConfig
	clock  timeutil.Clock
	out    *stream.Queue[pose.Snapshot]
	errs   *stream.Queue[error]

	sum     [pose.NumLandmarks]pose.Landmark
	count   int
	start   time.Time
	started bool

	accepted  atomic.Uint64
	rejected  atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
	short     atomic.Uint64
	discarded atomic.Uint64
}

// NewQuantizer creates a Quantizer publishing to out. errs receives every
// rejected frame's error and may be nil.
func NewQuantizer(config QuantizerConfig, clock timeutil.Clock, out *stream.Queue[pose.Snapshot], errs *stream.Queue[error]) *Quantizer {
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if config.MinSamples < 1 {
		config.MinSamples = 1
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Quantizer{
		config: config,
		clock:  clock,
		out:    out,
		errs:   errs,
	}
}

// Submit offers one frame. It never blocks. A frame arriving after the
// window has run out closes that window instead of joining it; the next
// frame opens a fresh one.
func (q *Quantizer) Submit(frame pose.Frame) error {
	if err := frame.Validate(); err != nil {
		q.rejected.Add(1)
		if q.errs != nil {
			q.errs.TryPush(err)
		}
		return err
	}

	now := q.clock.Now()
	if !q.started {
		q.started = true
		q.start = now
	} else if now.Sub(q.start) > q.config.Window {
		q.closeWindow()
		return nil
	}

	for i, lm := range frame.Landmarks {
		acc := &q.sum[i]
		acc.X += lm.X
		acc.Y += lm.Y
		acc.Z += lm.Z
		acc.Visibility += lm.Visibility
	}
	q.count++
	q.accepted.Add(1)
	return nil
}

// Pending reports how many frames are in the open window.
func (q *Quantizer) Pending() int {
	return q.count
}

// Discard throws away the open window without publishing it.
func (q *Quantizer) Discard() {
	if q.count > 0 {
		q.discarded.Add(1)
	}
	q.reset()
}

func (q *Quantizer) closeWindow() {
	defer q.reset()

	if q.count < q.config.MinSamples {
		q.short.Add(1)
		return
	}

	snap := pose.Snapshot{Samples: q.count, WindowStart: q.start}
	n := float64(q.count)
	for i, acc := range q.sum {
		snap.Landmarks[i] = pose.Landmark{
			X:          acc.X / n,
			Y:          acc.Y / n,
			Z:          acc.Z / n,
			Visibility: acc.Visibility / n,
		}
	}

	if q.out.TryPush(snap) {
		q.published.Add(1)
		return
	}
	dropped := q.dropped.Add(1)
	if dropped == 1 || dropped%10 == 0 {
		log.Printf("[Quantizer] snapshot queue full, dropped %d snapshots so far", dropped)
	}
}

func (q *Quantizer) reset() {
	q.sum = [pose.NumLandmarks]pose.Landmark{}
	q.count = 0
	q.started = false
	q.start = time.Time{}
}

// Stats snapshots the counters.
func (q *Quantizer) Stats() QuantizerStats {
	return QuantizerStats{
		Accepted:  q.accepted.Load(),
		Rejected:  q.rejected.Load(),
		Published: q.published.Load(),
		Dropped:   q.dropped.Load(),
		Short:     q.short.Load(),
		Discarded: q.discarded.Load(),
	}
}

// IsMalformed reports whether err came from a rejected frame.
func IsMalformed(err error) bool {
	var mfe *pose.MalformedFrameError
	return errors.As(err, &mfe)
}
