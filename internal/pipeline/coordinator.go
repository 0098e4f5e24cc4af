// Package pipeline wires pose capture, quantization and classification
// together and publishes matched gesture names to downstream consumers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/pantomime/internal/capture"
	"github.com/ayusman/pantomime/internal/gesture"
	"github.com/ayusman/pantomime/internal/pose"
	"github.com/ayusman/pantomime/internal/stream"
	"github.com/ayusman/pantomime/internal/timeutil"
)

// Config holds the coordinator's tunables.
type Config struct {
	Quantizer capture.QuantizerConfig

	// Metric scores snapshots against the library (default: cosine).
	Metric gesture.Metric

	// SnapshotQueue and OutboundQueue bound the two hand-off queues (default: 10).
	SnapshotQueue int
	OutboundQueue int

	// FallbackOnDegenerate emits the default gesture when a snapshot cannot
	// be scored, instead of skipping it.
	FallbackOnDegenerate bool

	// StatsInterval is how often counters are logged; zero disables it.
	StatsInterval time.Duration
}

// DefaultConfig returns a six-second window, cosine scoring and queues of ten.
func DefaultConfig() Config {
	return Config{
		Quantizer:     capture.DefaultQuantizerConfig(),
		Metric:        gesture.MetricCosine,
		SnapshotQueue: stream.DefaultCapacity,
		OutboundQueue: stream.DefaultCapacity,
		StatsInterval: time.Minute,
	}
}

// Status is a point-in-time view of the pipeline for the control API.
type Status struct {
	Running     bool                   `json:"running"`
	Enabled     bool                   `json:"enabled"`
	Stopped     bool                   `json:"stopped"`
	Active      bool                   `json:"active"`
	Metric      string                 `json:"metric"`
	Gestures    []gesture.Name         `json:"gestures"`
	Quantizer   capture.QuantizerStats `json:"quantizer"`
	Snapshots   stream.Stats           `json:"snapshots"`
	Outbound    stream.Stats           `json:"outbound"`
	Classified  uint64                 `json:"classified"`
	NoBody      uint64                 `json:"no_body"`
	Degenerate  uint64                 `json:"degenerate"`
	LastMatch   *gesture.Match         `json:"last_match,omitempty"`
	LastMatchAt time.Time              `json:"last_match_at,omitzero"`
}

// Coordinator runs the capture and classify stages. Frames only ever touch
// the capture goroutine; the classify goroutine only sees finished snapshots.
type Coordinator struct {
	config    Config
	library   *gesture.Library
	source    capture.Source
	signals   *Signals
	clock     timeutil.Clock
	quantizer *capture.Quantizer
	snapshots *stream.Queue[pose.Snapshot]
	rejects   *stream.Queue[error]
	outbound  *stream.Queue[gesture.Name]

	enabled    atomic.Bool
	classified atomic.Uint64
	noBody     atomic.Uint64
	degenerate atomic.Uint64

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastMatch   *gesture.Match
	lastMatchAt time.Time

	onMatch func(gesture.Match)
}

// New creates a Coordinator. Detection starts enabled.
func New(config Config, library *gesture.Library, source capture.Source, signals *Signals, clock timeutil.Clock) *Coordinator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if signals == nil {
		signals = NewSignals()
	}

	snapshots := stream.NewQueue[pose.Snapshot](config.SnapshotQueue)
	rejects := stream.NewQueue[error](config.SnapshotQueue)
	c := &Coordinator{
		config:    config,
		library:   library,
		source:    source,
		signals:   signals,
		clock:     clock,
		quantizer: capture.NewQuantizer(config.Quantizer, clock, snapshots, rejects),
		snapshots: snapshots,
		rejects:   rejects,
		outbound:  stream.NewQueue[gesture.Name](config.OutboundQueue),
	}
	c.enabled.Store(true)
	return c
}

// Outbound is the queue of matched gesture names.
func (c *Coordinator) Outbound() *stream.Queue[gesture.Name] { return c.outbound }

// Signals returns the shared control flags.
func (c *Coordinator) Signals() *Signals { return c.signals }

// Library returns the reference library the coordinator matches against.
func (c *Coordinator) Library() *gesture.Library { return c.library }

// OnMatch registers a callback run on the classify goroutine for every match.
func (c *Coordinator) OnMatch(fn func(gesture.Match)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMatch = fn
}

// SetEnabled pauses or resumes capture. While paused, frames are read and
// thrown away and the open window is discarded.
func (c *Coordinator) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
	log.Printf("Detection enabled: %v", enabled)
}

// IsEnabled reports whether capture is feeding the quantizer.
func (c *Coordinator) IsEnabled() bool { return c.enabled.Load() }

// Start launches the pipeline goroutines. It returns an error if the
// coordinator is already running or has been stopped.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return errors.New("pipeline already running")
	}
	if c.signals.Stopped() {
		return errors.New("pipeline stopped")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-c.signals.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	c.spawn("capture", func() { c.runCapture(ctx) })
	c.spawn("classify", func() { c.runClassify(ctx) })
	c.spawn("rejects", func() { c.runRejects(ctx) })
	if c.config.StatsInterval > 0 {
		c.spawn("stats", func() { c.runStats(ctx) })
	}

	log.Println("Detection pipeline started")
	return nil
}

// Stop raises the stop signal and waits for every stage to return.
func (c *Coordinator) Stop() {
	c.signals.Stop()
	c.Wait()
}

// Wait blocks until all stages have returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.running = false
		if c.cancel != nil {
			c.cancel()
		}
		log.Println("Detection pipeline stopped")
	}
}

// spawn runs fn on its own goroutine. A panic is logged and stops the
// whole pipeline rather than crashing the process.
func (c *Coordinator) spawn(stage string, fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Coordinator] %s stage panicked: %v\n%s", stage, r, debug.Stack())
				c.signals.Stop()
			}
		}()
		fn()
	}()
}

func (c *Coordinator) runCapture(ctx context.Context) {
	defer c.source.Close()

	var readErrs uint64
	for {
		if c.signals.Stopped() || ctx.Err() != nil {
			// At-most-once: the open window is never flushed on shutdown.
			c.quantizer.Discard()
			return
		}

		frame, err := c.source.Next(ctx)
		switch {
		case errors.Is(err, capture.ErrSourceExhausted):
			log.Println("[Coordinator] pose source exhausted")
			c.quantizer.Discard()
			return
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			readErrs++
			if readErrs == 1 || readErrs%50 == 0 {
				log.Printf("[Coordinator] capture error (%d so far): %v", readErrs, err)
			}
			continue
		}

		if !c.enabled.Load() {
			c.quantizer.Discard()
			continue
		}
		// Rejections are reported through the rejects queue.
		_ = c.quantizer.Submit(frame)
	}
}

func (c *Coordinator) runClassify(ctx context.Context) {
	for {
		snap, err := c.snapshots.Pop(ctx)
		if err != nil {
			return
		}
		if c.signals.Stopped() {
			return
		}
		c.classify(snap)
	}
}

func (c *Coordinator) classify(snap pose.Snapshot) {
	if snap.Empty() {
		c.noBody.Add(1)
		return
	}

	m, err := c.library.Match(pose.Encode(snap), c.config.Metric)
	var dge *gesture.DegenerateInputError
	switch {
	case errors.As(err, &dge):
		c.degenerate.Add(1)
		if !c.config.FallbackOnDegenerate {
			log.Printf("[Coordinator] skipped snapshot: %v", err)
			return
		}
		m = gesture.Match{Name: c.library.Default()}
	case err != nil:
		log.Printf("[Coordinator] match failed: %v", err)
		return
	}

	c.classified.Add(1)
	now := c.clock.Now()

	c.mu.Lock()
	c.lastMatch = &m
	c.lastMatchAt = now
	onMatch := c.onMatch
	c.mu.Unlock()

	log.Printf("Gesture matched: %s (score: %.3f, %d frames)", m.Name, m.Score, snap.Samples)
	if onMatch != nil {
		onMatch(m)
	}

	if !c.outbound.TryPush(m.Name) {
		if dropped := c.outbound.Stats().Dropped; dropped == 1 || dropped%10 == 0 {
			log.Printf("[Coordinator] outbound queue full, dropped %d gestures so far", dropped)
		}
	}
}

func (c *Coordinator) runRejects(ctx context.Context) {
	var n uint64
	for {
		err, popErr := c.rejects.Pop(ctx)
		if popErr != nil {
			return
		}
		n++
		if n == 1 || n%100 == 0 {
			log.Printf("[Quantizer] rejected frame (%d so far): %v", n, err)
		}
	}
}

func (c *Coordinator) runStats(ctx context.Context) {
	ticker := c.clock.NewTicker(c.config.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			st := c.Status()
			log.Printf("[Coordinator] windows published=%d dropped=%d short=%d rejected=%d | gestures classified=%d no_body=%d degenerate=%d outbound_dropped=%d",
				st.Quantizer.Published, st.Quantizer.Dropped, st.Quantizer.Short, st.Quantizer.Rejected,
				st.Classified, st.NoBody, st.Degenerate, st.Outbound.Dropped)
		}
	}
}

// Status snapshots counters and flags.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		Running:     c.running,
		Enabled:     c.enabled.Load(),
		Stopped:     c.signals.Stopped(),
		Active:      c.signals.Active(),
		Metric:      c.config.Metric.String(),
		Gestures:    c.library.Names(),
		Quantizer:   c.quantizer.Stats(),
		Snapshots:   c.snapshots.Stats(),
		Outbound:    c.outbound.Stats(),
		Classified:  c.classified.Load(),
		NoBody:      c.noBody.Load(),
		Degenerate:  c.degenerate.Load(),
		LastMatchAt: c.lastMatchAt,
	}
	if c.lastMatch != nil {
		m := *c.lastMatch
		st.LastMatch = &m
	}
	return st
}

func (s Status) String() string {
	return fmt.Sprintf("running=%v stopped=%v active=%v classified=%d", s.Running, s.Stopped, s.Active, s.Classified)
}
