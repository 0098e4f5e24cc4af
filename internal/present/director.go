// Package present decides which clip the avatar shows and for how long,
// and broadcasts each decision as a Cue.
package present

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ayusman/pantomime/internal/gesture"
	"github.com/ayusman/pantomime/internal/stream"
	"github.com/ayusman/pantomime/internal/timeutil"
)

// Config holds presentation timing.
type Config struct {
	// DefaultHold is how long the resting clip plays before the queue is
	// checked again.
	DefaultHold time.Duration
	// MaxHold caps every other clip; clips without a known length use it.
	MaxHold time.Duration
	// Clips maps gesture names to their animation length.
	Clips map[gesture.Name]time.Duration
}

// DefaultConfig returns a 2s resting hold and an 8s cap.
func DefaultConfig() Config {
	return Config{
		DefaultHold: 2 * time.Second,
		MaxHold:     8 * time.Second,
	}
}

// Clip is one playable animation.
type Clip struct {
	Name     gesture.Name  `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Cue tells a renderer to play a clip.
type Cue struct {
	Seq     uint64        `json:"seq"`
	Gesture gesture.Name  `json:"gesture"`
	Active  bool          `json:"active"`
	Hold    time.Duration `json:"-"`
	HoldMS  int64         `json:"hold_ms"`
	At      time.Time     `json:"at"`
}

// ActivityFlag is set while a non-default clip is playing.
type ActivityFlag interface {
	SetActive(bool)
}

// Director pops interpreted gestures and turns each into a Cue. When the
// queue is empty the default clip plays and the activity flag is cleared.
type Director struct {
	config Config
	def    gesture.Name
	clips  []Clip
	queue  *stream.Queue[gesture.Name]
	flag   ActivityFlag
	clock  timeutil.Clock

	mu        sync.RWMutex
	seq       uint64
	current   Cue
	listeners map[uint64]chan Cue
	nextID    uint64
}

// NewDirector creates a Director for every gesture in lib.
func NewDirector(config Config, lib *gesture.Library, queue *stream.Queue[gesture.Name], flag ActivityFlag, clock timeutil.Clock) *Director {
	if config.DefaultHold <= 0 {
		config.DefaultHold = DefaultConfig().DefaultHold
	}
	if config.MaxHold <= 0 {
		config.MaxHold = DefaultConfig().MaxHold
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	def := lib.Default()
	clips := []Clip{{Name: def, Duration: config.DefaultHold}}
	for _, n := range lib.Names() {
		if n == def {
			continue
		}
		clips = append(clips, Clip{Name: n, Duration: config.Clips[n]})
	}

	return &Director{
		config:    config,
		def:       def,
		clips:     clips,
		queue:     queue,
		flag:      flag,
		clock:     clock,
		listeners: make(map[uint64]chan Cue),
	}
}

// Clips lists the playable clips, default first.
func (d *Director) Clips() []Clip {
	return append([]Clip(nil), d.clips...)
}

// HoldFor returns how long name plays.
func (d *Director) HoldFor(name gesture.Name) time.Duration {
	if name == d.def {
		return d.config.DefaultHold
	}
	length := d.config.Clips[name]
	if length <= 0 || length > d.config.MaxHold {
		return d.config.MaxHold
	}
	return length
}

// Next decides the next clip without waiting.
func (d *Director) Next() Cue {
	name, ok := d.queue.TryPop()
	active := ok && name != d.def
	if !ok {
		name = d.def
	}
	if d.flag != nil {
		d.flag.SetActive(active)
	}

	hold := d.HoldFor(name)
	d.mu.Lock()
	d.seq++
	cue := Cue{
		Seq:     d.seq,
		Gesture: name,
		Active:  active,
		Hold:    hold,
		HoldMS:  hold.Milliseconds(),
		At:      d.clock.Now(),
	}
	changed := cue.Gesture != d.current.Gesture
	d.current = cue
	for _, ch := range d.listeners {
		select {
		case ch <- cue:
		default:
		}
	}
	d.mu.Unlock()

	if changed {
		log.Printf("Presenting %s for %s", cue.Gesture, hold)
	}
	return cue
}

// Run plays clips until ctx is done.
func (d *Director) Run(ctx context.Context) {
	for {
		cue := d.Next()
		select {
		case <-ctx.Done():
			return
		case <-d.clock.After(cue.Hold):
		}
	}
}

// Current returns the most recent cue.
func (d *Director) Current() Cue {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Subscribe registers a listener. Cues are dropped for listeners that fall
// behind. The returned func unregisters and closes the channel.
func (d *Director) Subscribe(buffer int) (<-chan Cue, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Cue, buffer)

	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = ch
	d.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners, id)
			d.mu.Unlock()
			close(ch)
		})
	}
}
