package pipeline

import (
	"sync"
	"sync/atomic"
)

// Signals are the two flags shared between the pipeline and its consumers.
// Writes become visible to other goroutines eventually, not synchronously.
type Signals struct {
	stop   atomic.Bool
	active atomic.Bool
	once   sync.Once
	done   chan struct{}
}

// NewSignals returns cleared signals.
func NewSignals() *Signals {
	return &Signals{done: make(chan struct{})}
}

// Stop requests shutdown. It is idempotent and cannot be undone.
func (s *Signals) Stop() {
	s.stop.Store(true)
	s.once.Do(func() { close(s.done) })
}

// Stopped reports whether Stop has been called.
func (s *Signals) Stopped() bool { return s.stop.Load() }

// Done is closed by the first Stop.
func (s *Signals) Done() <-chan struct{} { return s.done }

// SetActive records whether presentation is playing a non-default gesture.
// Only the presentation side writes it.
func (s *Signals) SetActive(on bool) { s.active.Store(on) }

// Active reports the presentation state.
func (s *Signals) Active() bool { return s.active.Load() }
