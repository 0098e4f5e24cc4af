package interpret

import (
	"context"
	"log"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/ayusman/pantomime/internal/gesture"
	"github.com/ayusman/pantomime/internal/stream"
)

// DefaultTimeout bounds a single Interpret call.
const DefaultTimeout = 10 * time.Second

// Stats counts what the stage has done.
type Stats struct {
	Received    uint64 `json:"received"`
	Failed      uint64 `json:"failed"`
	Rejected    uint64 `json:"rejected"`
	Forwarded   uint64 `json:"forwarded"`
	Dropped     uint64 `json:"dropped"`
	Interpreter string `json:"interpreter"`
}

// Stage sits between the coordinator's outbound queue and presentation.
// Every name an interpreter returns is checked against the library before
// it is forwarded; presentation never sees an unknown gesture.
type Stage struct {
	interp  Interpreter
	library *gesture.Library
	in      *stream.Queue[gesture.Name]
	out     *stream.Queue[gesture.Name]
	timeout time.Duration
	options []string

	received  atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
	forwarded atomic.Uint64
	dropped   atomic.Uint64
}

// NewStage wires interp between in and out. The options offered to the
// interpreter list the default gesture first, then the rest in library order.
func NewStage(interp Interpreter, library *gesture.Library, in, out *stream.Queue[gesture.Name], timeout time.Duration) *Stage {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	options := []string{library.Default().String()}
	for _, n := range library.Names() {
		if n != library.Default() {
			options = append(options, n.String())
		}
	}
	return &Stage{
		interp:  interp,
		library: library,
		in:      in,
		out:     out,
		timeout: timeout,
		options: options,
	}
}

// Options returns the gesture names offered to the interpreter.
func (s *Stage) Options() []string {
	return append([]string(nil), s.options...)
}

// Run consumes matched gestures until ctx is done. A panic in the
// interpreter is logged and ends Run.
func (s *Stage) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Interpret] stage panicked: %v\n%s", r, debug.Stack())
		}
	}()

	log.Printf("[Interpret] using %s with %d options", s.interp.Name(), len(s.options))
	for {
		name, err := s.in.Pop(ctx)
		if err != nil {
			return
		}
		s.Handle(ctx, name)
	}
}

// Handle interprets one matched gesture. If the interpreter fails, the
// matched gesture itself is forwarded so the avatar still responds.
func (s *Stage) Handle(ctx context.Context, matched gesture.Name) {
	s.received.Add(1)

	ictx, cancel := context.WithTimeout(ctx, s.timeout)
	replies, err := s.interp.Interpret(ictx, matched.String(), s.Options())
	cancel()
	if err != nil {
		s.failed.Add(1)
		log.Printf("[Interpret] %s failed for %s: %v", s.interp.Name(), matched, err)
		replies = []string{matched.String()}
	}

	for _, r := range replies {
		name, err := s.library.Lookup(r)
		if err != nil {
			s.rejected.Add(1)
			log.Printf("[Interpret] ignoring reply %q: %v", r, err)
			continue
		}
		if !s.out.TryPush(name) {
			s.dropped.Add(1)
			continue
		}
		s.forwarded.Add(1)
		log.Printf("Interpreted %s as %s", matched, name)
	}
}

// Stats returns the stage counters.
func (s *Stage) Stats() Stats {
	return Stats{
		Received:    s.received.Load(),
		Failed:      s.failed.Load(),
		Rejected:    s.rejected.Load(),
		Forwarded:   s.forwarded.Load(),
		Dropped:     s.dropped.Load(),
		Interpreter: s.interp.Name(),
	}
}
