package gesture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/pantomime/internal/pose"
)

// Reference is one gesture as a source provides it: either a pose to encode
// or a descriptor that was encoded ahead of time.
type Reference struct {
	Name       Name
	Pose       *pose.Snapshot
	Descriptor pose.Descriptor
}

// Source yields references in load order.
type Source interface {
	References(ctx context.Context) ([]Reference, error)
	String() string
}

// Entry is a loaded gesture.
type Entry struct {
	Name       Name            `json:"name"`
	Descriptor pose.Descriptor `json:"descriptor"`
}

// Library is an ordered, read-only set of reference descriptors. It is safe
// for concurrent use once Load returns.
type Library struct {
	entries []Entry
	norms   []float64
	index   map[Name]int
	def     Name
}

// Load reads every reference from src, encodes it and checks that def is
// among them. Any failure returns a *LoadError and no library.
func Load(ctx context.Context, src Source, def Name) (*Library, error) {
	loadErr := func(name Name, err error) error {
		return &LoadError{Source: src.String(), Name: name, Err: err}
	}

	refs, err := src.References(ctx)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, le
		}
		return nil, loadErr("", err)
	}

	lib := &Library{
		entries: make([]Entry, 0, len(refs)),
		norms:   make([]float64, 0, len(refs)),
		index:   make(map[Name]int, len(refs)),
		def:     def,
	}
	if canon, err := ParseName(string(def)); err == nil {
		lib.def = canon
	}
	for _, ref := range refs {
		// Names are stored in canonical form so that Lookup, which
		// canonicalizes its input, finds every loaded gesture.
		name, err := ParseName(string(ref.Name))
		if err != nil {
			return nil, loadErr(ref.Name, err)
		}
		if _, dup := lib.index[name]; dup {
			return nil, loadErr(ref.Name, errors.New("duplicate gesture"))
		}

		desc := ref.Descriptor
		if ref.Pose != nil {
			desc = pose.Encode(*ref.Pose)
		}
		if len(desc) != pose.DescriptorLen {
			return nil, loadErr(ref.Name, fmt.Errorf("descriptor has %d values, want %d", len(desc), pose.DescriptorLen))
		}
		for _, v := range desc {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, loadErr(ref.Name, errors.New("descriptor has non-finite values"))
			}
		}

		lib.index[name] = len(lib.entries)
		lib.entries = append(lib.entries, Entry{Name: name, Descriptor: append(pose.Descriptor(nil), desc...)})
		lib.norms = append(lib.norms, floats.Norm(desc, 2))
	}

	if _, ok := lib.index[lib.def]; !ok {
		return nil, loadErr(def, errors.New("default gesture missing"))
	}

	log.Printf("Loaded %d gestures from %s", len(lib.entries), src)
	return lib, nil
}

// Default returns the resting gesture's name.
func (l *Library) Default() Name { return l.def }

// Len returns the number of gestures.
func (l *Library) Len() int { return len(l.entries) }

// Names returns gesture names in load order.
func (l *Library) Names() []Name {
	names := make([]Name, len(l.entries))
	for i, e := range l.entries {
		names[i] = e.Name
	}
	return names
}

// Contains reports whether name is loaded.
func (l *Library) Contains(name Name) bool {
	_, ok := l.index[name]
	return ok
}

// Lookup parses s and returns it as a Name if it is loaded. This is the
// check applied to any name arriving from outside the pipeline.
func (l *Library) Lookup(s string) (Name, error) {
	n, err := ParseName(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknownGesture, err)
	}
	if !l.Contains(n) {
		return "", fmt.Errorf("%w: %q", ErrUnknownGesture, n)
	}
	return n, nil
}

// Descriptor returns a copy of the stored descriptor for name.
func (l *Library) Descriptor(name Name) (pose.Descriptor, bool) {
	i, ok := l.index[name]
	if !ok {
		return nil, false
	}
	return append(pose.Descriptor(nil), l.entries[i].Descriptor...), true
}

// Entries returns a copy of every entry in load order.
func (l *Library) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = Entry{Name: e.Name, Descriptor: append(pose.Descriptor(nil), e.Descriptor...)}
	}
	return out
}

// StaticSource serves a fixed list of references. It backs tests and
// programmatic setups.
type StaticSource []Reference

func (s StaticSource) References(context.Context) ([]Reference, error) {
	return append([]Reference(nil), s...), nil
}

func (s StaticSource) String() string { return "static references" }
