// Package gesture holds the reference pose library and nearest-neighbour
// matching against it.
package gesture

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Name identifies a gesture and the animation clip of the same name.
type Name string

// DefaultName is the conventional name of the resting gesture.
const DefaultName Name = "idle"

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ParseName trims and lower-cases s and checks it is a usable gesture name.
func ParseName(s string) (Name, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	if !namePattern.MatchString(n) {
		return "", fmt.Errorf("invalid gesture name %q", s)
	}
	return Name(n), nil
}

func (n Name) String() string { return string(n) }

var (
	// ErrUnknownGesture is returned for names that are not in the library.
	ErrUnknownGesture = errors.New("unknown gesture")

	// ErrDimensionMismatch is returned when a query descriptor has the wrong length.
	ErrDimensionMismatch = errors.New("descriptor dimension mismatch")
)

// LoadError reports why a reference library could not be built. Nothing
// is loaded when it is returned.
type LoadError struct {
	Source string
	Name   Name // empty when the failure is not tied to one entry
	Err    error
}

func (e *LoadError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("load gestures from %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("load gestures from %s: %s: %v", e.Source, e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DegenerateInputError is returned when cosine similarity is asked of a
// vector with zero magnitude.
type DegenerateInputError struct {
	// Operand is "query" or the name of the offending reference.
	Operand string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("cosine similarity undefined: %s has zero norm", e.Operand)
}
