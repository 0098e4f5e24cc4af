package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ayusman/pantomime/internal/gesture"
)

// Source exposes the trained gestures as a library source. Gestures that
// have not been trained are skipped.
type Source struct {
	store *Store
}

// LibrarySource returns a gesture.Source backed by this store.
func (s *Store) LibrarySource() Source {
	return Source{store: s}
}

func (s Source) String() string { return "sqlite:" + s.store.path }

// References loads every trained gesture in position order.
func (s Source) References(ctx context.Context) ([]gesture.Reference, error) {
	repo := s.store.Gestures()
	list, err := repo.List()
	if err != nil {
		return nil, fmt.Errorf("list gestures: %w", err)
	}

	refs := make([]gesture.Reference, 0, len(list))
	for _, g := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snap, err := repo.Landmarks(g.ID)
		if errors.Is(err, ErrNotTrained) {
			log.Printf("Skipping untrained gesture %s", g.Name)
			continue
		}
		if err != nil {
			return nil, &gesture.LoadError{Source: s.String(), Name: gesture.Name(g.Name), Err: err}
		}
		refs = append(refs, gesture.Reference{Name: gesture.Name(g.Name), Pose: &snap})
	}
	return refs, nil
}

// ClipLengths returns the configured animation length of every gesture
// that has one.
func (s Source) ClipLengths() (map[gesture.Name]time.Duration, error) {
	list, err := s.store.Gestures().List()
	if err != nil {
		return nil, err
	}
	clips := make(map[gesture.Name]time.Duration, len(list))
	for _, g := range list {
		if g.ClipMS > 0 {
			clips[gesture.Name(g.Name)] = g.ClipLength()
		}
	}
	return clips, nil
}
