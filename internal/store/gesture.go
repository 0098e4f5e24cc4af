package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/pantomime/internal/pose"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotTrained is returned for a gesture that has no landmarks yet.
var ErrNotTrained = errors.New("gesture has no trained landmarks")

// Gesture is one entry of the reference library. Position orders the
// library; lower positions load first and win score ties.
type Gesture struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	ClipMS    int64     `json:"clip_ms"`
	Samples   int       `json:"samples"`
	Trained   bool      `json:"trained"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClipLength returns the gesture's animation length.
func (g *Gesture) ClipLength() time.Duration {
	return time.Duration(g.ClipMS) * time.Millisecond
}

// GestureRepository provides CRUD operations for gestures.
type GestureRepository struct {
	db *sql.DB
}

// Gestures returns the gesture repository for this store.
func (s *Store) Gestures() *GestureRepository {
	return &GestureRepository{db: s.db}
}

const gestureColumns = `g.id, g.name, g.position, g.clip_ms, g.samples,
	EXISTS (SELECT 1 FROM gesture_landmarks l WHERE l.gesture_id = g.id),
	g.created_at, g.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGesture(row scanner) (*Gesture, error) {
	g := &Gesture{}
	err := row.Scan(&g.ID, &g.Name, &g.Position, &g.ClipMS, &g.Samples, &g.Trained, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

// Create inserts g. An empty ID is filled with a new UUID and a zero
// Position places the gesture after every existing one.
func (r *GestureRepository) Create(g *Gesture) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.Position == 0 {
		if err := r.db.QueryRow(`SELECT COALESCE(MAX(position), 0) + 1 FROM gestures`).Scan(&g.Position); err != nil {
			return err
		}
	}
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO gestures (id, name, position, clip_ms, samples, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Position, g.ClipMS, g.Samples, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

// GetByID retrieves a gesture by its ID.
func (r *GestureRepository) GetByID(id string) (*Gesture, error) {
	return scanGesture(r.db.QueryRow(`SELECT `+gestureColumns+` FROM gestures g WHERE g.id = ?`, id))
}

// GetByName retrieves a gesture by its name.
func (r *GestureRepository) GetByName(name string) (*Gesture, error) {
	return scanGesture(r.db.QueryRow(`SELECT `+gestureColumns+` FROM gestures g WHERE g.name = ?`, name))
}

// List returns all gestures in library order.
func (r *GestureRepository) List() ([]*Gesture, error) {
	rows, err := r.db.Query(`SELECT ` + gestureColumns + ` FROM gestures g ORDER BY g.position, g.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gestures []*Gesture
	for rows.Next() {
		g, err := scanGesture(rows)
		if err != nil {
			return nil, err
		}
		gestures = append(gestures, g)
	}
	return gestures, rows.Err()
}

// Update saves the name, position and clip length of g.
func (r *GestureRepository) Update(g *Gesture) error {
	g.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE gestures SET name = ?, position = ?, clip_ms = ?, updated_at = ? WHERE id = ?`,
		g.Name, g.Position, g.ClipMS, g.UpdatedAt, g.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Delete removes a gesture and, by cascade, its landmarks and samples.
func (r *GestureRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM gestures WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// SetLandmarks replaces the trained pose of a gesture.
func (r *GestureRepository) SetLandmarks(id string, snap pose.Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := writeLandmarks(tx, id, snap); err != nil {
		return err
	}
	return tx.Commit()
}

func writeLandmarks(tx *sql.Tx, id string, snap pose.Snapshot) error {
	result, err := tx.Exec(`UPDATE gestures SET updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}
	if err := expectOne(result); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM gesture_landmarks WHERE gesture_id = ?`, id); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO gesture_landmarks (gesture_id, landmark_index, x, y, z, visibility) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, lm := range snap.Landmarks {
		if _, err := stmt.Exec(id, i, lm.X, lm.Y, lm.Z, lm.Visibility); err != nil {
			return fmt.Errorf("landmark %d: %w", i, err)
		}
	}
	return nil
}

// Landmarks returns the trained pose of a gesture.
func (r *GestureRepository) Landmarks(id string) (pose.Snapshot, error) {
	rows, err := r.db.Query(
		`SELECT landmark_index, x, y, z, visibility FROM gesture_landmarks
		 WHERE gesture_id = ? ORDER BY landmark_index`,
		id,
	)
	if err != nil {
		return pose.Snapshot{}, err
	}
	defer rows.Close()

	var snap pose.Snapshot
	n := 0
	for rows.Next() {
		var idx int
		var lm pose.Landmark
		if err := rows.Scan(&idx, &lm.X, &lm.Y, &lm.Z, &lm.Visibility); err != nil {
			return pose.Snapshot{}, err
		}
		if idx < 0 || idx >= pose.NumLandmarks {
			return pose.Snapshot{}, fmt.Errorf("landmark index %d out of range", idx)
		}
		snap.Landmarks[idx] = lm
		n++
	}
	if err := rows.Err(); err != nil {
		return pose.Snapshot{}, err
	}
	if n == 0 {
		return pose.Snapshot{}, ErrNotTrained
	}
	if n != pose.NumLandmarks {
		return pose.Snapshot{}, fmt.Errorf("gesture %s has %d landmarks, want %d", id, n, pose.NumLandmarks)
	}
	return snap, nil
}

func expectOne(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
