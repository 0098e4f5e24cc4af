package store

import (
	"encoding/json"

	"github.com/ayusman/pantomime/internal/pose"
)

// SaveTraining replaces a gesture's samples and its trained pose in one
// transaction. On error neither is changed.
func (s *Store) SaveTraining(gestureID string, samples []json.RawMessage, ref pose.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceSamples(tx, gestureID, samples); err != nil {
		return err
	}
	if err := writeLandmarks(tx, gestureID, ref); err != nil {
		return err
	}
	return tx.Commit()
}
