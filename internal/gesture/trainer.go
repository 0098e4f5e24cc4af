package gesture

import (
	"encoding/json"
	"fmt"

	"github.com/ayusman/pantomime/internal/pose"
)

// Sample is one recorded pose for a gesture, as stored by the recorder.
type Sample struct {
	Landmarks []pose.Landmark `json:"landmarks"`
	Timestamp int64           `json:"timestamp"`
}

// Trainer turns recorded samples into a reference pose.
type Trainer struct{}

// NewTrainer creates a new Trainer instance.
func NewTrainer() *Trainer {
	return &Trainer{}
}

// Train parses each sample and returns their landmark-wise mean. Every
// sample must be a complete, valid pose frame.
func (t *Trainer) Train(samples []json.RawMessage) (pose.Snapshot, error) {
	var ref pose.Snapshot
	if len(samples) == 0 {
		return ref, fmt.Errorf("no samples provided")
	}

	for i, raw := range samples {
		var s Sample
		if err := json.Unmarshal(raw, &s); err != nil {
			return ref, fmt.Errorf("failed to parse sample %d: %w", i, err)
		}
		if err := (pose.Frame{Landmarks: s.Landmarks}).Validate(); err != nil {
			return ref, fmt.Errorf("sample %d: %w", i, err)
		}
		for j, lm := range s.Landmarks {
			acc := &ref.Landmarks[j]
			acc.X += lm.X
			acc.Y += lm.Y
			acc.Z += lm.Z
			acc.Visibility += lm.Visibility
		}
	}

	n := float64(len(samples))
	for j := range ref.Landmarks {
		acc := &ref.Landmarks[j]
		acc.X /= n
		acc.Y /= n
		acc.Z /= n
		acc.Visibility /= n
	}
	ref.Samples = len(samples)
	return ref, nil
}
