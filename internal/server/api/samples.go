package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/ayusman/pantomime/internal/gesture"
	"github.com/ayusman/pantomime/internal/pose"
	"github.com/ayusman/pantomime/internal/store"
)

// Exporter receives every newly trained reference pose, for example to
// keep a directory of .npy references in sync with the store.
type Exporter interface {
	Save(name gesture.Name, snap pose.Snapshot) error
}

// SamplesHandler records samples for a gesture and retrains its reference
// pose from them.
type SamplesHandler struct {
	store    *store.Store
	trainer  *gesture.Trainer
	exporter Exporter
}

// NewSamplesHandler creates a new SamplesHandler. exporter may be nil.
func NewSamplesHandler(s *store.Store, exporter Exporter) *SamplesHandler {
	return &SamplesHandler{store: s, trainer: gesture.NewTrainer(), exporter: exporter}
}

// ServeHTTP handles /api/gestures/{id}/samples.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/gestures/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	gestureID := parts[0]

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, gestureID)
	case http.MethodPost:
		h.create(w, r, gestureID)
	case http.MethodPut:
		h.retrain(w, r, gestureID)
	case http.MethodDelete:
		h.clear(w, r, gestureID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type listSamplesResponse struct {
	Samples []store.Sample `json:"samples"`
}

type trainResponse struct {
	Status   string `json:"status"`
	Samples  int    `json:"samples"`
	Exported bool   `json:"exported"`
}

func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, gestureID string) {
	samples, err := h.store.Samples().GetByGestureID(gestureID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}
	if samples == nil {
		samples = []store.Sample{}
	}
	writeJSON(w, http.StatusOK, listSamplesResponse{Samples: samples})
}

// create stores the samples, trains a reference pose from them and saves
// it as the gesture's landmarks. The running library is not reloaded.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, gestureID string) {
	g, err := h.store.Gestures().GetByID(gestureID)
	if err != nil {
		notFoundOr(w, err, "Failed to verify gesture")
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	ref, err := h.trainer.Train(req.Samples)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SaveTraining(gestureID, req.Samples, ref); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save trained pose")
		return
	}

	resp := trainResponse{Status: "ok", Samples: len(req.Samples), Exported: h.export(g.Name, ref)}
	log.Printf("Trained %s from %d samples", g.Name, len(req.Samples))
	writeJSON(w, http.StatusCreated, resp)
}

// retrain rebuilds the reference pose from the samples already stored.
func (h *SamplesHandler) retrain(w http.ResponseWriter, r *http.Request, gestureID string) {
	g, err := h.store.Gestures().GetByID(gestureID)
	if err != nil {
		notFoundOr(w, err, "Failed to verify gesture")
		return
	}

	raw, err := h.store.Samples().Raw(gestureID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusConflict, "No stored samples to retrain from")
		return
	}

	ref, err := h.trainer.Train(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.store.Gestures().SetLandmarks(gestureID, ref); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save trained pose")
		return
	}

	resp := trainResponse{Status: "ok", Samples: len(raw), Exported: h.export(g.Name, ref)}
	log.Printf("Retrained %s from %d stored samples", g.Name, len(raw))
	writeJSON(w, http.StatusOK, resp)
}

func (h *SamplesHandler) export(name string, ref pose.Snapshot) bool {
	if h.exporter == nil {
		return false
	}
	if err := h.exporter.Save(gesture.Name(name), ref); err != nil {
		log.Printf("Failed to export %s: %v", name, err)
		return false
	}
	return true
}

func (h *SamplesHandler) clear(w http.ResponseWriter, r *http.Request, gestureID string) {
	if _, err := h.store.Gestures().GetByID(gestureID); err != nil {
		notFoundOr(w, err, "Failed to verify gesture")
		return
	}
	if err := h.store.Samples().DeleteByGestureID(gestureID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
