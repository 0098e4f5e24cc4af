// Package api provides the HTTP handlers for managing the gesture library.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/pantomime/internal/gesture"
	"github.com/ayusman/pantomime/internal/store"
)

// GestureHandler handles HTTP requests for gesture resources.
type GestureHandler struct {
	store *store.Store
}

// NewGestureHandler creates a new GestureHandler with the given store.
func NewGestureHandler(s *store.Store) *GestureHandler {
	return &GestureHandler{store: s}
}

// ServeHTTP routes /api/gestures and /api/gestures/{id}.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/gestures")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type gestureRequest struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
	ClipMS   int64  `json:"clip_ms"`
}

type listGesturesResponse struct {
	Gestures []*store.Gesture `json:"gestures"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// notFoundOr writes 404 for store.ErrNotFound and 500 with msg otherwise.
func notFoundOr(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Gesture not found")
		return
	}
	writeError(w, http.StatusInternalServerError, msg)
}

func (h *GestureHandler) list(w http.ResponseWriter, r *http.Request) {
	gestures, err := h.store.Gestures().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list gestures")
		return
	}
	if gestures == nil {
		gestures = []*store.Gesture{}
	}
	writeJSON(w, http.StatusOK, listGesturesResponse{Gestures: gestures})
}

func (h *GestureHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		notFoundOr(w, err, "Failed to get gesture")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GestureHandler) create(w http.ResponseWriter, r *http.Request) {
	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name, err := gesture.ParseName(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Position < 0 || req.ClipMS < 0 {
		writeError(w, http.StatusBadRequest, "position and clip_ms must not be negative")
		return
	}
	if _, err := h.store.Gestures().GetByName(name.String()); err == nil {
		writeError(w, http.StatusConflict, "Gesture already exists")
		return
	}

	g := &store.Gesture{
		Name:     name.String(),
		Position: req.Position,
		ClipMS:   req.ClipMS,
	}
	if err := h.store.Gestures().Create(g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create gesture")
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

func (h *GestureHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		notFoundOr(w, err, "Failed to get gesture")
		return
	}

	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		name, err := gesture.ParseName(req.Name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		g.Name = name.String()
	}
	if req.Position > 0 {
		g.Position = req.Position
	}
	if req.ClipMS > 0 {
		g.ClipMS = req.ClipMS
	}

	if err := h.store.Gestures().Update(g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update gesture")
		return
	}

	writeJSON(w, http.StatusOK, g)
}

func (h *GestureHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Gestures().Delete(id); err != nil {
		notFoundOr(w, err, "Failed to delete gesture")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
