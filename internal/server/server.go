// Package server exposes the running pipeline over HTTP: health and
// status, a stop switch, library management and a live cue stream.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/pantomime/internal/interpret"
	"github.com/ayusman/pantomime/internal/pipeline"
	"github.com/ayusman/pantomime/internal/present"
	"github.com/ayusman/pantomime/internal/server/api"
	"github.com/ayusman/pantomime/internal/store"
)

// Controller is the part of the pipeline the API can observe and toggle.
type Controller interface {
	Status() pipeline.Status
	SetEnabled(bool)
	IsEnabled() bool
}

// CueSource publishes presentation cues.
type CueSource interface {
	Subscribe(buffer int) (<-chan present.Cue, func())
	Current() present.Cue
}

// StatsSource reports interpretation counters.
type StatsSource interface {
	Stats() interpret.Stats
}

// Config holds the server configuration. Nil fields disable their routes.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Exporter   api.Exporter
	Controller Controller
	Signals    *pipeline.Signals
	Cues       CueSource
	Interpret  StatsSource
}

// Server is the HTTP front end.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Controller != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/detection", s.handleDetection)
	}
	if s.config.Signals != nil {
		s.mux.HandleFunc("/api/stop", s.handleStop)
	}

	if s.config.Store != nil {
		gestureHandler := api.NewGestureHandler(s.config.Store)
		samplesHandler := api.NewSamplesHandler(s.config.Store, s.config.Exporter)

		gestureRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/samples") {
				samplesHandler.ServeHTTP(w, r)
				return
			}
			gestureHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/gestures", gestureRouter)
		s.mux.Handle("/api/gestures/", gestureRouter)
	}

	if s.config.Cues != nil {
		s.mux.Handle("/api/cues", NewCueHandler(s.config.Cues))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "ok"
	if s.config.Signals != nil && s.config.Signals.Stopped() {
		status = "stopping"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"uptime": time.Since(s.start).String(),
	})
}

type statusResponse struct {
	Pipeline  pipeline.Status  `json:"pipeline"`
	Interpret *interpret.Stats `json:"interpret,omitempty"`
	Cue       *present.Cue     `json:"cue,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{Pipeline: s.config.Controller.Status()}
	if s.config.Interpret != nil {
		st := s.config.Interpret.Stats()
		resp.Interpret = &st
	}
	if s.config.Cues != nil {
		cue := s.config.Cues.Current()
		resp.Cue = &cue
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDetection reports or sets whether frames are being classified.
func (s *Server) handleDetection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			http.Error(w, `expected {"enabled": bool}`, http.StatusBadRequest)
			return
		}
		s.config.Controller.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.config.Controller.IsEnabled()})
}

// handleStop raises the process-wide stop flag. The caller is answered
// before the process winds down.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.config.Signals.Stop()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
