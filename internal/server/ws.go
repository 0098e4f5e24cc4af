package server

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	cueWriteWait  = 5 * time.Second
	cuePongWait   = 60 * time.Second
	cuePingPeriod = cuePongWait * 9 / 10
	cueBuffer     = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// CueHandler streams presentation cues to WebSocket clients as JSON. A
// client is sent the current cue on connect, then every new one.
type CueHandler struct {
	cues CueSource
}

// NewCueHandler creates a CueHandler reading from cues.
func NewCueHandler(cues CueSource) *CueHandler {
	return &CueHandler{cues: cues}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *CueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.New().String()
	log.Printf("[Cues] client %s connected from %s", id, r.RemoteAddr)
	defer log.Printf("[Cues] client %s disconnected", id)

	cues, unsubscribe := h.cues.Subscribe(cueBuffer)
	defer unsubscribe()

	// Reader: handles pongs and notices when the client goes away.
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(cuePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cuePongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if current := h.cues.Current(); current.Seq > 0 {
		conn.SetWriteDeadline(time.Now().Add(cueWriteWait))
		if err := conn.WriteJSON(current); err != nil {
			return
		}
	}

	ping := time.NewTicker(cuePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case cue, ok := <-cues:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(cueWriteWait))
			if err := conn.WriteJSON(cue); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(cueWriteWait)); err != nil {
				return
			}
		}
	}
}
