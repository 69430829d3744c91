package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openroam/tripgraph/internal/crdt"
	"github.com/openroam/tripgraph/internal/domain"
	"github.com/openroam/tripgraph/internal/syncer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the router's CORS middleware; the
		// channel itself carries no credentials.
		return true
	},
}

// Handler upgrades /sync/{tripId} requests and pumps envelopes between the
// connection and the hub.
type Handler struct {
	logger       *slog.Logger
	hub          *Hub
	pathPrefix   string
	writeTimeout time.Duration
}

// NewHandler builds the websocket endpoint served under pathPrefix.
func NewHandler(logger *slog.Logger, hub *Hub, pathPrefix string, writeTimeout time.Duration) *Handler {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Handler{
		logger:       logger,
		hub:          hub,
		pathPrefix:   pathPrefix,
		writeTimeout: writeTimeout,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tripID := strings.Trim(strings.TrimPrefix(r.URL.Path, h.pathPrefix), "/")
	if tripID == "" {
		http.Error(w, "trip ID is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade sync connection", "trip", tripID, "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	peer := &wsPeer{conn: conn, timeout: h.writeTimeout}
	h.hub.Join(tripID, connID, peer)
	defer h.hub.Leave(tripID, connID)

	for {
		var env syncer.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			h.logger.Info("sync connection closed", "trip", tripID, "conn", connID, "error", err.Error())
			return
		}
		h.dispatch(tripID, connID, env)
	}
}

func (h *Handler) dispatch(tripID, connID string, env syncer.Envelope) {
	switch env.Type {
	case syncer.TypeUpdate:
		var u crdt.Update
		if err := json.Unmarshal(env.Payload, &u); err != nil {
			h.logger.Warn("malformed update from peer", "trip", tripID, "conn", connID, "error", err)
			return
		}
		h.hub.HandleUpdate(tripID, connID, u)
	case syncer.TypePresence:
		var p domain.Presence
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		h.hub.HandlePresence(tripID, connID, p)
	}
}

// wsPeer serializes writes to one connection.
type wsPeer struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
}

func (p *wsPeer) Send(env syncer.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(p.timeout))
	return p.conn.WriteJSON(env)
}
