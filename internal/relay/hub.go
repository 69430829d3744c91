// Package relay is the server side of the sync channel: one hub fanning out
// document updates and presence records between the connections of each trip,
// while keeping an authoritative replica per trip so late joiners receive a
// full snapshot.
package relay

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/openroam/tripgraph/internal/crdt"
	"github.com/openroam/tripgraph/internal/domain"
	"github.com/openroam/tripgraph/internal/store"
	"github.com/openroam/tripgraph/internal/syncer"
)

// Peer is one connected client from the hub's point of view.
type Peer interface {
	Send(env syncer.Envelope) error
}

type trip struct {
	store    *store.Store
	peers    map[string]Peer
	presence map[string]domain.Presence
}

// Hub routes updates and presence between the peers of each trip.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	trips map[string]*trip
}

// NewHub constructs an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		trips:  make(map[string]*trip),
	}
}

// Join registers a connection on a trip and sends it the current document
// snapshot plus all live presence entries.
func (h *Hub) Join(tripID, connID string, p Peer) {
	h.mu.Lock()
	t, ok := h.trips[tripID]
	if !ok {
		t = &trip{
			store:    store.New("relay-" + tripID),
			peers:    make(map[string]Peer),
			presence: make(map[string]domain.Presence),
		}
		h.trips[tripID] = t
	}
	t.peers[connID] = p
	snapshot := t.store.Snapshot()
	live := make([]domain.Presence, 0, len(t.presence))
	for _, pr := range t.presence {
		live = append(live, pr)
	}
	h.mu.Unlock()

	if err := p.Send(syncer.NewEnvelope(syncer.TypeSnapshot, snapshot)); err != nil {
		h.logger.Warn("failed to send snapshot", "trip", tripID, "conn", connID, "error", err)
	}
	for _, pr := range live {
		if err := p.Send(syncer.NewEnvelope(syncer.TypePresence, pr)); err != nil {
			h.logger.Warn("failed to send presence", "trip", tripID, "conn", connID, "error", err)
		}
	}
	h.logger.Info("peer joined trip", "trip", tripID, "conn", connID)
}

// Leave removes a connection. Its presence entry vanishes and the departure
// is announced to the remaining peers. The trip replica is retained so the
// document survives everyone disconnecting.
func (h *Hub) Leave(tripID, connID string) {
	h.mu.Lock()
	t, ok := h.trips[tripID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(t.peers, connID)
	_, hadPresence := t.presence[connID]
	delete(t.presence, connID)
	others := t.others(connID)
	h.mu.Unlock()

	if hadPresence {
		h.fanOut(tripID, others, syncer.NewEnvelope(syncer.TypePresenceLeave, syncer.PresenceLeave{ID: connID}))
	}
	h.logger.Info("peer left trip", "trip", tripID, "conn", connID)
}

// HandleUpdate merges an update into the trip's authoritative replica and
// forwards it to every other peer. Updates that change nothing (already
// merged, e.g. a rejoin snapshot) are not re-broadcast.
func (h *Hub) HandleUpdate(tripID, connID string, u crdt.Update) {
	h.mu.Lock()
	t, ok := h.trips[tripID]
	if !ok {
		h.mu.Unlock()
		return
	}
	others := t.others(connID)
	st := t.store
	h.mu.Unlock()

	if !st.ApplyRemote(u, store.OriginRemote) {
		return
	}
	h.fanOut(tripID, others, syncer.NewEnvelope(syncer.TypeUpdate, u))
}

// HandlePresence overwrites the sender's presence entry and forwards it to
// every other peer. The record is keyed by connection id regardless of what
// the sender claimed.
func (h *Hub) HandlePresence(tripID, connID string, p domain.Presence) {
	p.ID = connID

	h.mu.Lock()
	t, ok := h.trips[tripID]
	if !ok {
		h.mu.Unlock()
		return
	}
	t.presence[connID] = p
	others := t.others(connID)
	h.mu.Unlock()

	h.fanOut(tripID, others, syncer.NewEnvelope(syncer.TypePresence, p))
}

// TripIDs lists the trips the hub currently holds a replica for.
func (h *Hub) TripIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.trips))
	for id := range h.trips {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TripStore exposes a trip's authoritative replica for reporting and
// archiving.
func (h *Hub) TripStore(tripID string) (*store.Store, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.trips[tripID]
	if !ok {
		return nil, false
	}
	return t.store, true
}

func (t *trip) others(connID string) []Peer {
	out := make([]Peer, 0, len(t.peers))
	for id, p := range t.peers {
		if id != connID {
			out = append(out, p)
		}
	}
	return out
}

func (h *Hub) fanOut(tripID string, peers []Peer, env syncer.Envelope) {
	for _, p := range peers {
		if err := p.Send(env); err != nil {
			// The peer's own read loop notices the dead connection and
			// leaves; nothing to clean up here.
			h.logger.Warn("fan-out send failed", "trip", tripID, "error", err)
		}
	}
}
