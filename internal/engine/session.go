package engine

import (
	"io"
	"log/slog"
	"sync"

	"github.com/openroam/tripgraph/internal/crdt"
	"github.com/openroam/tripgraph/internal/domain"
	"github.com/openroam/tripgraph/internal/store"
)

// Transport carries committed updates to the sync channel. The session keeps
// working without one (offline editing); updates then live only in the local
// replica until a channel is attached.
type Transport interface {
	SendUpdate(u crdt.Update) error
}

// ViewEffect is the explicit signal a mutation or filter change returns to
// the rendering layer, replacing ambient cross-component events.
type ViewEffect int

const (
	EffectNone ViewEffect = iota
	// EffectFocusNode asks the view to scroll/fit to the result node once
	// it has been laid out.
	EffectFocusNode
	// EffectRecenterViewport follows a subtree deletion.
	EffectRecenterViewport
	// EffectRefitViewport follows a filter change, after re-layout.
	EffectRefitViewport
)

// MutationResult reports what a mutation did and how the view should react.
type MutationResult struct {
	NodeID string
	Effect ViewEffect
}

// Session is the per-trip engine instance: it owns the replica's derived
// views, re-reconciles on store changes, and is the only legal way to mutate
// tree content. Its lifetime matches "actively viewing this trip".
type Session struct {
	logger    *slog.Logger
	store     *store.Store
	viewer    domain.Participant
	pipeline  Pipeline
	transport Transport

	mu       sync.Mutex
	view     domain.Graph
	filtered domain.Graph
	filter   FilterSpec
	closed   bool

	unsubscribe func()
}

// NewSession wires a session to its store and computes the initial view.
func NewSession(logger *slog.Logger, st *store.Store, viewer domain.Participant, pipeline Pipeline, transport Transport) *Session {
	s := &Session{
		logger:    logger,
		store:     st,
		viewer:    viewer,
		pipeline:  pipeline,
		transport: transport,
		filter:    make(FilterSpec),
	}
	s.unsubscribe = st.Subscribe(s.onStoreChange)
	s.reconcile()
	return s
}

// onStoreChange runs inside the store's commit notification. Local-tagged
// transactions are skipped: the optimistic update already reflects them.
func (s *Session) onStoreChange(origin store.Origin) {
	if origin == store.OriginLocal {
		return
	}
	s.reconcile()
}

// reconcile reads the full replica and rebuilds both derived views.
func (s *Session) reconcile() {
	g := s.pipeline.Reconcile(s.store.Nodes(), s.viewer.CanEdit())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.view = g
	s.filtered = ApplyFilter(g, s.filter)
}

// setOptimisticView installs a locally computed graph ahead of the store
// round-trip. It is a latency hiding measure only; the store remains
// authoritative.
func (s *Session) setOptimisticView(g domain.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.view = g
	s.filtered = ApplyFilter(g, s.filter)
}

// Graph returns the current filtered, render-ready graph.
func (s *Session) Graph() domain.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filtered.Clone()
}

// UnfilteredGraph returns the current render-ready graph before filtering.
func (s *Session) UnfilteredGraph() domain.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Clone()
}

// ToggleFilter flips one accepted value and re-derives the filtered view.
func (s *Session) ToggleFilter(attr, value string) ViewEffect {
	s.mu.Lock()
	s.filter.Toggle(attr, value)
	s.filtered = ApplyFilter(s.view, s.filter)
	s.mu.Unlock()
	return EffectRefitViewport
}

// ClearFilterAttribute removes one attribute's restriction.
func (s *Session) ClearFilterAttribute(attr string) ViewEffect {
	s.mu.Lock()
	s.filter.ClearAttribute(attr)
	s.filtered = ApplyFilter(s.view, s.filter)
	s.mu.Unlock()
	return EffectRefitViewport
}

// ClearFilters removes the whole specification.
func (s *Session) ClearFilters() ViewEffect {
	s.mu.Lock()
	s.filter.Clear()
	s.filtered = ApplyFilter(s.view, s.filter)
	s.mu.Unlock()
	return EffectRefitViewport
}

// Filter returns a copy of the current specification.
func (s *Session) Filter() FilterSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Clone()
}

// LocationReport groups visually-active nodes by resolved location.
func (s *Session) LocationReport() []Bucket {
	return GroupByLocation(s.store.Nodes())
}

// DateReport groups visually-active nodes by resolved day, ascending.
func (s *Session) DateReport() []Bucket {
	return GroupByDate(s.store.Nodes())
}

// Close tears the session down: the store observer is unregistered and the
// transport closed if it owns a connection. After Close no callback touches
// the released views.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if closer, ok := s.transport.(io.Closer); ok && closer != nil {
		return closer.Close()
	}
	return nil
}

// broadcast ships a committed update to peers. Send failures are logged, not
// surfaced: the channel's own reconnect path re-syncs the full document.
func (s *Session) broadcast(u crdt.Update) {
	if s.transport == nil || len(u) == 0 {
		return
	}
	if err := s.transport.SendUpdate(u); err != nil {
		s.logger.Warn("failed to broadcast update", "error", err)
	}
}
