// Package store holds the canonical replicated expense tree for one trip. It
// is the single source of truth; every change flows through a transaction
// tagged with an origin so observers can decide whether to react.
package store

import (
	"encoding/json"
	"sync"

	"github.com/openroam/tripgraph/internal/crdt"
	"github.com/openroam/tripgraph/internal/domain"
)

// Origin labels the source of a committed transaction.
type Origin string

const (
	// OriginLocal tags optimistic field updates; observers skip
	// re-reconciliation because the local view already reflects them.
	OriginLocal Origin = "local"
	// OriginInsertion tags node creation and asks the view to focus the
	// new node.
	OriginInsertion Origin = "insertion"
	// OriginDeletion tags subtree removal and asks the view to recenter.
	OriginDeletion Origin = "deletion"
	// OriginRemote tags incremental updates received from peers.
	OriginRemote Origin = "remote"
	// OriginSnapshot tags a full document resync, e.g. after a reconnect.
	OriginSnapshot Origin = "snapshot"
)

// Observer is notified after any transaction commits, local or remote.
type Observer func(origin Origin)

// Store wraps one CRDT replica with locking, domain encoding, and observer
// fan-out. It is safe for concurrent use; the relay shares replicas across
// connection goroutines.
type Store struct {
	mu        sync.Mutex
	doc       *crdt.Document
	observers map[int]Observer
	nextObs   int
}

// New creates an empty replica identified by replica id.
func New(replica string) *Store {
	return &Store{
		doc:       crdt.NewDocument(replica),
		observers: make(map[int]Observer),
	}
}

// Replica returns the replica id this store writes with.
func (s *Store) Replica() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Replica()
}

// Subscribe registers an observer and returns its unsubscribe function.
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Update runs fn inside a transaction, commits its writes, notifies
// observers with the origin tag, and returns the encoded update for
// broadcast. An empty transaction commits nothing and notifies nobody.
func (s *Store) Update(origin Origin, fn func(tx *Txn)) crdt.Update {
	s.mu.Lock()
	tx := &Txn{doc: s.doc}
	fn(tx)
	writes := tx.writes
	observers := s.snapshotObservers()
	s.mu.Unlock()

	if len(writes) == 0 {
		return nil
	}
	for _, fn := range observers {
		fn(origin)
	}
	return writes
}

// ApplyRemote merges an update received from a peer and notifies observers
// when it changed local state.
func (s *Store) ApplyRemote(u crdt.Update, origin Origin) bool {
	s.mu.Lock()
	changed := s.doc.Apply(u)
	observers := s.snapshotObservers()
	s.mu.Unlock()

	if !changed {
		return false
	}
	for _, fn := range observers {
		fn(origin)
	}
	return true
}

// Snapshot encodes the full replica state, tombstones included.
func (s *Store) Snapshot() crdt.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Snapshot()
}

// Nodes returns all live nodes in deterministic creation order.
func (s *Store) Nodes() []domain.ExpenseNode {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.doc.AliveIDs()
	nodes := make([]domain.ExpenseNode, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, decodeNode(id, s.doc.State(id)))
	}
	return nodes
}

// Node returns a single live node by id.
func (s *Store) Node(id string) (domain.ExpenseNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.doc.State(id)
	if !state.Alive() {
		return domain.ExpenseNode{}, false
	}
	return decodeNode(id, state), true
}

func (s *Store) snapshotObservers() []Observer {
	out := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

// Txn accumulates writes for one transaction. It must only be used inside
// the Update callback that created it.
type Txn struct {
	doc    *crdt.Document
	writes crdt.Update
}

// InsertNode writes a full new node: creation marker plus one register per
// populated field.
func (t *Txn) InsertNode(n domain.ExpenseNode) {
	t.set(n.ID, crdt.FieldCreated, true)
	t.set(n.ID, FieldParentID, n.ParentID)
	t.set(n.ID, FieldDescription, n.Description)
	t.set(n.ID, FieldActive, n.Active)
	t.set(n.ID, FieldLocked, n.Locked)
	t.set(n.ID, FieldNotes, n.Notes)
	if n.Location != "" {
		t.set(n.ID, FieldLocation, n.Location)
	}
	if n.Datetime != nil {
		t.set(n.ID, FieldDatetime, n.Datetime)
	}
	if n.Expense != nil {
		t.set(n.ID, FieldExpense, n.Expense)
	}
	if n.ResponsibleParticipantID != "" {
		t.set(n.ID, FieldResponsible, n.ResponsibleParticipantID)
	}
	if n.Status != "" {
		t.set(n.ID, FieldStatus, n.Status)
	}
}

// SetField writes a single field register on an existing node.
func (t *Txn) SetField(nodeID, field string, value any) {
	t.set(nodeID, field, value)
}

// DeleteNode tombstones a node.
func (t *Txn) DeleteNode(nodeID string) {
	t.set(nodeID, crdt.FieldDeleted, true)
}

func (t *Txn) set(nodeID, field string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		// Domain values are all plain structs and scalars; a marshal
		// failure indicates a programming error and the write is dropped
		// rather than poisoning the document.
		return
	}
	t.writes = append(t.writes, t.doc.Set(nodeID, field, raw))
}
