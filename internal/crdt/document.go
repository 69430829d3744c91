package crdt

import (
	"encoding/json"
	"sort"
)

// NodeState is the replicated state of one node: lifecycle registers plus one
// register per field.
type NodeState struct {
	Created Register
	Deleted Register
	Fields  map[string]Register
}

// Alive reports whether the node exists and has not been tombstoned. A
// tombstone wins over creation when it is the later write.
func (s *NodeState) Alive() bool {
	if s == nil || s.Created.Clock == 0 {
		return false
	}
	if s.Deleted.Clock == 0 {
		return true
	}
	return s.Deleted.Before(s.Created)
}

// Document is one replica of a trip's node map. It is not goroutine-safe;
// the store wraps it with locking.
type Document struct {
	replica string
	clock   uint64
	nodes   map[string]*NodeState
}

// NewDocument creates an empty replica identified by replica id.
func NewDocument(replica string) *Document {
	return &Document{
		replica: replica,
		nodes:   make(map[string]*NodeState),
	}
}

// Replica returns this replica's id.
func (d *Document) Replica() string { return d.replica }

// Tick advances the Lamport clock and returns the new value.
func (d *Document) Tick() uint64 {
	d.clock++
	return d.clock
}

// Set stamps a local write for the given node field and applies it.
func (d *Document) Set(nodeID, field string, value json.RawMessage) Write {
	w := Write{
		NodeID: nodeID,
		Field:  field,
		Register: Register{
			Value:   value,
			Clock:   d.Tick(),
			Replica: d.replica,
		},
	}
	d.Merge(w)
	return w
}

// Merge folds one write into the replica, keeping the later register per
// field. It returns true when the write changed local state. The clock is
// advanced past remote clocks so subsequent local writes order after
// everything already observed.
func (d *Document) Merge(w Write) bool {
	if w.Register.Clock > d.clock {
		d.clock = w.Register.Clock
	}

	state, ok := d.nodes[w.NodeID]
	if !ok {
		state = &NodeState{Fields: make(map[string]Register)}
		d.nodes[w.NodeID] = state
	}

	switch w.Field {
	case FieldCreated:
		if state.Created.Before(w.Register) {
			state.Created = w.Register
			return true
		}
	case FieldDeleted:
		if state.Deleted.Before(w.Register) {
			state.Deleted = w.Register
			return true
		}
	default:
		current := state.Fields[w.Field]
		if current.Before(w.Register) {
			state.Fields[w.Field] = w.Register
			return true
		}
	}
	return false
}

// Apply merges a whole update and reports whether any write changed state.
func (d *Document) Apply(u Update) bool {
	changed := false
	for _, w := range u {
		if d.Merge(w) {
			changed = true
		}
	}
	return changed
}

// State returns the replicated state for a node id, or nil.
func (d *Document) State(nodeID string) *NodeState {
	return d.nodes[nodeID]
}

// AliveIDs returns the ids of all live nodes in creation order, which is
// deterministic across replicas: (creation clock, replica, id).
func (d *Document) AliveIDs() []string {
	ids := make([]string, 0, len(d.nodes))
	for id, state := range d.nodes {
		if state.Alive() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := d.nodes[ids[i]].Created, d.nodes[ids[j]].Created
		if a.Clock != b.Clock {
			return a.Clock < b.Clock
		}
		if a.Replica != b.Replica {
			return a.Replica < b.Replica
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Snapshot encodes the full replica as a single update, including tombstones
// so that deletions survive a rejoin. Applying a snapshot to an empty
// document reproduces the replica.
func (d *Document) Snapshot() Update {
	var u Update
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		state := d.nodes[id]
		if state.Created.Clock > 0 {
			u = append(u, Write{NodeID: id, Field: FieldCreated, Register: state.Created})
		}
		if state.Deleted.Clock > 0 {
			u = append(u, Write{NodeID: id, Field: FieldDeleted, Register: state.Deleted})
		}
		fields := make([]string, 0, len(state.Fields))
		for f := range state.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			u = append(u, Write{NodeID: id, Field: f, Register: state.Fields[f]})
		}
	}
	return u
}
