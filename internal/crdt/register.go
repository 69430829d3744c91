// Package crdt implements the replicated state underneath the tree store: a
// map of nodes where every field is an independent last-writer-wins register.
// Concurrent edits to different fields of the same node therefore both
// survive a merge; only writes to the same field race, and those resolve
// deterministically on every replica.
package crdt

import (
	"bytes"
	"encoding/json"
)

// Register is a single last-writer-wins cell. Clock is a Lamport timestamp;
// Replica breaks ties so that ordering is total.
type Register struct {
	Value   json.RawMessage `json:"value,omitempty"`
	Clock   uint64          `json:"clock"`
	Replica string          `json:"replica"`
}

// Before reports whether r loses to other under (clock, replica) ordering.
func (r Register) Before(other Register) bool {
	if r.Clock != other.Clock {
		return r.Clock < other.Clock
	}
	return r.Replica < other.Replica
}

// Equal compares both the ordering metadata and the payload.
func (r Register) Equal(other Register) bool {
	return r.Clock == other.Clock && r.Replica == other.Replica && bytes.Equal(r.Value, other.Value)
}

// Write is one register assignment addressed to a node field. The reserved
// field names FieldCreated and FieldDeleted carry node lifecycle rather than
// user data.
type Write struct {
	NodeID   string   `json:"nodeId"`
	Field    string   `json:"field"`
	Register Register `json:"register"`
}

// Update is the wire unit exchanged between replicas: an ordered batch of
// writes produced by one transaction, or by a full snapshot.
type Update []Write

// Reserved field names.
const (
	FieldCreated = "_created"
	FieldDeleted = "_deleted"
)
