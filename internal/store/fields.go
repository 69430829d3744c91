package store

import (
	"encoding/json"
	"time"

	"github.com/openroam/tripgraph/internal/crdt"
	"github.com/openroam/tripgraph/internal/domain"
)

// Replicated field names of an expense node.
const (
	FieldParentID    = "parentId"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldDatetime    = "datetime"
	FieldExpense     = "expense"
	FieldActive      = "active"
	FieldLocked      = "locked"
	FieldNotes       = "notes"
	FieldResponsible = "responsibleParticipantId"
	FieldStatus      = "status"
)

// decodeNode rebuilds a domain node from its field registers. Every field is
// decoded defensively: a register that fails to unmarshal leaves the zero
// value so one corrupt field never takes down the whole tree.
func decodeNode(id string, state *crdt.NodeState) domain.ExpenseNode {
	n := domain.ExpenseNode{ID: id}
	if state == nil {
		return n
	}

	decodeField(state, FieldParentID, &n.ParentID)
	decodeField(state, FieldDescription, &n.Description)
	decodeField(state, FieldLocation, &n.Location)
	decodeField(state, FieldActive, &n.Active)
	decodeField(state, FieldLocked, &n.Locked)
	decodeField(state, FieldResponsible, &n.ResponsibleParticipantID)
	decodeField(state, FieldStatus, &n.Status)
	decodeField(state, FieldNotes, &n.Notes)

	var dt time.Time
	if decodeField(state, FieldDatetime, &dt) && !dt.IsZero() {
		n.Datetime = &dt
	}
	var exp domain.Expense
	if decodeField(state, FieldExpense, &exp) && exp != (domain.Expense{}) {
		n.Expense = &exp
	}
	return n
}

func decodeField(state *crdt.NodeState, field string, dst any) bool {
	reg, ok := state.Fields[field]
	if !ok || len(reg.Value) == 0 || string(reg.Value) == "null" {
		return false
	}
	if err := json.Unmarshal(reg.Value, dst); err != nil {
		return false
	}
	return true
}

// FieldValue marshals a domain value the same way transactions do, used by
// the mutation layer to diff incoming changes against stored registers.
func FieldValue(value any) json.RawMessage {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return raw
}
