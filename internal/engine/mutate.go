package engine

import (
	"bytes"
	"errors"

	"github.com/google/uuid"
	"github.com/openroam/tripgraph/internal/domain"
	"github.com/openroam/tripgraph/internal/store"
)

// ErrReadOnly is returned when a viewer without edit rights calls a mutation.
var ErrReadOnly = errors.New("viewer does not have edit rights")

// AddNode creates a minimal node under parentID (empty for root level) inside
// one insertion-tagged transaction and asks the view to focus it.
func (s *Session) AddNode(parentID string) (MutationResult, error) {
	if !s.viewer.CanEdit() {
		return MutationResult{}, ErrReadOnly
	}

	node := domain.ExpenseNode{
		ID:       uuid.NewString(),
		ParentID: parentID,
		Active:   true,
		Notes:    []domain.Note{},
	}

	u := s.store.Update(store.OriginInsertion, func(tx *store.Txn) {
		tx.InsertNode(node)
	})
	s.broadcast(u)

	return MutationResult{NodeID: node.ID, Effect: EffectFocusNode}, nil
}

// UpdateNode applies a partial update. The local view refreshes optimistically
// before the store transaction so the editing user sees instant feedback with
// ancestor totals recomputed; only fields whose value actually changes are
// written, in one local-tagged transaction that observers skip. Updating a
// missing node is a no-op.
func (s *Session) UpdateNode(id string, changes domain.NodeChanges) (MutationResult, error) {
	if !s.viewer.CanEdit() {
		return MutationResult{}, ErrReadOnly
	}

	stored, ok := s.store.Node(id)
	if !ok {
		return MutationResult{NodeID: id}, nil
	}

	updated, writes := applyChanges(stored, changes)
	if len(writes) == 0 {
		return MutationResult{NodeID: id}, nil
	}

	// Optimistic pass over a patched copy of the current replica.
	nodes := s.store.Nodes()
	for i := range nodes {
		if nodes[i].ID == id {
			nodes[i] = updated
			break
		}
	}
	s.setOptimisticView(s.pipeline.Reconcile(nodes, s.viewer.CanEdit()))

	u := s.store.Update(store.OriginLocal, func(tx *store.Txn) {
		for _, w := range writes {
			tx.SetField(id, w.field, w.value)
		}
	})
	s.broadcast(u)

	return MutationResult{NodeID: id}, nil
}

// DeleteSubtree removes the node and its entire descendant set in one
// deletion-tagged transaction and asks the view to recenter. Deleting a
// missing node is a no-op.
func (s *Session) DeleteSubtree(id string) (MutationResult, error) {
	if !s.viewer.CanEdit() {
		return MutationResult{}, ErrReadOnly
	}

	ix := BuildIndex(s.store.Nodes())
	doomed := ix.Subtree(id)
	if len(doomed) == 0 {
		return MutationResult{NodeID: id}, nil
	}

	u := s.store.Update(store.OriginDeletion, func(tx *store.Txn) {
		for _, victim := range doomed {
			tx.DeleteNode(victim)
		}
	})
	s.broadcast(u)

	return MutationResult{NodeID: id, Effect: EffectRecenterViewport}, nil
}

type fieldWrite struct {
	field string
	value any
}

// applyChanges folds a partial update into a copy of the stored node and
// returns the per-field writes whose values actually differ. Equality is
// deep, via the same encoding the store persists with, so re-submitting the
// current value writes nothing.
func applyChanges(stored domain.ExpenseNode, changes domain.NodeChanges) (domain.ExpenseNode, []fieldWrite) {
	updated := stored.Clone()
	var writes []fieldWrite

	record := func(field string, before, after any) {
		if !bytes.Equal(store.FieldValue(before), store.FieldValue(after)) {
			writes = append(writes, fieldWrite{field: field, value: after})
		}
	}

	if changes.Description != nil {
		record(store.FieldDescription, stored.Description, *changes.Description)
		updated.Description = *changes.Description
	}
	if changes.Location != nil {
		record(store.FieldLocation, stored.Location, *changes.Location)
		updated.Location = *changes.Location
	}
	if changes.Datetime != nil {
		record(store.FieldDatetime, stored.Datetime, changes.Datetime)
		updated.Datetime = changes.Datetime
	}
	if changes.Expense != nil {
		record(store.FieldExpense, stored.Expense, changes.Expense)
		updated.Expense = changes.Expense
	}
	if changes.Active != nil {
		record(store.FieldActive, stored.Active, *changes.Active)
		updated.Active = *changes.Active
	}
	if changes.Locked != nil {
		record(store.FieldLocked, stored.Locked, *changes.Locked)
		updated.Locked = *changes.Locked
	}
	if changes.ResponsibleParticipantID != nil {
		record(store.FieldResponsible, stored.ResponsibleParticipantID, *changes.ResponsibleParticipantID)
		updated.ResponsibleParticipantID = *changes.ResponsibleParticipantID
	}
	if changes.Status != nil {
		record(store.FieldStatus, stored.Status, *changes.Status)
		updated.Status = *changes.Status
	}
	if changes.AppendNote != nil {
		notes := append(append([]domain.Note(nil), stored.Notes...), *changes.AppendNote)
		record(store.FieldNotes, stored.Notes, notes)
		updated.Notes = notes
	}

	return updated, writes
}
