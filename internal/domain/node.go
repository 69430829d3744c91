package domain

import "time"

// Expense is the direct cost carried by a node. Amount and Quantity are kept
// as strings because they originate from free-form user input; parsing happens
// at rollup time with safe defaults.
type Expense struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Quantity string `json:"quantity,omitempty"`
}

// Note is an entry in a node's append-only comment thread.
type Note struct {
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExpenseNode is the authoritative, replicated representation of a single
// entry in a trip's expense tree. ParentID empty means root-level.
type ExpenseNode struct {
	ID                       string     `json:"id"`
	ParentID                 string     `json:"parentId,omitempty"`
	Description              string     `json:"description"`
	Location                 string     `json:"location,omitempty"`
	Datetime                 *time.Time `json:"datetime,omitempty"`
	Expense                  *Expense   `json:"expense,omitempty"`
	Active                   bool       `json:"active"`
	Locked                   bool       `json:"locked"`
	Notes                    []Note     `json:"notes,omitempty"`
	ResponsibleParticipantID string     `json:"responsibleParticipantId,omitempty"`
	Status                   string     `json:"status,omitempty"`

	// TotalExpenses is derived by the reconciliation pipeline and never
	// authored directly.
	TotalExpenses float64 `json:"totalExpenses"`
}

// Clone returns a deep copy so optimistic view mutations never alias the
// stored state.
func (n ExpenseNode) Clone() ExpenseNode {
	out := n
	if n.Datetime != nil {
		dt := *n.Datetime
		out.Datetime = &dt
	}
	if n.Expense != nil {
		exp := *n.Expense
		out.Expense = &exp
	}
	if n.Notes != nil {
		out.Notes = append([]Note(nil), n.Notes...)
	}
	return out
}

// NodeChanges carries a partial update to an ExpenseNode. Nil pointers mean
// "leave unchanged"; AppendNote adds one entry to the note thread.
type NodeChanges struct {
	Description              *string
	Location                 *string
	Datetime                 *time.Time
	Expense                  *Expense
	Active                   *bool
	Locked                   *bool
	ResponsibleParticipantID *string
	Status                   *string
	AppendNote               *Note
}
