package engine

import (
	"github.com/openroam/tripgraph/internal/domain"
)

// FilterSpec maps a node attribute name to the set of accepted values.
// Within an attribute the accepted values are OR-ed; across attributes the
// restrictions are AND-ed. An empty spec is unrestricted.
type FilterSpec map[string]map[string]struct{}

// Filterable attribute names.
const (
	AttrStatus      = "status"
	AttrLocation    = "location"
	AttrCurrency    = "currency"
	AttrResponsible = "responsibleParticipantId"
	AttrNoteAuthor  = "noteAuthorId"
)

// Toggle flips one accepted value: present becomes absent and vice versa.
// Removing the last value of an attribute removes the attribute restriction.
func (s FilterSpec) Toggle(attr, value string) {
	values, ok := s[attr]
	if !ok {
		s[attr] = map[string]struct{}{value: {}}
		return
	}
	if _, present := values[value]; present {
		delete(values, value)
		if len(values) == 0 {
			delete(s, attr)
		}
		return
	}
	values[value] = struct{}{}
}

// ClearAttribute removes only one attribute's restriction.
func (s FilterSpec) ClearAttribute(attr string) {
	delete(s, attr)
}

// Clear removes the whole specification.
func (s FilterSpec) Clear() {
	for attr := range s {
		delete(s, attr)
	}
}

// Empty reports whether the spec restricts anything.
func (s FilterSpec) Empty() bool { return len(s) == 0 }

// Clone copies the spec so callers can hand it out without aliasing.
func (s FilterSpec) Clone() FilterSpec {
	out := make(FilterSpec, len(s))
	for attr, values := range s {
		set := make(map[string]struct{}, len(values))
		for v := range values {
			set[v] = struct{}{}
		}
		out[attr] = set
	}
	return out
}

// Matches applies the AND-across/OR-within rule to one expense node.
// Collection-valued attributes match when any element matches.
func (s FilterSpec) Matches(n *domain.ExpenseNode) bool {
	for attr, accepted := range s {
		if !anyValueAccepted(attributeValues(n, attr), accepted) {
			return false
		}
	}
	return true
}

func anyValueAccepted(values []string, accepted map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := accepted[v]; ok {
			return true
		}
	}
	return false
}

func attributeValues(n *domain.ExpenseNode, attr string) []string {
	if n == nil {
		return nil
	}
	switch attr {
	case AttrStatus:
		if n.Status != "" {
			return []string{n.Status}
		}
	case AttrLocation:
		if n.Location != "" {
			return []string{n.Location}
		}
	case AttrCurrency:
		if n.Expense != nil && n.Expense.Currency != "" {
			return []string{n.Expense.Currency}
		}
	case AttrResponsible:
		if n.ResponsibleParticipantID != "" {
			return []string{n.ResponsibleParticipantID}
		}
	case AttrNoteAuthor:
		var authors []string
		for _, note := range n.Notes {
			authors = append(authors, note.AuthorID)
		}
		return authors
	}
	return nil
}

// ApplyFilter reduces a render-ready graph to the nodes matching spec.
// Placeholders pass the node predicate but are pruned when their attachment
// parent is pruned; the root placeholder always survives. An edge survives
// only if both endpoints survive. Order is preserved and an empty spec
// returns the input unchanged.
func ApplyFilter(g domain.Graph, spec FilterSpec) domain.Graph {
	if spec.Empty() {
		return g
	}

	survives := make(map[string]bool, len(g.Nodes))
	for _, rn := range g.Nodes {
		if rn.Kind == domain.KindExpense {
			survives[rn.ID] = spec.Matches(rn.Node)
		}
	}
	for _, rn := range g.Nodes {
		if rn.Kind != domain.KindPlaceholder {
			continue
		}
		if rn.ParentID == "" {
			survives[rn.ID] = true
			continue
		}
		survives[rn.ID] = survives[rn.ParentID]
	}

	var out domain.Graph
	for _, rn := range g.Nodes {
		if survives[rn.ID] {
			out.Nodes = append(out.Nodes, rn)
		}
	}
	for _, e := range g.Edges {
		if survives[e.Source] && survives[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}
