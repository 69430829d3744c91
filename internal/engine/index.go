package engine

import (
	"time"

	"github.com/openroam/tripgraph/internal/domain"
)

// maxTreeDepth bounds every ancestor/descendant walk. Trees this deep do not
// occur under correct operation; the guard keeps malformed data from spinning.
const maxTreeDepth = 4096

// Index is the shared per-pass view of a node set: id lookup plus ordered
// children lists. It is built once per reconciliation and reused by totals,
// active-resolution, aggregation, and deletion instead of re-deriving the
// parent/child relation with repeated linear scans.
type Index struct {
	nodes    map[string]*domain.ExpenseNode
	children map[string][]string
	order    []string
	roots    []string
}

// BuildIndex indexes the given nodes, preserving their order. A node whose
// parent id is not present in the set is treated as a root.
func BuildIndex(nodes []domain.ExpenseNode) *Index {
	ix := &Index{
		nodes:    make(map[string]*domain.ExpenseNode, len(nodes)),
		children: make(map[string][]string, len(nodes)),
		order:    make([]string, 0, len(nodes)),
	}
	for i := range nodes {
		n := nodes[i]
		ix.nodes[n.ID] = &n
		ix.order = append(ix.order, n.ID)
	}
	for _, id := range ix.order {
		n := ix.nodes[id]
		if n.ParentID == "" || ix.nodes[n.ParentID] == nil {
			ix.roots = append(ix.roots, id)
			continue
		}
		ix.children[n.ParentID] = append(ix.children[n.ParentID], id)
	}
	return ix
}

// Node returns the indexed node for id, or nil.
func (ix *Index) Node(id string) *domain.ExpenseNode { return ix.nodes[id] }

// Children returns the ordered child ids of id.
func (ix *Index) Children(id string) []string { return ix.children[id] }

// Roots returns the ids without a resolvable parent, in input order.
func (ix *Index) Roots() []string { return ix.roots }

// Order returns all ids in input order.
func (ix *Index) Order() []string { return ix.order }

// Subtree returns id plus every descendant, breadth-first. The seen set
// bounds the walk at the node count, so cyclic input cannot spin.
func (ix *Index) Subtree(id string) []string {
	if ix.nodes[id] == nil {
		return nil
	}
	out := []string{id}
	seen := map[string]bool{id: true}
	for i := 0; i < len(out); i++ {
		for _, child := range ix.children[out[i]] {
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
			}
		}
	}
	return out
}

// VisuallyActive reports whether the node and every ancestor up to its root
// have their active flag set. This governs display styling and reporting
// only, not the monetary rollup.
func (ix *Index) VisuallyActive(id string) bool {
	seen := make(map[string]bool)
	for depth := 0; depth < maxTreeDepth; depth++ {
		n := ix.nodes[id]
		if n == nil || seen[id] {
			return false
		}
		if !n.Active {
			return false
		}
		if n.ParentID == "" || ix.nodes[n.ParentID] == nil {
			return true
		}
		seen[id] = true
		id = n.ParentID
	}
	return false
}

// ResolvedLocation returns the node's own location if set, else the nearest
// ancestor's. The second return is false when no ancestor carries one.
func (ix *Index) ResolvedLocation(id string) (string, bool) {
	seen := make(map[string]bool)
	for depth := 0; depth < maxTreeDepth; depth++ {
		n := ix.nodes[id]
		if n == nil || seen[id] {
			return "", false
		}
		if n.Location != "" {
			return n.Location, true
		}
		seen[id] = true
		id = n.ParentID
	}
	return "", false
}

// ResolvedDate returns the node's own datetime if set, else the nearest
// ancestor's.
func (ix *Index) ResolvedDate(id string) (time.Time, bool) {
	seen := make(map[string]bool)
	for depth := 0; depth < maxTreeDepth; depth++ {
		n := ix.nodes[id]
		if n == nil || seen[id] {
			return time.Time{}, false
		}
		if n.Datetime != nil {
			return *n.Datetime, true
		}
		seen[id] = true
		id = n.ParentID
	}
	return time.Time{}, false
}
