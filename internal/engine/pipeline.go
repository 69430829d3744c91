package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openroam/tripgraph/internal/domain"
	"github.com/openroam/tripgraph/internal/layout"
)

// Edge styling applied by the reconciliation pass. An edge is "active" when
// both endpoints are visually active; placeholders count as always active.
const (
	activeEdgeColor   = "#22c55e"
	inactiveEdgeColor = "#94a3b8"
)

// Placeholder id scheme. Ids derive deterministically from the attachment
// point so placeholders stay stable across rebuilds.
const (
	placeholderPrefix = "placeholder_"
	placeholderRootID = "placeholder_root"
)

// PlaceholderID returns the placeholder node id attached to parentID.
func PlaceholderID(parentID string) string { return placeholderPrefix + parentID }

// EdgeID returns the derived edge id between a parent and child.
func EdgeID(source, target string) string { return fmt.Sprintf("edge_%s_%s", source, target) }

// Pipeline converts raw replicated nodes into a positioned, styled,
// render-ready graph. It only reads its input, so re-running it is always
// safe and twice on the same input yields identical output.
type Pipeline struct {
	Layout layout.Config
}

// NewPipeline builds a pipeline with the given layout configuration.
func NewPipeline(cfg layout.Config) Pipeline {
	return Pipeline{Layout: cfg}
}

// Reconcile runs the full pass: bottom-up totals, placeholder injection (when
// the viewer can edit), ancestor-active resolution, edge styling, and layout.
func (p Pipeline) Reconcile(nodes []domain.ExpenseNode, canEdit bool) domain.Graph {
	ix := BuildIndex(nodes)
	totals := computeTotals(ix)

	var g domain.Graph
	for _, id := range ix.Order() {
		n := ix.Node(id).Clone()
		n.TotalExpenses = totals[id]
		parentID := n.ParentID
		if parentID != "" && ix.Node(parentID) == nil {
			// Dangling parent reference: render as a root.
			parentID = ""
		}
		g.Nodes = append(g.Nodes, domain.RenderNode{
			ID:             id,
			Kind:           domain.KindExpense,
			ParentID:       parentID,
			Node:           &n,
			VisuallyActive: ix.VisuallyActive(id),
			Width:          p.Layout.NodeWidth,
			Height:         p.Layout.NodeHeight,
		})
	}

	// The edge list is derived from parent pointers; it is a view artifact,
	// never authoritative tree shape.
	active := make(map[string]bool, len(g.Nodes))
	for _, rn := range g.Nodes {
		active[rn.ID] = rn.VisuallyActive
	}
	for _, rn := range g.Nodes {
		if rn.ParentID == "" {
			continue
		}
		g.Edges = append(g.Edges, styleEdge(rn.ParentID, rn.ID, active[rn.ParentID] && active[rn.ID]))
	}

	if canEdit {
		p.injectPlaceholders(&g, active)
	}

	p.position(&g)
	return g
}

// injectPlaceholders adds one "add child here" affordance per expense node
// plus the root placeholder. Placeholders are treated as visually active for
// styling purposes.
func (p Pipeline) injectPlaceholders(g *domain.Graph, active map[string]bool) {
	expenseIDs := make([]string, 0, len(g.Nodes))
	for _, rn := range g.Nodes {
		expenseIDs = append(expenseIDs, rn.ID)
	}
	for _, parentID := range expenseIDs {
		id := PlaceholderID(parentID)
		g.Nodes = append(g.Nodes, domain.RenderNode{
			ID:             id,
			Kind:           domain.KindPlaceholder,
			ParentID:       parentID,
			VisuallyActive: true,
			Width:          p.Layout.NodeWidth,
			Height:         p.Layout.NodeHeight,
		})
		g.Edges = append(g.Edges, styleEdge(parentID, id, active[parentID]))
	}
	g.Nodes = append(g.Nodes, domain.RenderNode{
		ID:             placeholderRootID,
		Kind:           domain.KindPlaceholder,
		VisuallyActive: true,
		Width:          p.Layout.NodeWidth,
		Height:         p.Layout.NodeHeight,
	})
}

func (p Pipeline) position(g *domain.Graph) {
	ids := make([]string, 0, len(g.Nodes))
	for _, rn := range g.Nodes {
		ids = append(ids, rn.ID)
	}
	edges := make([]layout.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, layout.Edge{Source: e.Source, Target: e.Target})
	}
	points := layout.Compute(ids, edges, p.Layout)
	for i := range g.Nodes {
		pt := points[g.Nodes[i].ID]
		g.Nodes[i].X = pt.X
		g.Nodes[i].Y = pt.Y
	}
}

func styleEdge(source, target string, active bool) domain.RenderEdge {
	color := inactiveEdgeColor
	if active {
		color = activeEdgeColor
	}
	return domain.RenderEdge{
		ID:       EdgeID(source, target),
		Source:   source,
		Target:   target,
		Color:    color,
		Animated: active,
	}
}

// Totals computes the bottom-up rollup for a raw node set without running
// the rest of the pipeline; used by reporting and archiving.
func Totals(nodes []domain.ExpenseNode) map[string]float64 {
	return computeTotals(BuildIndex(nodes))
}

// computeTotals walks the forest bottom-up. An inactive node's total is 0 and
// it contributes nothing to its ancestors; everything below it still gets its
// own total computed for display.
func computeTotals(ix *Index) map[string]float64 {
	totals := make(map[string]float64, len(ix.Order()))
	walking := make(map[string]bool)

	var walk func(id string, depth int) float64
	walk = func(id string, depth int) float64 {
		if total, done := totals[id]; done {
			return total
		}
		if walking[id] || depth > maxTreeDepth {
			return 0
		}
		walking[id] = true
		defer delete(walking, id)

		sum := 0.0
		for _, child := range ix.Children(id) {
			sum += walk(child, depth+1)
		}
		n := ix.Node(id)
		if n == nil || !n.Active {
			totals[id] = 0
			return 0
		}
		totals[id] = OwnCost(n.Expense) + sum
		return totals[id]
	}

	for _, id := range ix.Order() {
		walk(id, 0)
	}
	return totals
}

// OwnCost computes a node's direct cost: amount × quantity with safe
// defaults. A non-numeric amount counts as 0, a missing or non-numeric
// quantity as 1; malformed input never raises an error.
func OwnCost(e *domain.Expense) float64 {
	if e == nil {
		return 0
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(e.Amount), 64)
	if err != nil {
		return 0
	}
	quantity := 1.0
	if q := strings.TrimSpace(e.Quantity); q != "" {
		if parsed, err := strconv.ParseFloat(q, 64); err == nil {
			quantity = parsed
		}
	}
	return amount * quantity
}
