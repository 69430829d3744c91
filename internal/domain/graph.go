package domain

// NodeKind distinguishes replicated expense nodes from UI-only placeholders.
type NodeKind string

const (
	KindExpense     NodeKind = "expense"
	KindPlaceholder NodeKind = "placeholder"
)

// RenderNode is one positioned element of a render-ready graph. Expense nodes
// carry a snapshot of the underlying ExpenseNode with TotalExpenses filled in;
// placeholders carry only their attachment point.
type RenderNode struct {
	ID             string       `json:"id"`
	Kind           NodeKind     `json:"kind"`
	ParentID       string       `json:"parentId,omitempty"`
	Node           *ExpenseNode `json:"data,omitempty"`
	VisuallyActive bool         `json:"visuallyActive"`
	X              float64      `json:"x"`
	Y              float64      `json:"y"`
	Width          float64      `json:"width"`
	Height         float64      `json:"height"`
}

// RenderEdge mirrors one parent/child relationship plus display styling. The
// edge list is a view artifact derived from parent pointers; it is never
// replicated.
type RenderEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Color    string `json:"color"`
	Animated bool   `json:"animated"`
}

// Graph is a render-ready node/edge pair.
type Graph struct {
	Nodes []RenderNode `json:"nodes"`
	Edges []RenderEdge `json:"edges"`
}

// Clone deep-copies the graph so filtered views can be derived without
// sharing slices with the unfiltered view.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]RenderNode, len(g.Nodes)),
		Edges: append([]RenderEdge(nil), g.Edges...),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n
		if n.Node != nil {
			cp := n.Node.Clone()
			out.Nodes[i].Node = &cp
		}
	}
	return out
}
