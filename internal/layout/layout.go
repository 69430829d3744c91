// Package layout assigns 2-D coordinates to a directed node/edge graph using
// a layered left-to-right scheme: rank by depth from the roots, fixed node
// box dimensions, configurable rank and node separation. The layout is
// recomputed in full on every call; there is no incremental mode.
package layout

// Config controls node box dimensions and spacing.
type Config struct {
	NodeWidth  float64
	NodeHeight float64
	RankSep    float64
	NodeSep    float64
}

// DefaultConfig mirrors the spacing used by the rendering layer.
func DefaultConfig() Config {
	return Config{
		NodeWidth:  260,
		NodeHeight: 120,
		RankSep:    80,
		NodeSep:    40,
	}
}

// Edge is a directed source→target connection.
type Edge struct {
	Source string
	Target string
}

// Point is an assigned coordinate for a node's top-left corner.
type Point struct {
	X float64
	Y float64
}

// maxDepth bounds rank assignment so a malformed cyclic input cannot spin
// forever; anything deeper is clamped to the last rank reached.
const maxDepth = 4096

// Compute lays out the given nodes. Nodes with no incoming edge, or whose
// parent is not part of the input, are treated as roots. Input order is the
// tiebreaker everywhere, which keeps the layout deterministic.
func Compute(ids []string, edges []Edge, cfg Config) map[string]Point {
	if cfg.NodeWidth <= 0 || cfg.NodeHeight <= 0 {
		cfg = DefaultConfig()
	}

	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	// First incoming edge wins; the inputs form a forest under correct
	// operation and anything else degrades to "extra roots".
	parent := make(map[string]string, len(ids))
	children := make(map[string][]string, len(ids))
	for _, e := range edges {
		if !present[e.Source] || !present[e.Target] {
			continue
		}
		if _, seen := parent[e.Target]; seen {
			continue
		}
		parent[e.Target] = e.Source
		children[e.Source] = append(children[e.Source], e.Target)
	}

	var roots []string
	for _, id := range ids {
		if _, ok := parent[id]; !ok {
			roots = append(roots, id)
		}
	}

	// Depth-first walk from the roots assigns ranks and a visit order that
	// keeps subtrees contiguous within their rank.
	rank := make(map[string]int, len(ids))
	var order []string
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if _, done := rank[id]; done || depth > maxDepth {
			return
		}
		rank[id] = depth
		order = append(order, id)
		for _, child := range children[id] {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
	// Anything unreachable (cycles among non-roots) still gets a slot.
	for _, id := range ids {
		if _, done := rank[id]; !done {
			rank[id] = 0
			order = append(order, id)
		}
	}

	slots := make(map[int]int)
	points := make(map[string]Point, len(ids))
	for _, id := range order {
		r := rank[id]
		slot := slots[r]
		slots[r] = slot + 1
		points[id] = Point{
			X: float64(r) * (cfg.NodeWidth + cfg.RankSep),
			Y: float64(slot) * (cfg.NodeHeight + cfg.NodeSep),
		}
	}
	return points
}
