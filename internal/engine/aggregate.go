package engine

import (
	"sort"

	"github.com/openroam/tripgraph/internal/domain"
)

// Bucket is one group of a cost report: its member nodes plus the sum of
// their individually computed costs. The sum deliberately uses each member's
// own cost, not the rolled-up subtree total, so a child under a located
// parent still contributes its own cost to that location's bucket.
type Bucket struct {
	Key     string               `json:"key"`
	Members []domain.ExpenseNode `json:"members"`
	Total   float64              `json:"total"`
}

const dateKeyLayout = "2006-01-02"

// GroupByLocation buckets visually-active nodes by resolved location: the
// node's own location if set, else the nearest ancestor's. Nodes with no
// resolvable location are omitted. Buckets are ordered by key.
func GroupByLocation(nodes []domain.ExpenseNode) []Bucket {
	ix := BuildIndex(nodes)
	return group(ix, func(id string) (string, bool) {
		return ix.ResolvedLocation(id)
	}, sort.Strings)
}

// GroupByDate buckets visually-active nodes by resolved calendar day,
// ascending.
func GroupByDate(nodes []domain.ExpenseNode) []Bucket {
	ix := BuildIndex(nodes)
	return group(ix, func(id string) (string, bool) {
		dt, ok := ix.ResolvedDate(id)
		if !ok {
			return "", false
		}
		return dt.Format(dateKeyLayout), true
	}, sort.Strings)
}

func group(ix *Index, keyFn func(id string) (string, bool), orderKeys func([]string)) []Bucket {
	byKey := make(map[string]*Bucket)
	for _, id := range ix.Order() {
		if !ix.VisuallyActive(id) {
			continue
		}
		key, ok := keyFn(id)
		if !ok {
			continue
		}
		bucket := byKey[key]
		if bucket == nil {
			bucket = &Bucket{Key: key}
			byKey[key] = bucket
		}
		n := ix.Node(id).Clone()
		bucket.Members = append(bucket.Members, n)
		bucket.Total += OwnCost(n.Expense)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	orderKeys(keys)

	out := make([]Bucket, 0, len(keys))
	for _, key := range keys {
		out = append(out, *byKey[key])
	}
	return out
}
