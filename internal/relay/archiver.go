package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/openroam/tripgraph/internal/engine"
	"github.com/openroam/tripgraph/internal/graph"
)

const (
	upsertExpenseCypher = `
MERGE (t:Trip {id: $tripId})
MERGE (e:Expense {id: $id})
SET e.description = $description,
    e.location = $location,
    e.status = $status,
    e.active = $active,
    e.ownCost = $ownCost,
    e.totalExpenses = $totalExpenses,
    e.updatedAt = $updatedAt
MERGE (t)-[:CONTAINS]->(e)`

	upsertParentCypher = `
MATCH (p:Expense {id: $parentId})
MATCH (e:Expense {id: $id})
MERGE (p)-[:PARENT_OF]->(e)`
)

// Archiver periodically exports each trip's reconciled expense graph into the
// graph database for audit and reporting. Archiving is best-effort: failures
// are logged and retried on the next tick, never surfaced to the sync path.
type Archiver struct {
	logger   *slog.Logger
	hub      *Hub
	client   graph.Client
	interval time.Duration
	nowFn    func() time.Time
}

// NewArchiver builds an archiver over the hub's trip replicas.
func NewArchiver(logger *slog.Logger, hub *Hub, client graph.Client, interval time.Duration) *Archiver {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Archiver{
		logger:   logger,
		hub:      hub,
		client:   client,
		interval: interval,
		nowFn:    time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (a *Archiver) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		a.nowFn = nowFn
	}
}

// Run archives on every tick until the context ends.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.ArchiveAll(ctx)
		}
	}
}

// ArchiveAll exports every trip the hub currently holds.
func (a *Archiver) ArchiveAll(ctx context.Context) {
	for _, tripID := range a.hub.TripIDs() {
		if err := a.ArchiveTrip(ctx, tripID); err != nil {
			a.logger.Warn("trip archive failed", "trip", tripID, "error", err)
		}
	}
}

// ArchiveTrip merges one trip's nodes and parent relationships into the graph
// database. Totals are recomputed from the replica so the archive carries the
// same rollups the clients render.
func (a *Archiver) ArchiveTrip(ctx context.Context, tripID string) error {
	st, ok := a.hub.TripStore(tripID)
	if !ok {
		return nil
	}

	nodes := st.Nodes()
	totals := engine.Totals(nodes)
	updatedAt := a.nowFn().UTC().Format(time.RFC3339)

	for _, n := range nodes {
		params := map[string]any{
			"tripId":        tripID,
			"id":            n.ID,
			"description":   n.Description,
			"location":      n.Location,
			"status":        n.Status,
			"active":        n.Active,
			"ownCost":       engine.OwnCost(n.Expense),
			"totalExpenses": totals[n.ID],
			"updatedAt":     updatedAt,
		}
		if err := a.client.ExecuteWrite(ctx, upsertExpenseCypher, params); err != nil {
			return err
		}
	}
	for _, n := range nodes {
		if n.ParentID == "" {
			continue
		}
		params := map[string]any{
			"parentId": n.ParentID,
			"id":       n.ID,
		}
		if err := a.client.ExecuteWrite(ctx, upsertParentCypher, params); err != nil {
			return err
		}
	}

	a.logger.Debug("trip archived", "trip", tripID, "nodes", len(nodes))
	return nil
}
