package relay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/openroam/tripgraph/internal/domain"
	"github.com/openroam/tripgraph/internal/graph"
)

func seededHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(discardLogger())
	hub.Join("trip-1", "conn-1", &fakePeer{})
	hub.HandleUpdate("trip-1", "conn-1", peerUpdate(t,
		domain.ExpenseNode{ID: "root", Description: "trip", Location: "Oslo",
			Expense: &domain.Expense{Amount: "5"}, Active: true, Status: "paid"},
		domain.ExpenseNode{ID: "child", ParentID: "root", Description: "tickets",
			Expense: &domain.Expense{Amount: "10", Quantity: "2"}, Active: true},
	))
	return hub
}

func TestArchiver_ArchiveTripWritesNodesAndParents(t *testing.T) {
	hub := seededHub(t)
	client := graph.NewMemoryClient()

	archiver := NewArchiver(discardLogger(), hub, client, time.Minute)
	archivedAt := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	archiver.WithClock(func() time.Time { return archivedAt })

	if err := archiver.ArchiveTrip(context.Background(), "trip-1"); err != nil {
		t.Fatalf("ArchiveTrip: %v", err)
	}

	calls := client.WriteCalls()
	// One upsert per node plus one parent link.
	if len(calls) != 3 {
		t.Fatalf("write calls = %d, want 3", len(calls))
	}

	byID := make(map[string]graph.ExecutedQuery)
	var parentCalls []graph.ExecutedQuery
	for _, call := range calls {
		if strings.Contains(call.Query, "PARENT_OF") {
			parentCalls = append(parentCalls, call)
			continue
		}
		byID[call.Params["id"].(string)] = call
	}

	root := byID["root"]
	if root.Params["tripId"] != "trip-1" || root.Params["description"] != "trip" {
		t.Fatalf("root upsert params: %+v", root.Params)
	}
	if root.Params["ownCost"] != 5.0 || root.Params["totalExpenses"] != 25.0 {
		t.Fatalf("root rollup wrong: %+v", root.Params)
	}
	if root.Params["updatedAt"] != "2025-07-01T12:00:00Z" {
		t.Fatalf("updatedAt = %v", root.Params["updatedAt"])
	}

	child := byID["child"]
	if child.Params["ownCost"] != 20.0 || child.Params["totalExpenses"] != 20.0 {
		t.Fatalf("child rollup wrong: %+v", child.Params)
	}

	if len(parentCalls) != 1 {
		t.Fatalf("parent links = %d, want 1", len(parentCalls))
	}
	if parentCalls[0].Params["parentId"] != "root" || parentCalls[0].Params["id"] != "child" {
		t.Fatalf("parent link params: %+v", parentCalls[0].Params)
	}
}

func TestArchiver_UnknownTripIsNoOp(t *testing.T) {
	hub := NewHub(discardLogger())
	client := graph.NewMemoryClient()
	archiver := NewArchiver(discardLogger(), hub, client, time.Minute)

	if err := archiver.ArchiveTrip(context.Background(), "missing"); err != nil {
		t.Fatalf("ArchiveTrip: %v", err)
	}
	if got := len(client.WriteCalls()); got != 0 {
		t.Fatalf("unexpected writes: %d", got)
	}
}

func TestArchiver_PropagatesWriteFailures(t *testing.T) {
	hub := seededHub(t)
	wantErr := errors.New("bolt connection refused")
	client := graph.NewMemoryClient().WithError(wantErr)
	archiver := NewArchiver(discardLogger(), hub, client, time.Minute)

	if err := archiver.ArchiveTrip(context.Background(), "trip-1"); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestArchiver_ArchiveAllCoversEveryTrip(t *testing.T) {
	hub := seededHub(t)
	hub.Join("trip-2", "conn-2", &fakePeer{})
	hub.HandleUpdate("trip-2", "conn-2", peerUpdate(t,
		domain.ExpenseNode{ID: "solo", Active: true},
	))

	client := graph.NewMemoryClient()
	archiver := NewArchiver(discardLogger(), hub, client, time.Minute)
	archiver.ArchiveAll(context.Background())

	trips := make(map[string]bool)
	for _, call := range client.WriteCalls() {
		if tripID, ok := call.Params["tripId"].(string); ok {
			trips[tripID] = true
		}
	}
	if !trips["trip-1"] || !trips["trip-2"] {
		t.Fatalf("not every trip archived: %v", trips)
	}
}
