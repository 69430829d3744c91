package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openroam/tripgraph/internal/domain"
	"github.com/openroam/tripgraph/internal/graph"
	"github.com/openroam/tripgraph/internal/layout"
	"github.com/openroam/tripgraph/internal/relay"
	"github.com/openroam/tripgraph/internal/store"
	"github.com/openroam/tripgraph/internal/syncer"
)

type nullPeer struct{}

func (nullPeer) Send(syncer.Envelope) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededHub(t *testing.T) *relay.Hub {
	t.Helper()

	hub := relay.NewHub(testLogger())
	hub.Join("trip-1", "conn-1", nullPeer{})

	day := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	client := store.New("replica-client")
	update := client.Update(store.OriginInsertion, func(tx *store.Txn) {
		tx.InsertNode(domain.ExpenseNode{ID: "root", Description: "trip", Location: "Oslo",
			Datetime: &day, Expense: &domain.Expense{Amount: "5"}, Active: true})
		tx.InsertNode(domain.ExpenseNode{ID: "child", ParentID: "root",
			Expense: &domain.Expense{Amount: "10", Quantity: "2"}, Active: true})
	})
	hub.HandleUpdate("trip-1", "conn-1", update)
	return hub
}

func testRouter(t *testing.T, hub *relay.Hub, health HealthService) http.Handler {
	t.Helper()
	return NewRouter(testLogger(), RouterDependencies{
		Health:  health,
		Reports: NewReportHandlers(testLogger(), hub, layout.DefaultConfig()),
	})
}

func TestTripSummaryEndpoint(t *testing.T) {
	router := testRouter(t, seededHub(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/trips/trip-1/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TripID    string `json:"tripId"`
		Locations []struct {
			Key   string  `json:"key"`
			Count int     `json:"count"`
			Total float64 `json:"total"`
		} `json:"locations"`
		Dates []struct {
			Key string `json:"key"`
		} `json:"dates"`
		GrandTotal float64 `json:"grandTotal"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.TripID != "trip-1" {
		t.Fatalf("tripId = %s", resp.TripID)
	}
	if resp.GrandTotal != 25 {
		t.Fatalf("grandTotal = %v, want 25", resp.GrandTotal)
	}
	if len(resp.Locations) != 1 || resp.Locations[0].Key != "Oslo" || resp.Locations[0].Count != 2 {
		t.Fatalf("locations = %+v", resp.Locations)
	}
	if len(resp.Dates) != 1 || resp.Dates[0].Key != "2025-06-02" {
		t.Fatalf("dates = %+v", resp.Dates)
	}
}

func TestTripGraphEndpointHasNoPlaceholders(t *testing.T) {
	router := testRouter(t, seededHub(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/trips/trip-1/graph", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var g domain.Graph
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Fatalf("graph shape: %d nodes, %d edges", len(g.Nodes), len(g.Edges))
	}
	for _, rn := range g.Nodes {
		if rn.Kind == domain.KindPlaceholder {
			t.Fatalf("server-rendered graph carries placeholder %s", rn.ID)
		}
	}
	for _, rn := range g.Nodes {
		if rn.ID == "root" && rn.Node.TotalExpenses != 25 {
			t.Fatalf("root total = %v", rn.Node.TotalExpenses)
		}
	}
}

func TestTripEndpointErrors(t *testing.T) {
	router := testRouter(t, seededHub(t), nil)

	cases := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"unknown trip", http.MethodGet, "/trips/other/summary", http.StatusNotFound},
		{"unknown view", http.MethodGet, "/trips/trip-1/ledger", http.StatusNotFound},
		{"missing view", http.MethodGet, "/trips/trip-1", http.StatusBadRequest},
		{"wrong method", http.MethodPost, "/trips/trip-1/summary", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("healthy without archive", func(t *testing.T) {
		router := testRouter(t, relay.NewHub(testLogger()), ArchiveHealthService{})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("degraded when archive unreachable", func(t *testing.T) {
		client := graph.NewMemoryClient().WithConnectivityError(errors.New("bolt down"))
		router := testRouter(t, relay.NewHub(testLogger()), ArchiveHealthService{Client: client})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}

		var payload map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if payload["status"] != "degraded" {
			t.Fatalf("payload = %v", payload)
		}
	})
}

func TestArchiveHealthServiceProbe(t *testing.T) {
	if err := (ArchiveHealthService{}).Probe(context.Background()); err != nil {
		t.Fatalf("nil client should probe healthy: %v", err)
	}
}

func TestCORSMiddleware(t *testing.T) {
	hub := seededHub(t)
	router := NewRouter(testLogger(), RouterDependencies{
		Reports:          NewReportHandlers(testLogger(), hub, layout.DefaultConfig()),
		AllowedOrigins:   []string{"https://app.example.com"},
		AllowCredentials: true,
	})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/trips/trip-1/summary", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Fatalf("allow-origin = %q", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Fatalf("allow-credentials = %q", got)
		}
	})

	t.Run("preflight from unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/trips/trip-1/summary", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/trips/trip-1/summary", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}
