package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/openroam/tripgraph/internal/domain"
	"github.com/openroam/tripgraph/internal/engine"
	"github.com/openroam/tripgraph/internal/layout"
	"github.com/openroam/tripgraph/internal/relay"
)

// ReportHandlers exposes read-only views over the relay's trip replicas:
// the reconciled graph and the location/date cost summaries.
type ReportHandlers struct {
	logger   *slog.Logger
	hub      *relay.Hub
	pipeline engine.Pipeline
}

// NewReportHandlers constructs the trip report endpoints.
func NewReportHandlers(logger *slog.Logger, hub *relay.Hub, layoutCfg layout.Config) *ReportHandlers {
	return &ReportHandlers{
		logger:   logger,
		hub:      hub,
		pipeline: engine.NewPipeline(layoutCfg),
	}
}

type bucketResponse struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

type summaryResponse struct {
	TripID     string           `json:"tripId"`
	Locations  []bucketResponse `json:"locations"`
	Dates      []bucketResponse `json:"dates"`
	GrandTotal float64          `json:"grandTotal"`
}

// handleTrips routes /trips/{id}/summary and /trips/{id}/graph.
func (h *ReportHandlers) handleTrips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/trips/"), "/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "trip ID is required")
		return
	}
	tripID, view := parts[0], parts[1]

	st, ok := h.hub.TripStore(tripID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown trip")
		return
	}

	switch view {
	case "summary":
		h.summary(w, tripID, st.Nodes())
	case "graph":
		// Server-side rendering has no edit rights, so the graph carries
		// no placeholders.
		respondJSON(w, http.StatusOK, h.pipeline.Reconcile(st.Nodes(), false))
	default:
		writeError(w, http.StatusNotFound, "unknown trip view")
	}
}

func (h *ReportHandlers) summary(w http.ResponseWriter, tripID string, nodes []domain.ExpenseNode) {
	response := summaryResponse{
		TripID:    tripID,
		Locations: []bucketResponse{},
		Dates:     []bucketResponse{},
	}

	for _, b := range engine.GroupByLocation(nodes) {
		response.Locations = append(response.Locations, bucketResponse{
			Key:   b.Key,
			Count: len(b.Members),
			Total: b.Total,
		})
	}
	for _, b := range engine.GroupByDate(nodes) {
		response.Dates = append(response.Dates, bucketResponse{
			Key:   b.Key,
			Count: len(b.Members),
			Total: b.Total,
		})
	}

	totals := engine.Totals(nodes)
	ix := engine.BuildIndex(nodes)
	for _, id := range ix.Roots() {
		response.GrandTotal += totals[id]
	}

	respondJSON(w, http.StatusOK, response)
}
