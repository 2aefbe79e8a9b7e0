package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// SettlementDependencies defines the interface for queuing settlements.
type SettlementDependencies interface {
	EnqueueSettlement(ctx context.Context, contestID, trigger string) (bool, error)
	EnqueueEnded(ctx context.Context, trigger string) (int, error)
}

// SettlementsHandler handles settlement requests.
type SettlementsHandler struct {
	deps SettlementDependencies
}

// NewSettlementsHandler creates a new settlements handler.
func NewSettlementsHandler(deps SettlementDependencies) *SettlementsHandler {
	return &SettlementsHandler{deps: deps}
}

// settlementRequest mirrors the OpenAPI schema for POST /settlements.
// An empty body or contest_id queues every ended contest.
type settlementRequest struct {
	ContestID string `json:"contest_id"`
}

type settlementResponse struct {
	Status string `json:"status"`
	Queued int    `json:"queued"`
}

// HandlePostSettlement handles POST /settlements.
func (h *SettlementsHandler) HandlePostSettlement(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_settlement"
	var req settlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if id := strings.TrimSpace(req.ContestID); id != "" {
		ok, err := h.deps.EnqueueSettlement(r.Context(), id, "api")
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusAccepted, settlementResponse{Status: "in_flight"})
			return
		}
		writeJSON(w, http.StatusAccepted, settlementResponse{Status: "accepted", Queued: 1})
		return
	}

	n, err := h.deps.EnqueueEnded(r.Context(), "api")
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, settlementResponse{Status: "accepted", Queued: n})
}
