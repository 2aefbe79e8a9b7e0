package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/types"
)

// TierDependencies defines the interface for prize tier operations.
type TierDependencies interface {
	ResolvedTiers(ctx context.Context, contestID, kind string) (types.TierSet, error)
	PrizeForRank(ctx context.Context, contestID, kind string, rank int) (types.RankPrize, error)
	ReplacePrizeTiers(ctx context.Context, contestID string, tiers []model.PrizeTier) ([]model.PrizeTier, error)
}

// TiersHandler handles prize tier requests.
type TiersHandler struct {
	deps TierDependencies
}

// NewTiersHandler creates a new tiers handler.
func NewTiersHandler(deps TierDependencies) *TiersHandler {
	return &TiersHandler{deps: deps}
}

// tierRequest mirrors the OpenAPI schema for one configured tier.
type tierRequest struct {
	ID      string  `json:"id"`
	Kind    string  `json:"leaderboard_kind"`
	Label   string  `json:"label"`
	RankMin int     `json:"rank_min"`
	RankMax int     `json:"rank_max"`
	Amount  float64 `json:"amount"`
}

type putTiersRequest struct {
	Tiers []tierRequest `json:"tiers"`
}

type putTiersResponse struct {
	ContestID string            `json:"contest_id"`
	Tiers     []model.PrizeTier `json:"tiers"`
}

func (r putTiersRequest) toModel() ([]model.PrizeTier, error) {
	out := make([]model.PrizeTier, len(r.Tiers))
	for i, t := range r.Tiers {
		kind, err := model.ParseKind(t.Kind)
		if err != nil {
			return nil, fmt.Errorf("tiers[%d]: %w", i, err)
		}
		out[i] = model.PrizeTier{
			ID:      t.ID,
			Kind:    kind,
			Label:   t.Label,
			RankMin: t.RankMin,
			RankMax: t.RankMax,
			Amount:  t.Amount,
		}
	}
	return out, nil
}

// HandleGetTiers handles GET /contests/{id}/prize-tiers/{kind}.
func (h *TiersHandler) HandleGetTiers(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_tiers"
	set, err := h.deps.ResolvedTiers(r.Context(), r.PathValue("id"), r.PathValue("kind"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// HandleGetRankPrize handles GET /contests/{id}/prize-tiers/{kind}/ranks/{rank}.
func (h *TiersHandler) HandleGetRankPrize(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank_prize"
	rank, err := strconv.Atoi(r.PathValue("rank"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	prize, err := h.deps.PrizeForRank(r.Context(), r.PathValue("id"), r.PathValue("kind"), rank)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, prize)
}

// HandlePutTiers handles PUT /contests/{id}/prize-tiers. Colliding tiers are
// rejected with 409 rather than silently dropped.
func (h *TiersHandler) HandlePutTiers(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_tiers"
	var req putTiersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	tiers, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	contestID := r.PathValue("id")
	stored, err := h.deps.ReplacePrizeTiers(r.Context(), contestID, tiers)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, putTiersResponse{ContestID: contestID, Tiers: stored})
}
