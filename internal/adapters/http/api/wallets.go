package api

import (
	"context"
	"net/http"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/types"
)

// WalletDependencies defines the interface for wallet operations.
type WalletDependencies interface {
	Wallet(ctx context.Context, participantID string) (types.Wallet, error)
	RequestPayout(ctx context.Context, participantID string, amount float64) (model.Payout, error)
	ApprovePayout(ctx context.Context, payoutID string) (model.Payout, error)
	RejectPayout(ctx context.Context, payoutID string) (model.Payout, error)
}

// WalletsHandler handles wallet requests.
type WalletsHandler struct {
	deps WalletDependencies
}

// NewWalletsHandler creates a new wallets handler.
func NewWalletsHandler(deps WalletDependencies) *WalletsHandler {
	return &WalletsHandler{deps: deps}
}

type payoutRequest struct {
	Amount float64 `json:"amount"`
}

// HandleGetWallet handles GET /wallets/{participant}.
func (h *WalletsHandler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_wallet"
	wallet, err := h.deps.Wallet(r.Context(), r.PathValue("participant"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// HandlePostPayout handles POST /wallets/{participant}/payouts.
func (h *WalletsHandler) HandlePostPayout(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_payout"
	var req payoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.RequestPayout(r.Context(), r.PathValue("participant"), req.Amount)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleApprovePayout handles POST /payouts/{id}/approve.
func (h *WalletsHandler) HandleApprovePayout(w http.ResponseWriter, r *http.Request) {
	const op = "api.approve_payout"
	p, err := h.deps.ApprovePayout(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleRejectPayout handles POST /payouts/{id}/reject.
func (h *WalletsHandler) HandleRejectPayout(w http.ResponseWriter, r *http.Request) {
	const op = "api.reject_payout"
	p, err := h.deps.RejectPayout(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
