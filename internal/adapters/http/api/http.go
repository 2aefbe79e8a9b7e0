// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/prizeboard/internal/app"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ContestDependencies
	LeaderboardDependencies
	TierDependencies
	SettlementDependencies
	WalletDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	contestsHandler    *ContestsHandler
	leaderboardHandler *LeaderboardHandler
	tiersHandler       *TiersHandler
	settlementsHandler *SettlementsHandler
	walletsHandler     *WalletsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		contestsHandler:    NewContestsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		tiersHandler:       NewTiersHandler(deps),
		settlementsHandler: NewSettlementsHandler(deps),
		walletsHandler:     NewWalletsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /contests/{id}", MetricsMiddleware(s.contestsHandler.HandleGetContest, "contests"))
	mux.HandleFunc("PUT /contests/{id}", MetricsMiddleware(s.contestsHandler.HandlePutContest, "contests"))
	mux.HandleFunc("PUT /contests/{id}/entries/{submission}",
		MetricsMiddleware(s.contestsHandler.HandlePutEntry, "entries"))
	mux.HandleFunc("GET /entries/{submission}", MetricsMiddleware(s.contestsHandler.HandleGetEntry, "entries"))
	mux.HandleFunc("PATCH /entries/{submission}/engagement",
		MetricsMiddleware(s.contestsHandler.HandlePatchEngagement, "engagement"))
	mux.HandleFunc("POST /entries/{submission}/approve",
		MetricsMiddleware(s.contestsHandler.HandleApproveEntry, "approve_entry"))
	mux.HandleFunc("PUT /entries/{submission}/creativity-score",
		MetricsMiddleware(s.contestsHandler.HandlePutCreativityScore, "creativity_score"))

	mux.HandleFunc("GET /contests/{id}/leaderboards/{kind}",
		MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /contests/{id}/prize-tiers/{kind}",
		MetricsMiddleware(s.tiersHandler.HandleGetTiers, "prize_tiers"))
	mux.HandleFunc("GET /contests/{id}/prize-tiers/{kind}/ranks/{rank}",
		MetricsMiddleware(s.tiersHandler.HandleGetRankPrize, "rank_prize"))
	mux.HandleFunc("PUT /contests/{id}/prize-tiers",
		MetricsMiddleware(s.tiersHandler.HandlePutTiers, "prize_tiers"))

	mux.HandleFunc("POST /settlements", MetricsMiddleware(s.settlementsHandler.HandlePostSettlement, "settlements"))

	mux.HandleFunc("GET /wallets/{participant}", MetricsMiddleware(s.walletsHandler.HandleGetWallet, "wallets"))
	mux.HandleFunc("POST /wallets/{participant}/payouts",
		MetricsMiddleware(s.walletsHandler.HandlePostPayout, "payouts"))
	mux.HandleFunc("POST /payouts/{id}/approve",
		MetricsMiddleware(s.walletsHandler.HandleApprovePayout, "approve_payout"))
	mux.HandleFunc("POST /payouts/{id}/reject",
		MetricsMiddleware(s.walletsHandler.HandleRejectPayout, "reject_payout"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service sentinels to status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNoPrize):
		return http.StatusNotFound, "no_prize"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrTierConflict):
		return http.StatusConflict, "tier_conflict"
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusConflict, "insufficient_funds"
	case errors.Is(err, service.ErrPayoutProcessed):
		return http.StatusConflict, "payout_processed"
	case errors.Is(err, service.ErrQueueFull), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, service.ErrUnknownKind),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrEntryMoved),
		errors.Is(err, service.ErrInvalidRank),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidTier),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
