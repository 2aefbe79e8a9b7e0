package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/prizeboard/internal/domain/model"
)

// ContestDependencies defines the interface for contest and entry admin.
type ContestDependencies interface {
	Contest(ctx context.Context, contestID string) (model.Contest, error)
	SaveContest(ctx context.Context, c model.Contest) error
	Entry(ctx context.Context, submissionID string) (model.Entry, error)
	UpsertEntry(ctx context.Context, e model.Entry) error
	UpdateEngagement(ctx context.Context, submissionID string, likes, comments, shares, views int64) (model.Entry, error)
	ApproveEntry(ctx context.Context, submissionID string) error
	SetCreativityScore(ctx context.Context, submissionID string, score float64) error
}

// ContestsHandler handles contest and entry requests.
type ContestsHandler struct {
	deps ContestDependencies
}

// NewContestsHandler creates a new contests handler.
func NewContestsHandler(deps ContestDependencies) *ContestsHandler {
	return &ContestsHandler{deps: deps}
}

// contestRequest mirrors the OpenAPI schema for PUT /contests/{id}.
type contestRequest struct {
	Title          string    `json:"title"`
	Brand          string    `json:"brand"`
	Status         string    `json:"status"`
	Deadline       time.Time `json:"deadline"`
	EngagementPool float64   `json:"engagement_pool"`
	CreativityPool float64   `json:"creativity_pool"`
}

type counters struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	Views    int64 `json:"views"`
}

// entryRequest mirrors the OpenAPI schema for PUT
// /contests/{id}/entries/{submission}. Status and creativity_score may be
// omitted to keep the stored values.
type entryRequest struct {
	ParticipantID   string   `json:"participant_id"`
	Status          string   `json:"status"`
	CreativityScore *float64 `json:"creativity_score"`
	counters
}

type scoreRequest struct {
	Score *float64 `json:"score"`
}

func entryStatus(s string) (model.EntryStatus, error) {
	switch st := model.EntryStatus(s); st {
	case "", model.StatusPending, model.StatusApproved, model.StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown entry status %q", s)
	}
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// HandleGetContest handles GET /contests/{id}.
func (h *ContestsHandler) HandleGetContest(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_contest"
	c, err := h.deps.Contest(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandlePutContest handles PUT /contests/{id}.
func (h *ContestsHandler) HandlePutContest(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_contest"
	var req contestRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	c := model.Contest{
		ID:             r.PathValue("id"),
		Title:          req.Title,
		Brand:          req.Brand,
		Status:         req.Status,
		Deadline:       req.Deadline.UTC(),
		EngagementPool: req.EngagementPool,
		CreativityPool: req.CreativityPool,
	}
	if err := h.deps.SaveContest(r.Context(), c); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandlePutEntry handles PUT /contests/{id}/entries/{submission}.
func (h *ContestsHandler) HandlePutEntry(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_entry"
	var req entryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	status, err := entryStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	submissionID := r.PathValue("submission")
	err = h.deps.UpsertEntry(r.Context(), model.Entry{
		SubmissionID:    submissionID,
		ParticipantID:   req.ParticipantID,
		ContestID:       r.PathValue("id"),
		Status:          status,
		CreativityScore: req.CreativityScore,
		Likes:           req.Likes,
		Comments:        req.Comments,
		Shares:          req.Shares,
		Views:           req.Views,
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	h.writeEntry(w, r, op, submissionID)
}

// HandleGetEntry handles GET /entries/{submission}.
func (h *ContestsHandler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	h.writeEntry(w, r, "api.get_entry", r.PathValue("submission"))
}

// HandlePatchEngagement handles PATCH /entries/{submission}/engagement.
func (h *ContestsHandler) HandlePatchEngagement(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_engagement"
	var req counters
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := h.deps.UpdateEngagement(r.Context(), r.PathValue("submission"),
		req.Likes, req.Comments, req.Shares, req.Views)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleApproveEntry handles POST /entries/{submission}/approve.
func (h *ContestsHandler) HandleApproveEntry(w http.ResponseWriter, r *http.Request) {
	const op = "api.approve_entry"
	submissionID := r.PathValue("submission")
	if err := h.deps.ApproveEntry(r.Context(), submissionID); err != nil {
		writeServiceError(w, op, err)
		return
	}
	h.writeEntry(w, r, op, submissionID)
}

// HandlePutCreativityScore handles PUT /entries/{submission}/creativity-score.
func (h *ContestsHandler) HandlePutCreativityScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_creativity_score"
	var req scoreRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	submissionID := r.PathValue("submission")
	if err := h.deps.SetCreativityScore(r.Context(), submissionID, *req.Score); err != nil {
		writeServiceError(w, op, err)
		return
	}
	h.writeEntry(w, r, op, submissionID)
}

func (h *ContestsHandler) writeEntry(w http.ResponseWriter, r *http.Request, op, submissionID string) {
	e, err := h.deps.Entry(r.Context(), submissionID)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
