package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/guestrank/internal/domain/importance"
	"github.com/okian/guestrank/internal/domain/model"
)

// ImportanceHandler serves scoring endpoints.
type ImportanceHandler struct {
	deps Dependencies
}

// NewImportanceHandler creates a new importance handler.
func NewImportanceHandler(deps Dependencies) *ImportanceHandler {
	return &ImportanceHandler{deps: deps}
}

type analyzeRequest struct {
	EventID      string `json:"event_id" validate:"omitempty,max=128"`
	ForceRefresh bool   `json:"force_refresh"`
}

type analyzeResponse struct {
	Success bool                   `json:"success"`
	Data    importance.ScoreResult `json:"data"`
}

// HandleAnalyzeGuest handles POST /guests/{guestID}/importance.
func (h *ImportanceHandler) HandleAnalyzeGuest(w http.ResponseWriter, r *http.Request) {
	guestID := chi.URLParam(r, "guestID")
	req, err := decodeJSON[analyzeRequest](r, true)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := h.deps.AnalyzeGuest(r.Context(), guestID, req.EventID, req.ForceRefresh)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Data: res})
}

type batchRequest struct {
	Guests         []json.RawMessage `json:"guests"`
	OrganizationID string            `json:"organization_id" validate:"omitempty,max=128"`
	ForceRefresh   bool              `json:"force_refresh"`
}

type batchResponse struct {
	Success bool `json:"success"`
	importance.BatchResult
}

// HandleBatch handles POST /importance/batch. Exactly one of guests and
// organization_id must be given; per-guest failures stay inside results,
// including guest entries that do not decode.
func (h *ImportanceHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[batchRequest](r, false)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if (req.Guests != nil) == (req.OrganizationID != "") {
		writeServiceError(w, errors.Join(ErrBadRequest, errors.New("exactly one of guests or organization_id is required")))
		return
	}

	var res importance.BatchResult
	if req.Guests != nil {
		res, err = h.analyzeGuestList(r, req)
	} else {
		res, err = h.deps.AnalyzeOrganization(r.Context(), req.OrganizationID, req.ForceRefresh)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Success: true, BatchResult: res})
}

func (h *ImportanceHandler) analyzeGuestList(r *http.Request, req batchRequest) (importance.BatchResult, error) {
	guests := make([]model.Guest, 0, len(req.Guests))
	pos := make([]int, 0, len(req.Guests))
	rejected := map[int]importance.Outcome{}
	for i, raw := range req.Guests {
		g, err := decodeStrict[model.Guest](raw)
		if err != nil {
			rejected[i] = importance.Failure(guestIDOf(raw), fmt.Errorf("%w: guest %d: %w", importance.ErrValidation, i, err))
			continue
		}
		guests = append(guests, g)
		pos = append(pos, i)
	}

	res, err := h.deps.AnalyzeGuests(r.Context(), guests, req.ForceRefresh)
	if err != nil || len(rejected) == 0 {
		return res, err
	}

	out := importance.BatchResult{
		Total:     len(req.Guests),
		Processed: res.Processed,
		Failed:    res.Failed + len(rejected),
		Results:   make([]importance.Outcome, len(req.Guests)),
	}
	for i, o := range rejected {
		out.Results[i] = o
	}
	for j, o := range res.Results {
		if j < len(pos) {
			out.Results[pos[j]] = o
		}
	}
	return out, nil
}

type refreshRequest struct {
	GuestIDs       []string `json:"guest_ids" validate:"omitempty,max=10000"`
	OrganizationID string   `json:"organization_id" validate:"omitempty,max=128"`
	EventID        string   `json:"event_id" validate:"omitempty,max=128"`
	ForceRefresh   bool     `json:"force_refresh"`
}

type refreshResponse struct {
	Success bool `json:"success"`
	model.RefreshReceipt
}

// HandleRefresh handles POST /importance/refresh. Jobs run in the background.
func (h *ImportanceHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[refreshRequest](r, false)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if (len(req.GuestIDs) > 0) == (req.OrganizationID != "") {
		writeServiceError(w, errors.Join(ErrBadRequest, errors.New("exactly one of guest_ids or organization_id is required")))
		return
	}

	var receipt model.RefreshReceipt
	if len(req.GuestIDs) > 0 {
		receipt, err = h.deps.EnqueueRefresh(r.Context(), req.GuestIDs, req.EventID, req.ForceRefresh)
	} else {
		receipt, err = h.deps.EnqueueOrganizationRefresh(r.Context(), req.OrganizationID, req.EventID, req.ForceRefresh)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{Success: true, RefreshReceipt: receipt})
}
