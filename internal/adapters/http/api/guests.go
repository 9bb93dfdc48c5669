package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/guestrank/internal/domain/model"
)

// GuestsHandler serves the guest directory endpoints.
type GuestsHandler struct {
	deps Dependencies
}

// NewGuestsHandler creates a new guests handler.
func NewGuestsHandler(deps Dependencies) *GuestsHandler {
	return &GuestsHandler{deps: deps}
}

type guestResponse struct {
	Success bool        `json:"success"`
	Data    model.Guest `json:"data"`
}

type eventResponse struct {
	Success bool        `json:"success"`
	Data    model.Event `json:"data"`
}

// HandleGetGuest handles GET /guests/{guestID}.
func (h *GuestsHandler) HandleGetGuest(w http.ResponseWriter, r *http.Request) {
	g, err := h.deps.GetGuest(r.Context(), chi.URLParam(r, "guestID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guestResponse{Success: true, Data: g})
}

// HandlePutGuest handles PUT /guests/{guestID}. The body id may be omitted
// but must match the path when present.
func (h *GuestsHandler) HandlePutGuest(w http.ResponseWriter, r *http.Request) {
	guestID := chi.URLParam(r, "guestID")
	g, err := decodeGuest(r, guestID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.deps.UpsertGuest(r.Context(), g); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guestResponse{Success: true, Data: g})
}

func decodeGuest(r *http.Request, guestID string) (model.Guest, error) {
	g, err := decodeBody[model.Guest](r, false)
	if err != nil {
		return g, err
	}
	if g.ID != "" && g.ID != guestID {
		return g, errors.Join(ErrBadRequest, errors.New("body id does not match path"))
	}
	g.ID = guestID
	return g, validateStruct(g)
}

type eventRequest struct {
	ID             string `json:"id" validate:"omitempty,max=128"`
	OrganizationID string `json:"organization_id" validate:"omitempty,max=128"`
	Name           string `json:"name" validate:"required,max=256"`
	Description    string `json:"description"`
	Industry       string `json:"industry" validate:"omitempty,max=128"`
}

// HandlePutEvent handles PUT /events/{eventID}.
func (h *GuestsHandler) HandlePutEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	req, err := decodeJSON[eventRequest](r, false)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if req.ID != "" && req.ID != eventID {
		writeServiceError(w, errors.Join(ErrBadRequest, errors.New("body id does not match path")))
		return
	}

	e := model.Event{
		ID:             eventID,
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Industry:       req.Industry,
	}
	if err := h.deps.UpsertEvent(r.Context(), e); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{Success: true, Data: e})
}
