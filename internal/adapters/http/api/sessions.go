package api

import (
	"encoding/json"
	"net/http"
)

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type zoomRequest struct {
	Enabled *bool `json:"enabled"`
}

// SessionsHandler handles request/response session endpoints.
type SessionsHandler struct {
	deps   Dependencies
	limits limits
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies, l limits) *SessionsHandler {
	return &SessionsHandler{deps: deps, limits: l}
}

// HandleCreate handles POST /sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	id, err := h.deps.CreateSession(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id})
}

// HandleClose handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	const op = "api.close_session"
	if err := h.deps.CloseSession(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReset handles POST /sessions/{id}/reset.
func (h *SessionsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset_session"
	if err := h.deps.ResetSession(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleZoom handles PUT /sessions/{id}/zoom.
func (h *SessionsHandler) HandleZoom(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_zoom"
	var req zoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.SetZoomEnabled(r.Context(), r.PathValue("id"), *req.Enabled); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFrame handles POST /sessions/{id}/frames.
func (h *SessionsHandler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.process_frame"
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(h.limits); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.ProcessFrame(r.Context(), r.PathValue("id"), req.frame())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
