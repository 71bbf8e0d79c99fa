package handler

import (
	"net/http"
	"thetraitors/internal/model"
	"thetraitors/internal/service"
	"thetraitors/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// WhisperHandler handles private messages between players
type WhisperHandler struct {
	whisperSvc *service.WhisperService
}

// NewWhisperHandler creates a new whisper handler
func NewWhisperHandler(whisperSvc *service.WhisperService) *WhisperHandler {
	return &WhisperHandler{whisperSvc: whisperSvc}
}

// Inbox handles GET /v1/games/{gameId}/whispers
func (h *WhisperHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	inbox, err := h.whisperSvc.Inbox(r.Context(), gameID, middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inbox)
}

// Send handles POST /v1/games/{gameId}/whispers
func (h *WhisperHandler) Send(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req model.WhisperRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.whisperSvc.Send(r.Context(), gameID, middleware.GetPlayerID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// Leak handles POST /v1/games/{gameId}/whispers/{whisperId}/leak
func (h *WhisperHandler) Leak(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	view, err := h.whisperSvc.Leak(r.Context(), vars["gameId"], vars["whisperId"], middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
