package handler

import (
	"net/http"
	"thetraitors/internal/model"
	"thetraitors/internal/service"
	"thetraitors/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// RoomHandler handles the shared room endpoints
type RoomHandler struct {
	roomSvc *service.RoomService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc}
}

// Get handles GET /v1/games/{gameId}/room
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	room, err := h.roomSvc.GetRoom(r.Context(), gameID, middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// Initialize handles POST /v1/games/{gameId}/room/initialize
func (h *RoomHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	summary, err := h.roomSvc.InitializeRoom(r.Context(), gameID, middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if summary.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, summary)
}

// Interact handles POST /v1/games/{gameId}/room/interact
func (h *RoomHandler) Interact(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req model.RoomInteractRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.roomSvc.Interact(r.Context(), gameID, middleware.GetPlayerID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       e.ID,
		"objectId": e.ObjectID,
		"content":  e.Content,
		"phase":    e.Phase,
		"day":      e.Day,
	})
}

// Logs handles GET /v1/games/{gameId}/room/log
func (h *RoomHandler) Logs(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	entries, err := h.roomSvc.ListRoomLogs(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": nonNil(entries)})
}
