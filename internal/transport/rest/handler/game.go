package handler

import (
	"net/http"
	"thetraitors/internal/model"
	"thetraitors/internal/service"
	"thetraitors/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// GameHandler handles game lifecycle endpoints
type GameHandler struct {
	gameSvc *service.GameService
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameSvc *service.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

// Create handles POST /v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateGameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.gameSvc.CreateGame(r.Context(), req.HostName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Join handles POST /v1/join
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req model.JoinGameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.gameSvc.JoinGame(r.Context(), req.GameCode, req.PlayerName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /v1/games/{gameId}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	state, err := h.gameSvc.GetState(r.Context(), gameID, middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// Start handles POST /v1/games/{gameId}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	result, err := h.gameSvc.StartGame(r.Context(), gameID, middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
