package handler

import (
	"net/http"
	"thetraitors/internal/model"
	"thetraitors/internal/service"
	"thetraitors/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// VoteHandler handles vote endpoints
type VoteHandler struct {
	voteSvc *service.VoteService
}

// NewVoteHandler creates a new vote handler
func NewVoteHandler(voteSvc *service.VoteService) *VoteHandler {
	return &VoteHandler{voteSvc: voteSvc}
}

// Cast handles POST /v1/games/{gameId}/vote
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req model.VoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vote, err := h.voteSvc.CastVote(r.Context(), gameID, middleware.GetPlayerID(r.Context()), req.TargetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"targetId": vote.TargetID,
		"phase":    vote.Phase,
		"day":      vote.Day,
	})
}
