package handler

import (
	"net/http"
	"thetraitors/internal/service"
	"thetraitors/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// NarrativeHandler handles story, mission, chaos and reveal endpoints
type NarrativeHandler struct {
	narrativeSvc *service.NarrativeService
}

// NewNarrativeHandler creates a new narrative handler
func NewNarrativeHandler(narrativeSvc *service.NarrativeService) *NarrativeHandler {
	return &NarrativeHandler{narrativeSvc: narrativeSvc}
}

// Story handles GET /v1/games/{gameId}/story
func (h *NarrativeHandler) Story(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	story, err := h.narrativeSvc.ListStory(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"narrations": nonNil(story)})
}

// Narrate handles POST /v1/games/{gameId}/narration
func (h *NarrativeHandler) Narrate(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	n, err := h.narrativeSvc.GenerateNarration(r.Context(), gameID, middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, n)
}

// Missions handles GET /v1/games/{gameId}/missions
func (h *NarrativeHandler) Missions(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	missions, err := h.narrativeSvc.ListMissions(r.Context(), gameID, middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"missions": nonNil(missions)})
}

// GenerateMissions handles POST /v1/games/{gameId}/missions
func (h *NarrativeHandler) GenerateMissions(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	missions, err := h.narrativeSvc.GenerateMissions(r.Context(), gameID, middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(missions)})
}

// ToggleMission handles POST /v1/games/{gameId}/missions/{missionId}/toggle
func (h *NarrativeHandler) ToggleMission(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	m, err := h.narrativeSvc.ToggleMission(r.Context(), vars["gameId"], vars["missionId"], middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// Chaos handles POST /v1/games/{gameId}/chaos
func (h *NarrativeHandler) Chaos(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	e, created, err := h.narrativeSvc.TriggerChaos(r.Context(), gameID, middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, e)
}

// Reveal handles GET /v1/games/{gameId}/reveal
func (h *NarrativeHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	reveal, err := h.narrativeSvc.Reveal(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reveal)
}

// nonNil keeps empty lists as [] in JSON
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
