package handler

import (
	"crypto/subtle"
	"net/http"
	"thetraitors/internal/model"
	"thetraitors/internal/service"
	"thetraitors/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// PhaseHandler handles phase advancement and auto-phase endpoints
type PhaseHandler struct {
	phaseSvc     *service.PhaseService
	autoPhaseSvc *service.AutoPhaseService
	cronSecret   string
}

// NewPhaseHandler creates a new phase handler. An empty cronSecret leaves
// the sweep endpoint open.
func NewPhaseHandler(phaseSvc *service.PhaseService, autoPhaseSvc *service.AutoPhaseService, cronSecret string) *PhaseHandler {
	return &PhaseHandler{
		phaseSvc:     phaseSvc,
		autoPhaseSvc: autoPhaseSvc,
		cronSecret:   cronSecret,
	}
}

// Next handles POST /v1/games/{gameId}/next-phase
func (h *PhaseHandler) Next(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	result, err := h.phaseSvc.AdvancePhase(r.Context(), gameID, middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetAutoPhase handles GET /v1/games/{gameId}/auto-phase
func (h *PhaseHandler) GetAutoPhase(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	status, err := h.autoPhaseSvc.Status(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// SetAutoPhase handles POST /v1/games/{gameId}/auto-phase
func (h *PhaseHandler) SetAutoPhase(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	var req model.AutoPhaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := h.autoPhaseSvc.Configure(r.Context(), gameID, middleware.GetPlayerID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Check handles POST /v1/auto-phase/check, the external cron entry point
func (h *PhaseHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret != "" {
		got := r.Header.Get("X-Cron-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.cronSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid cron secret")
			return
		}
	}

	report, err := h.autoPhaseSvc.CheckAndAdvanceAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
