package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"thetraitors/internal/game"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps domain errors to HTTP statuses. Anything unknown is
// logged and reported as a 500 without its message.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case game.IsRetryable(err):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     err.Error(),
			"retryable": true,
		})
	case errors.Is(err, game.ErrGameNotFound),
		errors.Is(err, game.ErrPlayerNotFound),
		errors.Is(err, game.ErrObjectNotFound),
		errors.Is(err, game.ErrWhisperNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrNotHost),
		errors.Is(err, game.ErrNotOwner),
		errors.Is(err, game.ErrNightVoteRestricted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrGameNotWaiting),
		errors.Is(err, game.ErrGameNotPlaying),
		errors.Is(err, game.ErrGameNotEnded),
		errors.Is(err, game.ErrGameFull),
		errors.Is(err, game.ErrDuplicateName),
		errors.Is(err, game.ErrInvalidInput),
		errors.Is(err, game.ErrPlayerCount),
		errors.Is(err, game.ErrPlayerEliminated),
		errors.Is(err, game.ErrDeadVoter),
		errors.Is(err, game.ErrDeadTarget),
		errors.Is(err, game.ErrSelfVote),
		errors.Is(err, game.ErrMalformedVotes),
		errors.Is(err, game.ErrAlreadyInteracted),
		errors.Is(err, game.ErrItemUnavailable),
		errors.Is(err, game.ErrWhisperLimit):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
