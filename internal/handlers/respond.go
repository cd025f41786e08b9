package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"split-game/internal/db"
	"split-game/internal/game"
	"split-game/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondWithServiceError maps round service errors to status codes.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Round not found")
	case errors.Is(err, game.ErrInvalidMove),
		errors.Is(err, services.ErrInvalidParams):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotYourTurn),
		errors.Is(err, services.ErrRoundOver),
		errors.Is(err, services.ErrRoundActive),
		errors.Is(err, game.ErrNoMovesAvailable),
		errors.Is(err, db.ErrConflict):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
